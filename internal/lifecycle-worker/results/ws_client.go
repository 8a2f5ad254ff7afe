package results

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	cevents "github.com/matchpool/matchpool/pkg/contracts/events"
)

// WSClient consome o feed externo de resultados via WebSocket e alimenta o
// Store. Em caso de desconexão, reconecta automaticamente com backoff.
type WSClient struct {
	URL   string
	Log   *zap.Logger
	Store *Store
}

// Start inicia o loop de conexão e escuta do WebSocket
func (c *WSClient) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			c.Log.Info("context canceled, stopping result feed client")
			return
		default:
			if err := c.connectAndListen(ctx); err != nil {
				c.Log.Warn("result feed connection closed", zap.Error(err))
				time.Sleep(3 * time.Second)
			}
		}
	}
}

func (c *WSClient) connectAndListen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	c.Log.Info("connected to result feed", zap.String("url", c.URL))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		var res cevents.MatchResult
		if err := json.Unmarshal(message, &res); err != nil {
			c.Log.Warn("invalid result message", zap.Error(err))
			continue
		}
		if res.MatchID == "" || res.Result == "" {
			continue
		}
		c.Store.Set(res.MatchID, res.Result)
		c.Log.Debug("result received",
			zap.String("match_id", res.MatchID),
			zap.String("result", res.Result))
	}
}
