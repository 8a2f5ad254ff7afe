package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matchpool/matchpool/internal/shared/config"
	"github.com/matchpool/matchpool/internal/shared/logger"
	cevents "github.com/matchpool/matchpool/pkg/contracts/events"
)

var (
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	// Métricas Prometheus para conexões e mensagens do feed
	wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "result_feed_ws_connections",
		Help: "Clientes WebSocket conectados",
	})
	wsMessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "result_feed_ws_messages_sent_total",
		Help: "Total de resultados enviados",
	})
)

type clientConn struct {
	id   string
	conn *websocket.Conn
}

// hub gerencia os clientes conectados e faz broadcast dos resultados
type hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
	log     *zap.Logger
}

func newHub(log *zap.Logger) *hub {
	return &hub{clients: make(map[string]*clientConn), log: log}
}

func (h *hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	wsConnections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		_ = c.conn.Close()
		delete(h.clients, id)
		wsConnections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

func (h *hub) broadcast(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, c := range h.clients {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Warn("ws write failed", zap.String("client_id", id), zap.Error(err))
			continue
		}
		wsMessagesSent.Inc()
	}
}

// matchIDs lê o catálogo de partidas simuladas do ambiente
func matchIDs() []string {
	raw := os.Getenv("FEED_MATCH_IDS")
	if raw == "" {
		return []string{"MATCH_001", "MATCH_002", "MATCH_003", "MATCH_004"}
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	prometheus.MustRegister(wsConnections, wsMessagesSent)

	h := newHub(log)
	catalog := matchIDs()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Gerador: um placar plausível por partida a cada intervalo
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			id := catalog[rng.Intn(len(catalog))]
			res := cevents.MatchResult{
				MatchID:  id,
				Result:   fmt.Sprintf("%d:%d", rng.Intn(5), rng.Intn(5)),
				Source:   "result-feed-simulator",
				TsUnixMs: time.Now().UnixMilli(),
			}
			b, _ := json.Marshal(res)
			h.broadcast(b)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", zap.Error(err))
			return
		}
		c := &clientConn{id: uuid.NewString(), conn: conn}
		h.add(c)
		go func() {
			defer h.remove(c.id)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	// metrics/health na porta dedicada
	go func() {
		mmux := http.NewServeMux()
		mmux.Handle("/metrics", promhttp.Handler())
		mmux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health listening", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, mmux)
	}()

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("result-feed-simulator listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("ws server", zap.Error(err))
	}
}
