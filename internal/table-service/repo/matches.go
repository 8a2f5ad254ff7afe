package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/matchpool/matchpool/internal/betting"
)

func (p *Postgres) CreateMatch(ctx context.Context, m *betting.Match) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return betting.StorageError(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO matches (id, table_id, home_team, away_team, kickoff_at, status, result, creator_id, created_at, version)
		VALUES ($1,$2,$3,$4,$5,$6,NULL,$7,$8,$9)`,
		m.ID, m.TableID, m.HomeTeam, m.AwayTeam, m.KickoffAt, string(m.Status), m.CreatorID, m.CreatedAt, m.Version,
	); err != nil {
		return translate(err)
	}
	// o pool nasce junto com a partida, na mesma transação
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pools (id, match_id, amount, status, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		m.Pool.ID, m.ID, m.Pool.Amount.StringFixed(2), string(m.Pool.Status), m.Pool.CreatedAt,
	); err != nil {
		return translate(err)
	}
	if err := tx.Commit(); err != nil {
		return betting.StorageError(err)
	}
	return nil
}

func (p *Postgres) MatchByID(ctx context.Context, id string) (*betting.Match, error) {
	var (
		m      betting.Match
		status string
		result sql.NullString
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, table_id, home_team, away_team, kickoff_at, status, result, creator_id, created_at, version
		FROM matches WHERE id = $1`, id,
	).Scan(&m.ID, &m.TableID, &m.HomeTeam, &m.AwayTeam, &m.KickoffAt, &status, &result, &m.CreatorID, &m.CreatedAt, &m.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, betting.NotFound("match %s not found", id)
	}
	if err != nil {
		return nil, betting.StorageError(err)
	}
	m.Status = betting.MatchStatus(status)
	if result.Valid {
		res, err := betting.ParseResult(result.String)
		if err != nil {
			return nil, betting.StorageError(err)
		}
		m.Result = res
	}

	if err := p.loadBets(ctx, &m); err != nil {
		return nil, err
	}
	if err := p.loadPool(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (p *Postgres) loadBets(ctx context.Context, m *betting.Match) error {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, match_id, user_id, prediction, winner, edited_at
		FROM bets WHERE match_id = $1 ORDER BY edited_at, user_id`, m.ID)
	if err != nil {
		return betting.StorageError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			b   betting.Bet
			raw string
		)
		if err := rows.Scan(&b.ID, &b.MatchID, &b.UserID, &raw, &b.Winner, &b.EditedAt); err != nil {
			return betting.StorageError(err)
		}
		if b.Prediction, err = betting.ParsePrediction(raw); err != nil {
			return betting.StorageError(err)
		}
		m.Bets = append(m.Bets, b)
	}
	return rows.Err()
}

func (p *Postgres) loadPool(ctx context.Context, m *betting.Match) error {
	var (
		amount string
		status string
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, match_id, amount, status, created_at
		FROM pools WHERE match_id = $1`, m.ID,
	).Scan(&m.Pool.ID, &m.Pool.MatchID, &amount, &status, &m.Pool.CreatedAt)
	if err != nil {
		return betting.StorageError(err)
	}
	m.Pool.Status = betting.PoolStatus(status)
	if m.Pool.Amount, err = scanAmount(amount); err != nil {
		return err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, amount FROM payouts WHERE pool_id = $1 ORDER BY position`, m.Pool.ID)
	if err != nil {
		return betting.StorageError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pay betting.Payout
			raw string
		)
		if err := rows.Scan(&pay.UserID, &raw); err != nil {
			return betting.StorageError(err)
		}
		if pay.Amount, err = scanAmount(raw); err != nil {
			return err
		}
		m.Pool.Payouts = append(m.Pool.Payouts, pay)
	}
	return rows.Err()
}

func (p *Postgres) MatchesByTable(ctx context.Context, tableID string) ([]*betting.Match, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id FROM matches WHERE table_id = $1 ORDER BY kickoff_at`, tableID)
	if err != nil {
		return nil, betting.StorageError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, betting.StorageError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, betting.StorageError(err)
	}

	matches := make([]*betting.Match, 0, len(ids))
	for _, id := range ids {
		m, err := p.MatchByID(ctx, id)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (p *Postgres) DueToStart(ctx context.Context, now time.Time) ([]string, error) {
	return p.matchIDs(ctx, `
		SELECT id FROM matches
		WHERE status = $1 AND kickoff_at <= $2 ORDER BY kickoff_at`,
		string(betting.MatchScheduled), now)
}

func (p *Postgres) DueToFinish(ctx context.Context, now time.Time, grace time.Duration) ([]string, error) {
	return p.matchIDs(ctx, `
		SELECT id FROM matches
		WHERE status = $1 AND kickoff_at <= $2 ORDER BY kickoff_at`,
		string(betting.MatchInProgress), now.Add(-grace))
}

func (p *Postgres) matchIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, betting.StorageError(err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, betting.StorageError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, betting.StorageError(err)
	}
	return ids, nil
}

// UpdateMatch regrava o agregado com compare-and-swap na coluna version:
// se outra escrita passou na frente, nenhuma linha é afetada e a operação
// volta como conflito para o chamador reavaliar.
func (p *Postgres) UpdateMatch(ctx context.Context, m *betting.Match) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return betting.StorageError(err)
	}
	defer tx.Rollback()

	if err := updateMatchTx(ctx, tx, m); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return betting.StorageError(err)
	}
	m.Version++
	return nil
}

// SettleMatch grava a partida liquidada e marca os pools absorvidos como
// consumidos na mesma transação. A troca de status exige que o pool ainda
// esteja ROLLOVER; zero linhas significa que outra liquidação o consumiu
// primeiro e tudo volta atrás como conflito.
func (p *Postgres) SettleMatch(ctx context.Context, m *betting.Match, absorbed []*betting.Pool) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return betting.StorageError(err)
	}
	defer tx.Rollback()

	for _, pool := range absorbed {
		res, err := tx.ExecContext(ctx, `
			UPDATE pools SET amount=$2, status=$3
			WHERE id=$1 AND status=$4`,
			pool.ID, pool.Amount.StringFixed(2), string(pool.Status), string(betting.PoolRollover),
		)
		if err != nil {
			return translate(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return betting.Conflict("pool %s was claimed by another settlement", pool.ID)
		}
	}
	if err := updateMatchTx(ctx, tx, m); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return betting.StorageError(err)
	}
	m.Version++
	return nil
}

func updateMatchTx(ctx context.Context, tx *sql.Tx, m *betting.Match) error {
	var result any
	if !m.Result.IsZero() {
		result = m.Result.String()
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE matches
		SET home_team=$2, away_team=$3, kickoff_at=$4, status=$5, result=$6, version=version+1
		WHERE id=$1 AND version=$7`,
		m.ID, m.HomeTeam, m.AwayTeam, m.KickoffAt, string(m.Status), result, m.Version,
	)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return betting.Conflict("match %s was modified concurrently", m.ID)
	}

	// apostas: upsert do conjunto atual e remoção das que saíram
	betIDs := make([]string, 0, len(m.Bets))
	for _, b := range m.Bets {
		betIDs = append(betIDs, b.ID)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bets (id, match_id, user_id, prediction, winner, edited_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (user_id, match_id) DO UPDATE SET
			  prediction = EXCLUDED.prediction,
			  winner     = EXCLUDED.winner,
			  edited_at  = EXCLUDED.edited_at`,
			b.ID, b.MatchID, b.UserID, b.Prediction.String(), b.Winner, b.EditedAt,
		); err != nil {
			return translate(err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM bets WHERE match_id = $1 AND id <> ALL($2)`,
		m.ID, pq.Array(betIDs),
	); err != nil {
		return translate(err)
	}

	return writePool(ctx, tx, &m.Pool)
}

func (p *Postgres) DeleteMatch(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return betting.NotFound("match %s not found", id)
	}
	return nil
}
