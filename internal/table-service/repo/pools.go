package repo

import (
	"context"
	"database/sql"

	"github.com/matchpool/matchpool/internal/betting"
)

// UnclaimedRollovers lista os pools ROLLOVER da mesa ainda não consumidos,
// na ordem de kickoff das partidas donas (regra de "próxima partida")
func (p *Postgres) UnclaimedRollovers(ctx context.Context, tableID string) ([]*betting.Pool, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT po.id, po.match_id, po.amount, po.status, po.created_at
		FROM pools po
		JOIN matches m ON m.id = po.match_id
		WHERE m.table_id = $1 AND po.status = $2
		ORDER BY m.kickoff_at`,
		tableID, string(betting.PoolRollover))
	if err != nil {
		return nil, betting.StorageError(err)
	}
	defer rows.Close()

	var pools []*betting.Pool
	for rows.Next() {
		var (
			pool   betting.Pool
			amount string
			status string
		)
		if err := rows.Scan(&pool.ID, &pool.MatchID, &amount, &status, &pool.CreatedAt); err != nil {
			return nil, betting.StorageError(err)
		}
		pool.Status = betting.PoolStatus(status)
		if pool.Amount, err = scanAmount(amount); err != nil {
			return nil, err
		}
		pools = append(pools, &pool)
	}
	if err := rows.Err(); err != nil {
		return nil, betting.StorageError(err)
	}
	return pools, nil
}

// writePool regrava a linha do pool e o conjunto ordenado de payouts
func writePool(ctx context.Context, tx *sql.Tx, pool *betting.Pool) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE pools SET amount=$2, status=$3 WHERE id=$1`,
		pool.ID, pool.Amount.StringFixed(2), string(pool.Status),
	); err != nil {
		return translate(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM payouts WHERE pool_id = $1`, pool.ID); err != nil {
		return translate(err)
	}
	for i, pay := range pool.Payouts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO payouts (pool_id, user_id, amount, position)
			VALUES ($1,$2,$3,$4)`,
			pool.ID, pay.UserID, pay.Amount.StringFixed(2), i,
		); err != nil {
			return translate(err)
		}
	}
	return nil
}
