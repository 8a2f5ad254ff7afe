package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/matchpool/matchpool/internal/betting"
)

// Postgres implementa os repositórios do núcleo (mesas, partidas, pools)
// em banco Postgres. Agregados são sempre carregados completos: mesa com
// memberships, partida com apostas e pool.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// translate converte erros do driver em erros de domínio
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return betting.Conflict("uniqueness violation: %s", pqErr.Constraint)
	}
	return betting.StorageError(err)
}

func scanAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, betting.StorageError(err)
	}
	return d, nil
}

// ---- tables ----

func (p *Postgres) CreateTable(ctx context.Context, t *betting.Table) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return betting.StorageError(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tables (id, name, password_hash, max_players, stake, creator_id, private, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.Name, t.PasswordHash, t.MaxPlayers, t.Stake.StringFixed(2), t.CreatorID, t.Private, t.CreatedAt,
	); err != nil {
		return translate(err)
	}
	if err := insertMemberships(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return betting.StorageError(err)
	}
	return nil
}

func insertMemberships(ctx context.Context, tx *sql.Tx, t *betting.Table) error {
	for _, m := range t.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO memberships (user_id, table_id, is_admin, joined_at)
			VALUES ($1,$2,$3,$4)`,
			m.UserID, m.TableID, m.Admin, m.JoinedAt,
		); err != nil {
			return translate(err)
		}
	}
	return nil
}

func (p *Postgres) TableByID(ctx context.Context, id string) (*betting.Table, error) {
	return p.tableBy(ctx, `WHERE id = $1`, id)
}

func (p *Postgres) TableByName(ctx context.Context, name string) (*betting.Table, error) {
	return p.tableBy(ctx, `WHERE name = $1`, name)
}

func (p *Postgres) tableBy(ctx context.Context, where string, arg any) (*betting.Table, error) {
	var (
		t     betting.Table
		stake string
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, password_hash, max_players, stake, creator_id, private, created_at
		FROM tables `+where,
		arg,
	).Scan(&t.ID, &t.Name, &t.PasswordHash, &t.MaxPlayers, &stake, &t.CreatorID, &t.Private, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, betting.NotFound("table %v not found", arg)
	}
	if err != nil {
		return nil, betting.StorageError(err)
	}
	if t.Stake, err = scanAmount(stake); err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT user_id, table_id, is_admin, joined_at
		FROM memberships WHERE table_id = $1 ORDER BY joined_at, user_id`, t.ID)
	if err != nil {
		return nil, betting.StorageError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var m betting.Membership
		if err := rows.Scan(&m.UserID, &m.TableID, &m.Admin, &m.JoinedAt); err != nil {
			return nil, betting.StorageError(err)
		}
		t.Members = append(t.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, betting.StorageError(err)
	}
	return &t, nil
}

// UpdateTable regrava o agregado: linha da mesa e o conjunto de memberships
func (p *Postgres) UpdateTable(ctx context.Context, t *betting.Table) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return betting.StorageError(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE tables SET name=$2, password_hash=$3, max_players=$4, stake=$5, private=$6
		WHERE id=$1`,
		t.ID, t.Name, t.PasswordHash, t.MaxPlayers, t.Stake.StringFixed(2), t.Private,
	); err != nil {
		return translate(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memberships WHERE table_id = $1`, t.ID); err != nil {
		return translate(err)
	}
	if err := insertMemberships(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return betting.StorageError(err)
	}
	return nil
}

func (p *Postgres) DeleteTable(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM tables WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return betting.NotFound("table %s not found", id)
	}
	return nil
}
