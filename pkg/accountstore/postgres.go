// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accountstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/moov-io/accounts/pkg/accounts"

	"github.com/go-kit/kit/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
	     account_id  TEXT PRIMARY KEY,
	     email       TEXT NOT NULL,
	     clean_email TEXT NOT NULL,
	     created_on  TIMESTAMPTZ NOT NULL,
	     modified_on TIMESTAMPTZ NOT NULL,
	     data        JSONB NOT NULL
	 )`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_clean_email_idx ON accounts (clean_email)`,
}

const pgUniqueViolation = "23505"

// Postgres stores accounts in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to databaseURL and runs our migrations.
func NewPostgres(ctx context.Context, databaseURL string, logger log.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %v", err)
	}

	for i, m := range postgresMigrations {
		if _, err := pool.Exec(ctx, m); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: migration #%d had problem: %v", i, err)
		}
	}
	logger.Log("postgres", "finished migrations")

	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

func (s *Postgres) Insert(ctx context.Context, a *accounts.Account) error {
	const op = "postgres.Insert"
	bs, err := encode(a)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO accounts (account_id, email, clean_email, created_on, modified_on, data)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Email, emailKey(a.Email), a.CreatedOn, a.ModifiedOn, bs)
	return failure(op, pgConstraint(err))
}

func (s *Postgres) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	return s.queryOne(ctx, "postgres.FindByID", `SELECT data FROM accounts WHERE account_id = $1`, id)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	return s.queryOne(ctx, "postgres.FindByEmail", `SELECT data FROM accounts WHERE clean_email = $1`, emailKey(email))
}

func (s *Postgres) queryOne(ctx context.Context, op, query, arg string) (*accounts.Account, error) {
	var data []byte
	if err := s.pool.QueryRow(ctx, query, arg).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, failure(op, err)
	}
	a, err := decode(data)
	if err != nil {
		return nil, failure(op, err)
	}
	return a, nil
}

func (s *Postgres) Update(ctx context.Context, a *accounts.Account) error {
	const op = "postgres.Update"
	bs, err := encode(a)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET email = $1, clean_email = $2, modified_on = $3, data = $4 WHERE account_id = $5`,
		a.Email, emailKey(a.Email), a.ModifiedOn, bs, a.ID)
	if err != nil {
		return failure(op, pgConstraint(err))
	}
	if tag.RowsAffected() == 0 {
		return failure(op, fmt.Errorf("account %s: %w", a.ID, accounts.ErrAccountNotFound))
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, a *accounts.Account) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE account_id = $1`, a.ID)
	return failure("postgres.Delete", err)
}

// pgConstraint maps unique violations onto our sentinels.
func pgConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	if pgErr.ConstraintName == "accounts_pkey" {
		return errDuplicateID
	}
	return accounts.ErrEmailTaken
}
