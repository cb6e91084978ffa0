// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accountstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/moov-io/accounts/pkg/accounts"

	"github.com/go-kit/kit/log"
	kitprom "github.com/go-kit/kit/metrics/prometheus"
	"github.com/mattn/go-sqlite3"
	stdprom "github.com/prometheus/client_golang/prometheus"
)

var (
	// sqliteMigrations holds all our SQL migrations to be done (in order)
	sqliteMigrations = []string{
		`create table if not exists accounts(account_id primary key, email not null, clean_email not null, created_on timestamp, modified_on timestamp, data not null);`,
		`create unique index if not exists accounts_clean_email_idx on accounts (clean_email);`,
	}

	// Metrics
	sqliteConnections = kitprom.NewGaugeFrom(stdprom.GaugeOpts{
		Name: "sqlite_connections",
		Help: "How many sqlite connections and what status they're in.",
	}, []string{"state"})
)

// SQLite stores accounts in a sqlite3 database.
type SQLite struct {
	db     *sql.DB
	logger log.Logger

	done chan struct{}
}

// NewSQLite opens the database at path and runs our migrations over it.
//
// You use db like any other database/sql driver.
//
// https://github.com/mattn/go-sqlite3/blob/master/_example/simple/simple.go
func NewSQLite(ctx context.Context, path string, logger log.Logger) (*SQLite, error) {
	if path == "" {
		path = "accounts.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		err = fmt.Errorf("problem opening sqlite3 file: %v", err)
		logger.Log("sqlite", err)
		return nil, err
	}

	s := &SQLite{
		db:     db,
		logger: logger,
		done:   make(chan struct{}),
	}
	if err := s.migrate(ctx, path); err != nil {
		db.Close()
		return nil, err
	}

	go s.collectMetrics(10 * time.Second)

	return s, nil
}

func (s *SQLite) migrate(ctx context.Context, path string) error {
	s.logger.Log("sqlite", fmt.Sprintf("migrating %s", path))
	for i := range sqliteMigrations {
		row := sqliteMigrations[i]
		res, err := s.db.ExecContext(ctx, row)
		if err != nil {
			return fmt.Errorf("migration #%d [%s...] had problem: %v", i, row[:40], err)
		}
		n, err := res.RowsAffected()
		if err == nil {
			s.logger.Log("sqlite", fmt.Sprintf("migration #%d [%s...] changed %d rows", i, row[:40], n))
		}
	}
	s.logger.Log("sqlite", "finished migrations")
	return nil
}

func (s *SQLite) collectMetrics(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		stats := s.db.Stats()
		sqliteConnections.With("state", "idle").Set(float64(stats.Idle))
		sqliteConnections.With("state", "inuse").Set(float64(stats.InUse))
		sqliteConnections.With("state", "open").Set(float64(stats.OpenConnections))

		select {
		case <-s.done:
			return
		case <-t.C:
		}
	}
}

func (s *SQLite) Close() error {
	close(s.done)
	return s.db.Close()
}

func (s *SQLite) Insert(ctx context.Context, a *accounts.Account) error {
	const op = "sqlite.Insert"
	bs, err := encode(a)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	_, err = s.db.ExecContext(ctx,
		`insert into accounts (account_id, email, clean_email, created_on, modified_on, data) values (?, ?, ?, ?, ?, ?);`,
		a.ID, a.Email, emailKey(a.Email), a.CreatedOn, a.ModifiedOn, string(bs))
	return failure(op, sqliteConstraint(err))
}

func (s *SQLite) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	return s.queryOne(ctx, "sqlite.FindByID", `select data from accounts where account_id = ? limit 1;`, id)
}

func (s *SQLite) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	return s.queryOne(ctx, "sqlite.FindByEmail", `select data from accounts where clean_email = ? limit 1;`, emailKey(email))
}

func (s *SQLite) queryOne(ctx context.Context, op, query string, arg string) (*accounts.Account, error) {
	var data string
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, failure(op, err)
	}
	a, err := decode([]byte(data))
	if err != nil {
		return nil, failure(op, err)
	}
	return a, nil
}

func (s *SQLite) Update(ctx context.Context, a *accounts.Account) error {
	const op = "sqlite.Update"
	bs, err := encode(a)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	res, err := s.db.ExecContext(ctx,
		`update accounts set email = ?, clean_email = ?, modified_on = ?, data = ? where account_id = ?;`,
		a.Email, emailKey(a.Email), a.ModifiedOn, string(bs), a.ID)
	if err != nil {
		return failure(op, sqliteConstraint(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return failure(op, fmt.Errorf("account %s: %w", a.ID, accounts.ErrAccountNotFound))
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, a *accounts.Account) error {
	_, err := s.db.ExecContext(ctx, `delete from accounts where account_id = ?;`, a.ID)
	return failure("sqlite.Delete", err)
}

// sqliteConstraint maps unique violations onto our sentinels.
func sqliteConstraint(err error) error {
	var serr sqlite3.Error
	if !errors.As(err, &serr) {
		return err
	}
	switch serr.ExtendedCode {
	case sqlite3.ErrConstraintUnique:
		return accounts.ErrEmailTaken
	case sqlite3.ErrConstraintPrimaryKey:
		return errDuplicateID
	}
	return err
}
