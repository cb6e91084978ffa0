// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package accountstore implements accounts.Store over buntdb, sqlite,
// redis and postgres.
//
// Every backend keeps the full account as a JSON document and indexes it
// by ID and by accounts.CleanEmail(Email), the trimmed lowercase address.
// Email uniqueness is enforced by the backend itself, never by a
// read-then-write in the caller.
package accountstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/moov-io/accounts/pkg/accounts"

	"github.com/go-kit/kit/log"
)

// Store is an accounts.Store holding resources that need releasing.
type Store interface {
	accounts.Store
	io.Closer
}

var errDuplicateID = errors.New("account id already exists")

// Config selects and configures a backend.
type Config struct {
	// Kind is one of "buntdb" (default), "sqlite", "redis" or "postgres".
	Kind string

	BuntDBPath    string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	DatabaseURL   string
}

// Open returns the backend described by cfg.
func Open(ctx context.Context, cfg Config, logger log.Logger) (Store, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	switch strings.ToLower(cfg.Kind) {
	case "", "buntdb":
		return NewBuntDB(cfg.BuntDBPath)
	case "sqlite":
		return NewSQLite(ctx, cfg.SQLitePath, logger)
	case "redis":
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, logger)
	}
	return nil, fmt.Errorf("accountstore: unknown store %q", cfg.Kind)
}

func encode(a *accounts.Account) ([]byte, error) {
	return json.Marshal(a)
}

func decode(bs []byte) (*accounts.Account, error) {
	var a accounts.Account
	if err := json.Unmarshal(bs, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// emailKey returns the index key for an email, falling back to the
// lowercased input when it can't be cleaned so lookups still miss cleanly.
func emailKey(email string) string {
	if k := accounts.CleanEmail(email); k != "" {
		return k
	}
	return strings.ToLower(strings.TrimSpace(email))
}

// failure keeps the non-storage sentinels visible and wraps the rest.
func failure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, accounts.ErrEmailTaken) || errors.Is(err, accounts.ErrAccountNotFound) || errors.Is(err, errDuplicateID) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return accounts.StorageFailure(op, err)
}
