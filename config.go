// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/moov-io/accounts/pkg/accountstore"
	"github.com/moov-io/accounts/pkg/credentials"

	"github.com/joho/godotenv"
)

// config is read from the environment once at startup.
type config struct {
	PrivateSalt          string
	CredentialIterations int
	Store                accountstore.Config
}

var errMissingPrivateSalt = errors.New("PRIVATE_SALT is required")

// loadDotEnv reads path into the environment when it exists. Variables
// already set win.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// readConfig builds a config from getenv (usually os.Getenv).
func readConfig(getenv func(string) string) (*config, error) {
	cfg := &config{
		PrivateSalt:          getenv("PRIVATE_SALT"),
		CredentialIterations: credentials.LegacyIterations,
		Store: accountstore.Config{
			Kind:          getenv("ACCOUNT_STORE"),
			BuntDBPath:    getenv("BUNTDB_PATH"),
			SQLitePath:    getenv("SQLITE_DB_PATH"),
			RedisAddr:     getenv("REDIS_ADDR"),
			RedisPassword: getenv("REDIS_PASSWORD"),
			DatabaseURL:   getenv("DATABASE_URL"),
		},
	}
	if cfg.PrivateSalt == "" {
		return nil, errMissingPrivateSalt
	}
	if v := getenv("CREDENTIAL_ITERATIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid CREDENTIAL_ITERATIONS %q", v)
		}
		cfg.CredentialIterations = n
	}
	return cfg, nil
}

// hasher builds the credentials.Hasher described by cfg.
func (cfg *config) hasher() (*credentials.Hasher, error) {
	return credentials.New(cfg.PrivateSalt, credentials.WithIterations(cfg.CredentialIterations))
}
