// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accountstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moov-io/accounts/pkg/accounts"

	"github.com/redis/go-redis/v9"
)

// Redis stores accounts in redis.
//
// Keys:
//
//	accounts:<id>             JSON document
//	accounts:email:<clean>    account id, claimed with SETNX
type Redis struct {
	client redis.UniversalClient
}

// NewRedis connects to addr and pings it.
func NewRedis(ctx context.Context, addr, password string) (*Redis, error) {
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,

		// the caller owns retries
		MaxRetries: -1,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisFromClient(client), nil
}

// NewRedisFromClient wraps an existing client (single node or cluster).
func NewRedisFromClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Close() error {
	return s.client.Close()
}

func redisAccountKey(id string) string {
	return "accounts:" + id
}

func redisEmailKey(email string) string {
	return "accounts:email:" + emailKey(email)
}

func (s *Redis) Insert(ctx context.Context, a *accounts.Account) error {
	const op = "redis.Insert"
	bs, err := encode(a)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	claimed, err := s.client.SetNX(ctx, redisEmailKey(a.Email), a.ID, 0).Result()
	if err != nil {
		return failure(op, err)
	}
	if !claimed {
		return failure(op, accounts.ErrEmailTaken)
	}

	created, err := s.client.SetNX(ctx, redisAccountKey(a.ID), bs, 0).Result()
	if err == nil && !created {
		err = errDuplicateID
	}
	if err != nil {
		s.release(redisEmailKey(a.Email), a.ID)
		return failure(op, err)
	}
	return nil
}

func (s *Redis) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	const op = "redis.FindByID"
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, failure(op, err)
	}
	return a, nil
}

func (s *Redis) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	const op = "redis.FindByEmail"
	id, err := s.client.Get(ctx, redisEmailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, failure(op, err)
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, failure(op, err)
	}
	return a, nil
}

func (s *Redis) get(ctx context.Context, id string) (*accounts.Account, error) {
	bs, err := s.client.Get(ctx, redisAccountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return decode(bs)
}

func (s *Redis) Update(ctx context.Context, a *accounts.Account) error {
	const op = "redis.Update"
	bs, err := encode(a)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	existing, err := s.get(ctx, a.ID)
	if err != nil {
		return failure(op, err)
	}
	if existing == nil {
		return failure(op, fmt.Errorf("account %s: %w", a.ID, accounts.ErrAccountNotFound))
	}

	moved := emailKey(existing.Email) != emailKey(a.Email)
	if moved {
		claimed, err := s.client.SetNX(ctx, redisEmailKey(a.Email), a.ID, 0).Result()
		if err != nil {
			return failure(op, err)
		}
		if !claimed {
			return failure(op, accounts.ErrEmailTaken)
		}
	}

	// XX so a concurrent delete isn't resurrected
	written, err := s.client.SetXX(ctx, redisAccountKey(a.ID), bs, 0).Result()
	if errors.Is(err, redis.Nil) {
		written, err = false, nil
	}
	if err == nil && !written {
		err = fmt.Errorf("account %s: %w", a.ID, accounts.ErrAccountNotFound)
	}
	if err != nil {
		if moved {
			s.release(redisEmailKey(a.Email), a.ID)
		}
		return failure(op, err)
	}

	if moved {
		s.release(redisEmailKey(existing.Email), a.ID)
	}
	return nil
}

// release drops an email claim if it still points at id. It uses a fresh
// context so a done request can't leave the claim behind.
func (s *Redis) release(key, id string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if owner, err := s.client.Get(ctx, key).Result(); err == nil && owner == id {
		s.client.Del(ctx, key)
	}
}

func (s *Redis) Delete(ctx context.Context, a *accounts.Account) error {
	const op = "redis.Delete"
	existing, err := s.get(ctx, a.ID)
	if err != nil {
		return failure(op, err)
	}
	if existing == nil {
		return nil
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redisAccountKey(a.ID))
		pipe.Del(ctx, redisEmailKey(existing.Email))
		return nil
	})
	return failure(op, err)
}
