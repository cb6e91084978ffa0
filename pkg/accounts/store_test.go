// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"context"
	"errors"
	"sync"
)

// memStore is a map backed Store for service tests.
type memStore struct {
	mu       sync.Mutex
	accounts map[string]Account

	err error // returned by every call when set
}

func newMemStore() *memStore {
	return &memStore{accounts: make(map[string]Account)}
}

func (m *memStore) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return StorageFailure(op, err)
	}
	return StorageFailure(op, m.err)
}

func (m *memStore) Insert(ctx context.Context, a *Account) error {
	if err := m.check(ctx, "mem.Insert"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[a.ID]; exists {
		return errors.New("duplicate id")
	}
	for _, other := range m.accounts {
		if CleanEmail(other.Email) == CleanEmail(a.Email) {
			return ErrEmailTaken
		}
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *memStore) FindByID(ctx context.Context, id string) (*Account, error) {
	if err := m.check(ctx, "mem.FindByID"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	if err := m.check(ctx, "mem.FindByEmail"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if CleanEmail(a.Email) == CleanEmail(email) {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *memStore) Update(ctx context.Context, a *Account) error {
	if err := m.check(ctx, "mem.Update"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[a.ID]; !exists {
		return ErrAccountNotFound
	}
	m.accounts[a.ID] = *a
	return nil
}

func (m *memStore) Delete(ctx context.Context, a *Account) error {
	if err := m.check(ctx, "mem.Delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.accounts, a.ID)
	return nil
}

// deletingStore removes each account right before updating it, like a
// concurrent Delete landing between the read and the write.
type deletingStore struct {
	*memStore
}

func (d deletingStore) Update(ctx context.Context, a *Account) error {
	if err := d.memStore.Delete(ctx, a); err != nil {
		return err
	}
	return d.memStore.Update(ctx, a)
}
