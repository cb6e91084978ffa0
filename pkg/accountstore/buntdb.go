// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accountstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/moov-io/accounts/pkg/accounts"

	"github.com/tidwall/buntdb"
)

// BuntDB stores accounts in a buntdb file, or in memory for ":memory:".
//
// Keys:
//
//	account:<id>      JSON document
//	email:<clean>     account id
type BuntDB struct {
	db *buntdb.DB
}

// NewBuntDB opens (creating if needed) the buntdb file at path.
func NewBuntDB(path string) (*BuntDB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("buntdb: problem opening %s: %v", path, err)
	}
	return &BuntDB{db: db}, nil
}

func (s *BuntDB) Close() error {
	return s.db.Close()
}

func accountKey(id string) string {
	return fmt.Sprintf("account:%s", id)
}

func emailIndexKey(email string) string {
	return fmt.Sprintf("email:%s", emailKey(email))
}

func (s *BuntDB) Insert(ctx context.Context, a *accounts.Account) error {
	const op = "buntdb.Insert"
	if err := ctx.Err(); err != nil {
		return failure(op, err)
	}
	bs, err := encode(a)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	err = s.db.Update(func(tx *buntdb.Tx) error {
		if _, err := tx.Get(accountKey(a.ID)); err == nil {
			return errDuplicateID
		} else if !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}
		if _, err := tx.Get(emailIndexKey(a.Email)); err == nil {
			return accounts.ErrEmailTaken
		} else if !errors.Is(err, buntdb.ErrNotFound) {
			return err
		}

		if _, _, err := tx.Set(accountKey(a.ID), string(bs), nil); err != nil {
			return err
		}
		_, _, err := tx.Set(emailIndexKey(a.Email), a.ID, nil)
		return err
	})
	return failure(op, err)
}

func (s *BuntDB) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	const op = "buntdb.FindByID"
	if err := ctx.Err(); err != nil {
		return nil, failure(op, err)
	}

	var out *accounts.Account
	err := s.db.View(func(tx *buntdb.Tx) error {
		a, err := s.get(tx, id)
		out = a
		return err
	})
	if err != nil {
		return nil, failure(op, err)
	}
	return out, nil
}

func (s *BuntDB) FindByEmail(ctx context.Context, email string) (*accounts.Account, error) {
	const op = "buntdb.FindByEmail"
	if err := ctx.Err(); err != nil {
		return nil, failure(op, err)
	}

	var out *accounts.Account
	err := s.db.View(func(tx *buntdb.Tx) error {
		id, err := tx.Get(emailIndexKey(email))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return nil
			}
			return err
		}
		a, err := s.get(tx, id)
		out = a
		return err
	})
	if err != nil {
		return nil, failure(op, err)
	}
	return out, nil
}

// get reads account:<id>, returning nil when it doesn't exist.
func (s *BuntDB) get(tx *buntdb.Tx, id string) (*accounts.Account, error) {
	v, err := tx.Get(accountKey(id))
	if err != nil {
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return decode([]byte(v))
}

func (s *BuntDB) Update(ctx context.Context, a *accounts.Account) error {
	const op = "buntdb.Update"
	if err := ctx.Err(); err != nil {
		return failure(op, err)
	}
	bs, err := encode(a)
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}

	err = s.db.Update(func(tx *buntdb.Tx) error {
		existing, err := s.get(tx, a.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("account %s: %w", a.ID, accounts.ErrAccountNotFound)
		}
		if emailKey(existing.Email) != emailKey(a.Email) {
			if _, err := tx.Get(emailIndexKey(a.Email)); err == nil {
				return accounts.ErrEmailTaken
			}
			if _, err := tx.Delete(emailIndexKey(existing.Email)); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
			if _, _, err := tx.Set(emailIndexKey(a.Email), a.ID, nil); err != nil {
				return err
			}
		}
		_, _, err = tx.Set(accountKey(a.ID), string(bs), nil)
		return err
	})
	return failure(op, err)
}

func (s *BuntDB) Delete(ctx context.Context, a *accounts.Account) error {
	const op = "buntdb.Delete"
	if err := ctx.Err(); err != nil {
		return failure(op, err)
	}

	err := s.db.Update(func(tx *buntdb.Tx) error {
		existing, err := s.get(tx, a.ID)
		if err != nil || existing == nil {
			return err
		}
		if _, err := tx.Delete(accountKey(a.ID)); err != nil {
			return err
		}
		_, err = tx.Delete(emailIndexKey(existing.Email))
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		return err
	})
	return failure(op, err)
}
