// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moov-io/accounts/pkg/accounts"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

// Messages returned to callers when an operation fails. The cause is
// only ever logged.
const (
	createFailedMessage = "Error occurred while creating user. Our staff has been notified."
	fetchFailedMessage  = "Error occurred while fetching user. Our staff has been notified."
	updateFailedMessage = "Error occurred while updating user. Our staff has been notified."
	deleteFailedMessage = "Error occurred while deleting user. Our staff has been notified."
)

// accountService is the part of *accounts.Service our routes call.
type accountService interface {
	Create(ctx context.Context, email, password string) (*accounts.Account, error)
	Get(ctx context.Context, id string) (*accounts.Account, error)
	GetByEmail(ctx context.Context, email string) (*accounts.Account, error)
	Update(ctx context.Context, id string, u accounts.Update) (*accounts.Account, error)
	Delete(ctx context.Context, id string) (bool, error)
	Authenticate(ctx context.Context, email, password string) (*accounts.Account, error)
}

type createAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var errNoBody = errors.New("missing request body")

func addAccountRoutes(router *mux.Router, logger log.Logger, svc accountService) {
	router.Methods("POST").Path("/accounts").HandlerFunc(createAccountRoute(logger, svc))
	router.Methods("GET").Path("/accounts").Queries("email", "{email}").HandlerFunc(getAccountByEmailRoute(logger, svc))
	router.Methods("GET").Path("/accounts/{accountId}").HandlerFunc(getAccountRoute(logger, svc))
	router.Methods("PATCH").Path("/accounts/{accountId}").HandlerFunc(updateAccountRoute(logger, svc))
	router.Methods("DELETE").Path("/accounts/{accountId}").HandlerFunc(deleteAccountRoute(logger, svc))
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errNoBody
	}
	bs, err := read(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(bs, v)
}

func createAccountRoute(logger log.Logger, svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAccountRequest
		if err := decodeBody(r, &req); err != nil {
			failure(logger, w, err, "createAccount", createFailedMessage)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		a, err := svc.Create(ctx, req.Email, req.Password)
		if err != nil {
			failure(logger, w, err, "createAccount", createFailedMessage)
			return
		}
		accountsCreated.Add(1)

		if err := encodeAccount(w, a); err != nil {
			logger.Log("createAccount", err)
		}
	}
}

func getAccountRoute(logger log.Logger, svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		a, err := svc.Get(ctx, mux.Vars(r)["accountId"])
		if err != nil {
			failure(logger, w, err, "getAccount", fetchFailedMessage)
			return
		}
		if a == nil {
			http.NotFound(w, r)
			return
		}
		if err := encodeAccount(w, a); err != nil {
			logger.Log("getAccount", err)
		}
	}
}

func getAccountByEmailRoute(logger log.Logger, svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		a, err := svc.GetByEmail(ctx, r.URL.Query().Get("email"))
		if err != nil {
			failure(logger, w, err, "getAccountByEmail", fetchFailedMessage)
			return
		}
		if a == nil {
			http.NotFound(w, r)
			return
		}
		if err := encodeAccount(w, a); err != nil {
			logger.Log("getAccountByEmail", err)
		}
	}
}

func updateAccountRoute(logger log.Logger, svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req accounts.Update
		if err := decodeBody(r, &req); err != nil {
			failure(logger, w, err, "updateAccount", updateFailedMessage)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		a, err := svc.Update(ctx, mux.Vars(r)["accountId"], req)
		if err != nil {
			failure(logger, w, err, "updateAccount", updateFailedMessage)
			return
		}
		if a == nil {
			http.NotFound(w, r)
			return
		}
		if err := encodeAccount(w, a); err != nil {
			logger.Log("updateAccount", err)
		}
	}
}

func deleteAccountRoute(logger log.Logger, svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		deleted, err := svc.Delete(ctx, mux.Vars(r)["accountId"])
		if err != nil {
			failure(logger, w, err, "deleteAccount", deleteFailedMessage)
			return
		}
		if !deleted {
			http.NotFound(w, r)
			return
		}
		accountsDeleted.Add(1)
		w.WriteHeader(http.StatusOK)
	}
}
