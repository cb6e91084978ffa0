// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/moov-io/accounts/pkg/accounts"

	"github.com/go-kit/kit/log"
	"github.com/gorilla/mux"
)

const loginFailedMessage = "Error occurred while logging in. Our staff has been notified."

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func addLoginRoutes(router *mux.Router, logger log.Logger, svc accountService) {
	router.Methods("POST").Path("/accounts/login").HandlerFunc(loginRoute(logger, svc))
}

func loginRoute(logger log.Logger, svc accountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var login loginRequest
		if err := decodeBody(r, &login); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		a, err := svc.Authenticate(ctx, login.Email, login.Password)
		if err != nil && !errors.Is(err, accounts.ErrInvalidArgument) {
			failure(logger, w, err, "login", loginFailedMessage)
			return
		}
		if a == nil {
			// Mark this as a failure only because the user is involved
			// at this point. Bad json is their developer's problem.
			authFailures.With("method", "web").Add(1)
			recordLoginFailure(ctx, logger, svc, login.Email, remoteIP(r))
			w.WriteHeader(http.StatusForbidden)
			return
		}

		// success route, let's finish!
		authSuccesses.With("method", "web").Add(1)

		now := time.Now().UTC()
		zero := 0
		updated, err := svc.Update(ctx, a.ID, accounts.Update{
			LastLogin:         &now,
			LoginFailureCount: &zero,
		})
		if err != nil {
			logger.Log("login", "unable to record login", "accountId", a.ID, "error", err)
		} else if updated != nil {
			a = updated
		}

		if err := encodeAccount(w, a); err != nil {
			logger.Log("login", err)
		}
	}
}

// recordLoginFailure bumps the failure counters on the account behind
// email, if there is one.
func recordLoginFailure(ctx context.Context, logger log.Logger, svc accountService, email, ip string) {
	if email == "" {
		return
	}
	a, err := svc.GetByEmail(ctx, email)
	if err != nil || a == nil {
		return
	}

	count := 1
	if a.LoginFailureCount != nil {
		count = *a.LoginFailureCount + 1
	}
	now := time.Now().UTC()
	u := accounts.Update{
		LoginFailureCount: &count,
		LoginFailureOn:    &now,
	}
	if ip != "" {
		u.LoginFailureIPAddress = &ip
	}
	if _, err := svc.Update(ctx, a.ID, u); err != nil {
		logger.Log("login", "unable to record login failure", "accountId", a.ID, "error", err)
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
