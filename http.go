// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/moov-io/accounts/pkg/accounts"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/gorilla/mux"
)

const (
	// maxReadBytes is the number of bytes to read
	// from a request body. It's intended to be used
	// with an io.LimitReader
	maxReadBytes = 1 * 1024 * 1024

	// requestTimeout bounds every store call made on behalf of a request.
	requestTimeout = 10 * time.Second
)

// read consumes an io.Reader (wrapping with io.LimitReader)
// and returns either the resulting bytes or a non-nil error.
func read(r io.Reader) ([]byte, error) {
	r = io.LimitReader(r, maxReadBytes)
	return io.ReadAll(r)
}

// encodeError JSON encodes msg under the "error" key and writes status.
//
// Only fixed, caller-safe messages belong here. Error details go to the
// logger (see failure).
func encodeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": msg,
	})
}

// failure logs err with everything we know and answers "400 Bad Request"
// with msg only.
func failure(logger log.Logger, w http.ResponseWriter, err error, component, msg string) {
	internalServerErrors.Add(1)
	level.Error(logger).Log(component, msg, "error", err, "retryable", accounts.IsRetryable(err))
	encodeError(w, http.StatusBadRequest, msg)
}

// encodeAccount writes a sanitized view of a.
func encodeAccount(w http.ResponseWriter, a *accounts.Account) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(accounts.Sanitize(a))
}

func addPingRoute(router *mux.Router) {
	router.Methods("GET").Path("/ping").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("PONG"))
	})
}
