// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/moov-io/accounts/pkg/accounts"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"
)

func TestHTTP__read(t *testing.T) {
	bs, err := read(strings.NewReader("hello"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(bs))

	// bodies are truncated at maxReadBytes
	bs, err = read(bytes.NewReader(make([]byte, maxReadBytes+100)))
	require.NoError(t, err)
	require.Len(t, bs, maxReadBytes)
}

func TestHTTP__failure(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewLogfmtLogger(&buf)

	w := httptest.NewRecorder()
	failure(logger, w, errors.New("sql: database is locked"), "getAccount", fetchFailedMessage)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, map[string]string{"error": fetchFailedMessage}, resp)

	// the detail only goes to the log
	require.Contains(t, buf.String(), "database is locked")
	require.Contains(t, buf.String(), "level=error")
}

func TestHTTP__encodeAccount(t *testing.T) {
	w := httptest.NewRecorder()
	a := &accounts.Account{ID: "abc", Email: "jane@example.com", CredentialHash: "hash", CredentialSalt: "salt"}
	require.NoError(t, encodeAccount(w, a))

	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "hash")
	require.NotContains(t, w.Body.String(), "salt")
	require.Equal(t, "hash", a.CredentialHash) // caller's copy is untouched
}

func TestHTTP__ping(t *testing.T) {
	router := setupTestRouter(t, brokenService{})

	w := do(t, router, "GET", "/ping", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "PONG", w.Body.String())
}
