// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

// Package admin serves metrics, profiles and a liveness check on a
// listener separate from the accounts API.
package admin

import (
	"runtime"
)

// Init is the entrypoint into the admin package. It will
// configure the runtime for the profiles we serve.
func Init() error {
	if pprofProfileEnabled("block", pprofHandlers["block"]) {
		runtime.SetBlockProfileRate(1)
	}
	if pprofProfileEnabled("mutex", pprofHandlers["mutex"]) {
		runtime.SetMutexProfileFraction(1)
	}
	return nil
}
