// Copyright 2018 The ACH Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package accounts

import (
	"strings"
)

// CleanEmail returns the key an email address is unique under: the
// address trimmed and lowercased. Dots and "+tag" suffixes are kept, since
// most providers treat j.smith@ and jsmith@ as different mailboxes.
//
// An empty string is returned when the address isn't local@domain. Stores
// key their email lookups on this value, and CleanEmail(CleanEmail(x)) is
// CleanEmail(x).
func CleanEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	parts := strings.Split(email, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ""
	}
	return email
}
