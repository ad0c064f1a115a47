// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package logging

import (
	"net/url"
	"strings"
)

// secretQueryParams are query parameters whose values never reach the logs.
// The CRM authenticates with ?apitoken=.
var secretQueryParams = []string{"apitoken", "token", "apikey", "api_key"}

// SanitizeToken keeps the first four characters of a credential.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "[REDACTED]"
	}
	return token[:4] + "...[REDACTED]"
}

// RedactURL masks credential query parameters in rawURL. Unparseable input
// is replaced wholesale so a malformed URL with a token cannot leak.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[UNPARSEABLE URL]"
	}

	q := u.Query()
	changed := false
	for key := range q {
		for _, secret := range secretQueryParams {
			if strings.EqualFold(key, secret) {
				q.Set(key, "REDACTED")
				changed = true
			}
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	return u.String()
}
