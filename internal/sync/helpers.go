// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"strconv"
	"strings"
)

// stringToPtr converts a non-empty trimmed string to a pointer, nil otherwise.
func stringToPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// int64ToPtr converts a positive integer to a pointer, nil for zero or negative.
func int64ToPtr(i int64) *int64 {
	if i <= 0 {
		return nil
	}
	return &i
}

// scalarString renders a decoded JSON scalar as text. Objects, arrays and
// null yield "".
func scalarString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// scalarInt64 reads a decoded JSON number or numeric string as an id.
func scalarInt64(v interface{}) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
