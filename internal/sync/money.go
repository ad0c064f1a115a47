// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-json"
)

// parseMoney reads the CRM value field, which is either a JSON number or a
// locale-formatted string. It returns 0 for null, absent or unparseable
// input and never panics. The result is rounded to two decimals.
func parseMoney(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		return parseMoneyString(s)
	}

	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return roundCents(f)
}

// parseMoneyString parses amounts such as "1.234,56", "1,234.56",
// "R$ 1.234,56", "1234,5" or "1.234".
//
// A letter after the first digit makes the string unparseable ("1e3",
// "12abc"). Rules, applied after dropping everything but digits, '.' and ',':
//   - both separators present: the last one is the decimal separator
//   - one kind repeated: it groups thousands
//   - a single separator groups thousands only when exactly three digits
//     follow and the leading group is 1-3 digits other than "0"; otherwise
//     it is decimal ("0.500", "1234,5")
func parseMoneyString(s string) float64 {
	s = strings.TrimSpace(s)

	// A '-' before the first digit is a sign ("-10,00", "R$ -10,00").
	firstDigit := strings.IndexAny(s, "0123456789")
	if firstDigit < 0 {
		return 0
	}
	negative := strings.Contains(s[:firstDigit], "-")

	start := firstDigit
	if start > 0 && (s[start-1] == '.' || s[start-1] == ',') {
		start-- // ",50"
	}

	var b strings.Builder
	for _, r := range s[start:] {
		switch {
		case (r >= '0' && r <= '9') || r == '.' || r == ',':
			b.WriteRune(r)
		case unicode.IsLetter(r):
			return 0
		}
	}
	cleaned := strings.TrimRight(b.String(), ".,")

	normalized := normalizeSeparators(cleaned)
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0
	}
	if negative {
		f = -f
	}
	return roundCents(f)
}

// normalizeSeparators rewrites a digits-and-separators string into the
// dot-decimal form strconv understands.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")

	case lastComma >= 0:
		if strings.Count(s, ",") > 1 || groupsThousands(s, lastComma) {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)

	case lastDot >= 0:
		if strings.Count(s, ".") > 1 || groupsThousands(s, lastDot) {
			return strings.ReplaceAll(s, ".", "")
		}
		return s

	default:
		return s
	}
}

// groupsThousands reports whether the only separator in s, at index sep,
// reads as a thousands separator ("1.234", "12,500") rather than a decimal
// one ("0.500", "1234.567").
func groupsThousands(s string, sep int) bool {
	lead := s[:sep]
	if len(s)-sep-1 != 3 || len(lead) < 1 || len(lead) > 3 {
		return false
	}
	return strings.TrimLeft(lead, "0") != ""
}

func roundCents(f float64) float64 {
	return math.Round(f*100) / 100
}
