// Funnelsync - CRM Opportunity Synchronization Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/funnelsync

package sync

import (
	"errors"
	"fmt"
	"io"
)

var (
	// ErrMapping marks a source record that cannot be flattened safely.
	ErrMapping = errors.New("mapping error")

	// ErrInvalidPageSize is returned for page sizes outside [1, 100].
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

// MaxPageSize is the largest page the CRM serves.
const MaxPageSize = 100

// HTTPStatusError is returned when a remote answers with a non-2xx status.
type HTTPStatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// maxErrorBodySize limits the maximum amount of response body read for error reporting.
const maxErrorBodySize = 64 * 1024

// readBodyForError reads at most 64KB of a response body for error reporting.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

func validatePageSize(pageSize int) error {
	if pageSize < 1 || pageSize > MaxPageSize {
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, pageSize)
	}
	return nil
}
