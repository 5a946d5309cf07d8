package ingest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrMalformed is returned for payloads that are not a decimal integer.
	ErrMalformed = errors.New("malformed reading")
	// ErrOutOfRange is returned for integers outside [0, max].
	ErrOutOfRange = errors.New("reading out of range")
)

// maxPayload bounds how much of a datagram is quoted in a warning.
const maxPayload = 32

// ParseReading decodes a payload as a whitespace-trimmed base-10 integer in
// [0, max]. 0 is the sensor's "undefined" sentinel and is accepted here.
func ParseReading(payload []byte, max int) (int, error) {
	if !utf8.Valid(payload) {
		return 0, fmt.Errorf("%w: invalid UTF-8", ErrMalformed)
	}
	s := strings.TrimSpace(string(payload))
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, quoteable(s))
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, v, max)
	}
	return v, nil
}

func quoteable(s string) string {
	if len(s) <= maxPayload {
		return s
	}
	return s[:maxPayload] + "..."
}
