package ingest

import (
	"errors"
	"testing"
)

func TestParseReading(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
		wantErr error
	}{
		{"plain digit", "3", 3, nil},
		{"zero sentinel", "0", 0, nil},
		{"upper bound", "6", 6, nil},
		{"trailing newline", "4\n", 4, nil},
		{"surrounding whitespace", " \t5\r\n", 5, nil},
		{"text", "abc", 0, ErrMalformed},
		{"empty", "", 0, ErrMalformed},
		{"float", "2.0", 0, ErrMalformed},
		{"two numbers", "1 2", 0, ErrMalformed},
		{"negative", "-1", 0, ErrOutOfRange},
		{"above range", "7", 0, ErrOutOfRange},
		{"huge", "99999999999999999999", 0, ErrMalformed},
		{"invalid utf8", "\xff\xfe", 0, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReading([]byte(tt.payload), 6)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseReading(%q) error = %v, want %v", tt.payload, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReading(%q) unexpected error: %v", tt.payload, err)
			}
			if got != tt.want {
				t.Errorf("ParseReading(%q) = %d, want %d", tt.payload, got, tt.want)
			}
		})
	}
}

func TestParseReading_LongPayloadTruncatedInError(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	_, err := ParseReading(long, 6)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 80 {
		t.Errorf("error message not truncated: %d bytes", len(err.Error()))
	}
}
