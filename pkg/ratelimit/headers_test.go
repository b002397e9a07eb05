package ratelimit

import (
	"net/http"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		name          string
		headers       map[string]string
		expectOK      bool
		expectedState BucketState
	}{
		{
			name: "all headers present",
			headers: map[string]string{
				HeaderBucketSize:        "100",
				HeaderMarblesInBucket:   "42",
				HeaderRemainingRequests: "58",
			},
			expectOK:      true,
			expectedState: BucketState{Size: 100, Marbles: 42, Remaining: 58},
		},
		{
			name: "bucket size missing",
			headers: map[string]string{
				HeaderMarblesInBucket:   "42",
				HeaderRemainingRequests: "58",
			},
			expectOK: false,
		},
		{
			name: "marbles missing",
			headers: map[string]string{
				HeaderBucketSize:        "100",
				HeaderRemainingRequests: "58",
			},
			expectOK: false,
		},
		{
			name: "remaining missing",
			headers: map[string]string{
				HeaderBucketSize:      "100",
				HeaderMarblesInBucket: "42",
			},
			expectOK: false,
		},
		{
			name: "non-numeric value",
			headers: map[string]string{
				HeaderBucketSize:        "100",
				HeaderMarblesInBucket:   "lots",
				HeaderRemainingRequests: "58",
			},
			expectOK: false,
		},
		{
			name:     "no headers at all",
			headers:  map[string]string{},
			expectOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			state, ok := ParseHeaders(headers)
			if ok != tt.expectOK {
				t.Fatalf("ParseHeaders() ok = %v, want %v", ok, tt.expectOK)
			}
			if !tt.expectOK {
				if state != nil {
					t.Errorf("ParseHeaders() state = %+v, want nil on failed parse", state)
				}
				return
			}

			if *state != tt.expectedState {
				t.Errorf("ParseHeaders() = %+v, want %+v", *state, tt.expectedState)
			}
		})
	}
}
