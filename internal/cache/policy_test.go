package cache

import (
	"testing"
	"time"
)

func TestPolicy_BackoffSequence(t *testing.T) {
	p := QueryPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // would be 32s, capped
		{6, 30 * time.Second},
		{20, 30 * time.Second},
		{-1, 1 * time.Second}, // clamped to attempt 0
	}

	for _, tt := range tests {
		if got := p.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestPolicy_BackoffNeverExceedsCap(t *testing.T) {
	p := QueryPolicy()
	for attempt := 0; attempt <= 40; attempt++ {
		if got := p.Backoff(attempt); got > p.BackoffCap {
			t.Errorf("Backoff(%d) = %v exceeds cap %v", attempt, got, p.BackoffCap)
		}
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"default query policy", QueryPolicy(), false},
		{"default mutation policy", MutationPolicy(), false},
		{
			"retention shorter than staleness",
			Policy{StaleTime: time.Minute, RetentionTime: time.Second},
			true,
		},
		{
			"negative retries",
			Policy{MaxRetries: -1},
			true,
		},
		{
			"equal windows",
			Policy{StaleTime: time.Minute, RetentionTime: time.Minute},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPolicy_RetryBudgets(t *testing.T) {
	if got := QueryPolicy().MaxRetries; got != 3 {
		t.Errorf("query retries = %d, want 3", got)
	}
	if got := MutationPolicy().MaxRetries; got != 1 {
		t.Errorf("mutation retries = %d, want 1", got)
	}
	if QueryPolicy().Mode != OfflineFirst {
		t.Error("query policy should be offline-first")
	}
	if MutationPolicy().Mode != OnlineOnly {
		t.Error("mutation policy should be online-only")
	}
}
