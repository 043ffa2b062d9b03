package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareToken_Expired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	token := &ShareToken{ExpiresAt: now}

	assert.False(t, token.Expired(now.Add(-time.Second)))
	assert.True(t, token.Expired(now), "expiry instant itself counts as expired")
	assert.True(t, token.Expired(now.Add(time.Second)))
}

func TestShareToken_Exhausted(t *testing.T) {
	tests := []struct {
		name      string
		maxUses   int
		useCount  int
		exhausted bool
	}{
		{"UnlimitedNeverExhausts", UnlimitedUses, 1000000, false},
		{"UnderBudget", 3, 2, false},
		{"AtBudget", 3, 3, true},
		{"OverBudget", 3, 4, true},
		{"SingleUseSpent", 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := &ShareToken{MaxUses: tt.maxUses, UseCount: tt.useCount}
			assert.Equal(t, tt.exhausted, token.Exhausted())
		})
	}
}

func TestShareToken_UsableAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	live := &ShareToken{MaxUses: 2, UseCount: 1, ExpiresAt: now.Add(time.Hour)}
	assert.True(t, live.UsableAt(now))

	expired := &ShareToken{MaxUses: 2, UseCount: 1, ExpiresAt: now.Add(-time.Hour)}
	assert.False(t, expired.UsableAt(now))

	exhausted := &ShareToken{MaxUses: 2, UseCount: 2, ExpiresAt: now.Add(time.Hour)}
	assert.False(t, exhausted.UsableAt(now))
}

func TestShareToken_Remaining(t *testing.T) {
	unlimited := &ShareToken{MaxUses: UnlimitedUses, UseCount: 50}
	assert.Nil(t, unlimited.Remaining())

	budgeted := &ShareToken{MaxUses: 5, UseCount: 2}
	remaining := budgeted.Remaining()
	require.NotNil(t, remaining)
	assert.Equal(t, 3, *remaining)

	overrun := &ShareToken{MaxUses: 5, UseCount: 7}
	remaining = overrun.Remaining()
	require.NotNil(t, remaining)
	assert.Equal(t, 0, *remaining)
}

func TestDenied(t *testing.T) {
	result := Denied(DenialExpired)
	assert.False(t, result.Granted)
	assert.Equal(t, DenialExpired, result.Reason)
	assert.Nil(t, result.RemainingUses)
	assert.True(t, result.ExpiresAt.IsZero())
}
