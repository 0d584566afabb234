package stealth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// DelayProfile defines a named delay configuration.
type DelayProfile string

const (
	ProfileCautious   DelayProfile = "cautious"
	ProfileNormal     DelayProfile = "normal"
	ProfileAggressive DelayProfile = "aggressive"
	ProfileNone       DelayProfile = "none"
)

// ParseDelayProfile accepts a profile name case-insensitively. Empty means normal.
func ParseDelayProfile(s string) (DelayProfile, error) {
	switch p := DelayProfile(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProfileNormal, nil
	case ProfileCautious, ProfileNormal, ProfileAggressive, ProfileNone:
		return p, nil
	default:
		return "", fmt.Errorf("unknown delay profile %q", s)
	}
}

// HumanDelay adds randomized jitter before each request so a batch does not
// hit a storefront at machine pace.
type HumanDelay struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// NewHumanDelay creates a delay generator for the given profile. ProfileNone
// returns nil, which the transport treats as no delay.
func NewHumanDelay(profile DelayProfile) *HumanDelay {
	switch profile {
	case ProfileNone:
		return nil
	case ProfileCautious:
		return &HumanDelay{MinDelay: 2 * time.Second, MaxDelay: 5 * time.Second}
	case ProfileAggressive:
		return &HumanDelay{MinDelay: 200 * time.Millisecond, MaxDelay: 800 * time.Millisecond}
	default: // normal
		return &HumanDelay{MinDelay: 500 * time.Millisecond, MaxDelay: 2 * time.Second}
	}
}

// Wait sleeps for a random duration within the configured range.
func (h *HumanDelay) Wait(ctx context.Context) error {
	t := time.NewTimer(h.Next())
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next randomized delay.
func (h *HumanDelay) Next() time.Duration {
	if h.MinDelay >= h.MaxDelay {
		return h.MinDelay
	}
	return h.MinDelay + time.Duration(rand.Int64N(int64(h.MaxDelay-h.MinDelay)))
}
