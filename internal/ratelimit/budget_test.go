package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gh-tui-tools/gh-activity-chronicle/internal/gateway"
)

type stubQuotaFetcher struct {
	quota *gateway.Quota
	err   error
}

func (s *stubQuotaFetcher) Quota(ctx context.Context) (*gateway.Quota, error) {
	return s.quota, s.err
}

func TestEstimate(t *testing.T) {
	testCases := []struct {
		name        string
		members     int
		days        int
		knownActive bool
		expected    int
	}{
		{name: "no members", members: 0, days: 7, expected: 0},
		{name: "single member", members: 1, days: 7, expected: 3},
		{name: "small org scales linearly", members: 10, days: 7, expected: 25},
		{name: "medium org", members: 50, days: 7, expected: 125},
		{name: "large org one week", members: 524, days: 7, expected: 1310},
		{name: "large org one month", members: 524, days: 30, expected: 2303},
		{name: "known active skips member scaling", members: 1000, days: 7, knownActive: true, expected: 2400},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Estimate(tc.members, tc.days, tc.knownActive))
		})
	}
}

func TestEstimate_SublinearScaling(t *testing.T) {
	// Doubling the window must cost well under double the calls.
	week := Estimate(524, 7, false)
	month := Estimate(524, 30, false)
	assert.Less(t, float64(month), 2.0*float64(week))

	// Ten times the members must cost well under ten times the calls.
	small := Estimate(50, 7, false)
	large := Estimate(500, 7, false)
	assert.Less(t, float64(large), 10.0*float64(small))
}

func TestBudget_ShouldWarn(t *testing.T) {
	testCases := []struct {
		name       string
		remaining  int
		known      bool
		estimate   int
		expectWarn bool
	}{
		{name: "cheap run on full quota", remaining: 5000, known: true, estimate: 100, expectWarn: false},
		{name: "over half the total budget", remaining: 5000, known: true, estimate: 2600, expectWarn: true},
		{name: "over 80 percent of remaining", remaining: 1000, known: true, estimate: 900, expectWarn: true},
		{name: "under 80 percent of remaining", remaining: 1000, known: true, estimate: 700, expectWarn: false},
		{name: "unknown quota treated as full", known: false, estimate: 2400, expectWarn: false},
		{name: "unknown quota still warns over half total", known: false, estimate: 2600, expectWarn: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := Budget{Remaining: tc.remaining, known: tc.known}
			warn, message := b.ShouldWarn(tc.estimate)
			assert.Equal(t, tc.expectWarn, warn)
			if tc.expectWarn {
				assert.NotEmpty(t, message)
			}
		})
	}
}

func TestBudget_ShouldAbort(t *testing.T) {
	testCases := []struct {
		name      string
		remaining int
		known     bool
		expected  bool
	}{
		{name: "plenty remaining", remaining: 4000, known: true, expected: false},
		{name: "exactly at the floor", remaining: 100, known: true, expected: false},
		{name: "below the floor", remaining: 99, known: true, expected: true},
		{name: "unknown never aborts", remaining: 0, known: false, expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := Budget{Remaining: tc.remaining, known: tc.known}
			assert.Equal(t, tc.expected, b.ShouldAbort())
		})
	}
}

func TestBudget_Refresh(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute)
	fetcher := &stubQuotaFetcher{quota: &gateway.Quota{Limit: 5000, Remaining: 1234, ResetAt: reset}}

	var b Budget
	require.NoError(t, b.Refresh(context.Background(), fetcher))
	assert.Equal(t, 5000, b.Limit)
	assert.Equal(t, 1234, b.Remaining)
	assert.Equal(t, reset, b.ResetAt)
	assert.False(t, b.ShouldAbort())
}

func TestBudget_RefreshError(t *testing.T) {
	fetcher := &stubQuotaFetcher{err: errors.New("boom")}

	var b Budget
	err := b.Refresh(context.Background(), fetcher)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh rate limit budget")
}
