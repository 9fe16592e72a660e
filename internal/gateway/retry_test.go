package gateway

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	g := &GitHubGateway{logger: log.New(io.Discard, "", 0)}

	calls := 0
	err := g.do(context.Background(), "flaky op", func() error {
		calls++
		if calls == 1 {
			return errors.New("503 service unavailable")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_FatalReturnsWithoutRetry(t *testing.T) {
	g := &GitHubGateway{logger: log.New(io.Discard, "", 0)}

	calls := 0
	fatal := errors.New("unprocessable entity")
	err := g.do(context.Background(), "doomed op", func() error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_RateLimitIsNotRetried(t *testing.T) {
	g := &GitHubGateway{logger: log.New(io.Discard, "", 0)}

	calls := 0
	err := g.do(context.Background(), "limited op", func() error {
		calls++
		return &RateLimitError{}
	})
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 1, calls)
}
