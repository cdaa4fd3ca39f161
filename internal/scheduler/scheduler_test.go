package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) RefreshIncomplete(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestStartRunsRefreshJob(t *testing.T) {
	r := &countingRefresher{}
	s, err := Start(context.Background(), 50*time.Millisecond, r, nil)
	require.NoError(t, err)
	require.NotNil(t, s)
	defer func() { assert.NoError(t, s.Shutdown()) }()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestJobErrorsDoNotStopScheduler(t *testing.T) {
	r := &countingRefresher{err: errors.New("db down")}
	s, err := Start(context.Background(), 50*time.Millisecond, r, nil)
	require.NoError(t, err)
	defer func() { _ = s.Shutdown() }()

	assert.Eventually(t, func() bool { return r.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestStartDisabled(t *testing.T) {
	s, err := Start(context.Background(), 0, &countingRefresher{}, nil)
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, s.Shutdown())
}
