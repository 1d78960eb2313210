package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitAdmitsBurstImmediately(t *testing.T) {
	l := New(1000, 3)
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(context.Background(), "chat-1"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitSerialisesBeyondBucketCapacity(t *testing.T) {
	l := New(50, 1) // 1 token, refills every 20ms
	require.NoError(t, l.Wait(context.Background(), "chat-1"))

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "chat-1"))
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestBucketsAreIndependentPerChat(t *testing.T) {
	l := New(1, 1)
	require.NoError(t, l.Wait(context.Background(), "chat-1"))

	start := time.Now()
	require.NoError(t, l.Wait(context.Background(), "chat-2"))
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	l := New(0.1, 1)
	require.NoError(t, l.Wait(context.Background(), "chat-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "chat-1")
	assert.Error(t, err)
}
