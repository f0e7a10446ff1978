package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChan_SendReceive(t *testing.T) {
	c := NewChan[int](2)
	require.NoError(t, c.Send(context.Background(), 1))
	require.NoError(t, c.Send(context.Background(), 2))
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, 1, <-c.Receive())
	assert.Equal(t, 2, <-c.Receive())
	assert.Equal(t, 0, c.Len())
}

func TestChan_TrySendFull(t *testing.T) {
	c := NewChan[string](1)
	assert.True(t, c.TrySend("a"))
	assert.False(t, c.TrySend("b"))
	assert.Equal(t, "a", <-c.Receive())
}

func TestChan_SendHonoursContext(t *testing.T) {
	c := NewChan[int](0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := c.Send(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChan_Unbuffered(t *testing.T) {
	c := NewChan[int](-3)
	assert.False(t, c.TrySend(1), "no receiver waiting")

	done := make(chan int)
	go func() { done <- <-c.Receive() }()
	require.NoError(t, c.Send(context.Background(), 5))
	assert.Equal(t, 5, <-done)
}

func TestChan_Close(t *testing.T) {
	c := New[int](1)
	c.Close()
	_, ok := <-c.Receive()
	assert.False(t, ok)
}
