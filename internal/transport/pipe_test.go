package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPipe_BothDirections(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()

	ctx := context.Background()

	require.NoError(t, a.Send(ctx, []byte("ping")))
	got, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), got)

	require.NoError(t, b.Send(ctx, []byte("pong")))
	got, err = a.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("pong"), got)
}

func TestPipe_SendCopiesData(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()

	ctx := context.Background()
	buf := []byte("original")
	require.NoError(t, a.Send(ctx, buf))
	buf[0] = 'X'

	got, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}

func TestPipe_SendDoesNotBlock(t *testing.T) {
	a, _ := NewPipe()
	defer a.Close()

	ctx := context.Background()
	for i := 0; i < pipeDepth; i++ {
		require.NoError(t, a.Send(ctx, []byte("x")))
	}

	err := a.Send(ctx, []byte("overflow"))
	require.Error(t, err)
}

func TestPipe_ReceiveContextCancel(t *testing.T) {
	a, _ := NewPipe()
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPipe_CloseUnblocksBothEnds(t *testing.T) {
	a, b := NewPipe()

	done := make(chan error, 2)
	go func() {
		_, err := a.Receive(context.Background())
		done <- err
	}()
	go func() {
		_, err := b.Receive(context.Background())
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, a.Close())

	for i := 0; i < 2; i++ {
		select {
		case err := <-done:
			assert.Error(t, err)
		case <-time.After(time.Second):
			t.Fatal("receive did not unblock after close")
		}
	}
}

func TestPipe_BufferedDataReadableAfterClose(t *testing.T) {
	a, b := NewPipe()
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, []byte("queued")))
	require.NoError(t, a.Close())

	got, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("queued"), got)
}

func TestPipe_DoubleCloseSafe(t *testing.T) {
	a, b := NewPipe()
	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
	require.NoError(t, a.Close())
}
