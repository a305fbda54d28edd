package server

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithSignal_CanceledBySignal(t *testing.T) {
	ctx, stop := WithSignal(context.Background())
	defer stop()

	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not canceled by SIGTERM")
	}
}

func TestWithSignal_Stop(t *testing.T) {
	ctx, stop := WithSignal(context.Background())
	stop()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
