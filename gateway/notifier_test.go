package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

func TestNotifierDeliversToRegisteredChannel(t *testing.T) {
	n := New(zap.NewNop().Sugar())
	id := newTestID(t)
	ch := make(chan Message, 1)

	n.Register(id, ch)
	n.Notify(context.Background(), id, "window/showMessage", []byte(`{"message":"hi"}`))

	select {
	case msg := <-ch:
		assert.Equal(t, "window/showMessage", msg.Method)
	case <-time.After(time.Second):
		t.Fatal("expected a delivered message")
	}
}

func TestNotifierDropsForUnregisteredSession(t *testing.T) {
	n := New(zap.NewNop().Sugar())
	assert.NotPanics(t, func() {
		n.Notify(context.Background(), newTestID(t), "window/logMessage", nil)
	})
}

func TestNotifierNonBlockingOnFullChannel(t *testing.T) {
	n := New(zap.NewNop().Sugar())
	id := newTestID(t)
	ch := make(chan Message) // unbuffered, no reader

	n.Register(id, ch)

	done := make(chan struct{})
	go func() {
		n.Notify(context.Background(), id, "textDocument/publishDiagnostics", nil)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify should not block on a full/unconsumed channel")
	}
}

func TestNotifierDeregisterIgnoresStaleChannel(t *testing.T) {
	n := New(zap.NewNop().Sugar())
	id := newTestID(t)
	oldCh := make(chan Message, 1)
	newCh := make(chan Message, 1)

	n.Register(id, oldCh)
	n.Register(id, newCh)
	n.Deregister(id, oldCh)

	n.Notify(context.Background(), id, "window/logMessage", nil)
	select {
	case <-newCh:
	case <-time.After(time.Second):
		t.Fatal("deregistering a stale channel must not remove the current registration")
	}
}

func TestNotifierRegisterRebindsOnReconnect(t *testing.T) {
	n := New(zap.NewNop().Sugar())
	id := newTestID(t)
	first := make(chan Message, 1)
	second := make(chan Message, 1)

	n.Register(id, first)
	n.Register(id, second)

	n.Notify(context.Background(), id, "window/logMessage", nil)
	select {
	case <-first:
		t.Fatal("the superseded channel should not receive notifications")
	default:
	}
	select {
	case <-second:
	default:
		t.Fatal("the rebound channel should receive notifications")
	}
}
