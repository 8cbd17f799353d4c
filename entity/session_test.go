package entity

import (
	"sync"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return NewSession(id, "/workspace")
}

func TestSessionOpenCloseTracking(t *testing.T) {
	s := newTestSession(t)
	assert.False(t, s.IsOpen("file:///a.go"))

	s.MarkOpen("file:///a.go")
	assert.True(t, s.IsOpen("file:///a.go"))
	assert.Equal(t, []string{"file:///a.go"}, s.OpenURIs())

	s.MarkClosed("file:///a.go")
	assert.False(t, s.IsOpen("file:///a.go"))
	assert.Empty(t, s.OpenURIs())
}

func TestSessionLockForURIStableAndExclusive(t *testing.T) {
	s := newTestSession(t)
	l1 := s.LockForURI("file:///a.go")
	l2 := s.LockForURI("file:///a.go")
	assert.Same(t, l1, l2)

	var wg sync.WaitGroup
	order := make([]int, 0, 2)
	var mu sync.Mutex

	l1.Lock()
	wg.Add(1)
	go func() {
		defer wg.Done()
		l := s.LockForURI("file:///a.go")
		l.Lock()
		defer l.Unlock()
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	}()

	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	l1.Unlock()
	wg.Wait()

	assert.Equal(t, []int{1, 2}, order)
}

func TestSessionMarkClosedForgetsLock(t *testing.T) {
	s := newTestSession(t)
	l1 := s.LockForURI("file:///a.go")
	s.MarkClosed("file:///a.go")
	l2 := s.LockForURI("file:///a.go")
	assert.NotSame(t, l1, l2)
}

func TestSessionCapabilities(t *testing.T) {
	s := newTestSession(t)
	assert.False(t, s.HasCapability("workspace/didChangeWatchedFiles"))
	s.SetCapability("workspace/didChangeWatchedFiles", true)
	assert.True(t, s.HasCapability("workspace/didChangeWatchedFiles"))
}
