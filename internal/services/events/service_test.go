package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/scrapeloop/sessiond/internal/interfaces"
)

func TestService_SubscribeNilHandler(t *testing.T) {
	s := NewService(arbor.NewLogger())
	assert.Error(t, s.Subscribe(interfaces.EventSessionCreated, nil))
}

func TestService_PublishSyncDeliversToSubscribers(t *testing.T) {
	s := NewService(arbor.NewLogger())

	var mu sync.Mutex
	var received []interfaces.Event
	handler := func(ctx context.Context, event interfaces.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, event)
		return nil
	}

	require.NoError(t, s.Subscribe(interfaces.EventSessionCleared, handler))
	require.NoError(t, s.Subscribe(interfaces.EventSessionCleared, handler))

	event := interfaces.Event{
		Type:      interfaces.EventSessionCleared,
		Timestamp: time.Now(),
		Payload:   map[string]interface{}{"session_id": "sess-a"},
	}
	require.NoError(t, s.PublishSync(context.Background(), event))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, "sess-a", received[0].Payload["session_id"])
}

func TestService_PublishSyncPropagatesHandlerError(t *testing.T) {
	s := NewService(arbor.NewLogger())

	require.NoError(t, s.Subscribe(interfaces.EventSessionRenewed, func(ctx context.Context, event interfaces.Event) error {
		return errors.New("handler blew up")
	}))

	err := s.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventSessionRenewed})
	assert.Error(t, err)
}

func TestService_PublishIsAsync(t *testing.T) {
	s := NewService(arbor.NewLogger())

	done := make(chan struct{})
	require.NoError(t, s.Subscribe(interfaces.EventProfileAssigned, func(ctx context.Context, event interfaces.Event) error {
		close(done)
		return nil
	}))

	require.NoError(t, s.Publish(context.Background(), interfaces.Event{Type: interfaces.EventProfileAssigned}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler never ran")
	}
}

func TestService_PublishNoSubscribers(t *testing.T) {
	s := NewService(arbor.NewLogger())
	assert.NoError(t, s.Publish(context.Background(), interfaces.Event{Type: interfaces.EventSessionCreated}))
}

func TestService_CloseDropsSubscribers(t *testing.T) {
	s := NewService(arbor.NewLogger())

	called := false
	require.NoError(t, s.Subscribe(interfaces.EventSessionCreated, func(ctx context.Context, event interfaces.Event) error {
		called = true
		return nil
	}))

	require.NoError(t, s.Close())
	require.NoError(t, s.PublishSync(context.Background(), interfaces.Event{Type: interfaces.EventSessionCreated}))
	assert.False(t, called)
}
