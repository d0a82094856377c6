package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go-fund-admin/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyQueuesEncodedEvent(t *testing.T) {
	hub := NewHub(nil)
	roleID := uuid.New()

	hub.Notify(service.ChangeEvent{Type: service.ChangeRoleCreated, RoleID: &roleID, At: time.Now()})

	select {
	case payload := <-hub.broadcast:
		var event service.ChangeEvent
		require.NoError(t, json.Unmarshal(payload, &event))
		assert.Equal(t, service.ChangeRoleCreated, event.Type)
		require.NotNil(t, event.RoleID)
		assert.Equal(t, roleID, *event.RoleID)
	default:
		t.Fatal("event was not queued")
	}
}

func TestNotifyDropsWhenQueueFull(t *testing.T) {
	hub := NewHub(nil)
	for i := 0; i < cap(hub.broadcast)+10; i++ {
		hub.Notify(service.ChangeEvent{Type: service.ChangeRoleUpdated})
	}
	assert.Len(t, hub.broadcast, cap(hub.broadcast))
}

func TestRunStopsOnCancel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())

	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	hub.Notify(service.ChangeEvent{Type: service.ChangeRoleDeleted})
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Equal(t, 0, hub.ClientCount())
}
