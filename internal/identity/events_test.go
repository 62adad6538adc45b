package identity_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rpggio/wellnest/internal/domain/auth"
	"github.com/rpggio/wellnest/internal/identity"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_OrderedDelivery(t *testing.T) {
	b := identity.NewBroadcaster()

	var mu sync.Mutex
	var got []auth.EventType
	unsubscribe := b.Subscribe(func(ev auth.Event) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})

	b.Publish(auth.Event{Type: auth.EventSignedIn})
	b.Publish(auth.Event{Type: auth.EventTokenRefreshed})
	b.Publish(auth.Event{Type: auth.EventSignedOut})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	require.Equal(t, []auth.EventType{auth.EventSignedIn, auth.EventTokenRefreshed, auth.EventSignedOut}, got)
	mu.Unlock()

	unsubscribe()
	unsubscribe()
	b.Publish(auth.Event{Type: auth.EventSignedIn})
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	require.Len(t, got, 3)
	mu.Unlock()
}
