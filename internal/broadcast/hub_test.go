package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskfall/hollowvale/internal/metrics"
)

func TestSanitizeReplacesDisallowedChars(t *testing.T) {
	assert.Equal(t, "abc-123_XYZ", sanitize("abc:123_XYZ"))
	assert.Equal(t, "a-b-c", sanitize("a.b.c"))
}

// newTestClient builds a Client with no underlying websocket connection:
// Register/Unregister/deliver never touch conn, so a bare struct with a
// drainable sendCh is enough to observe hub fan-out.
func newTestClient(hub *Hub, roomID, userID uuid.UUID) *Client {
	return &Client{hub: hub, sendCh: make(chan []byte, 16), roomID: roomID, userID: userID}
}

func drainEnvelope(t *testing.T, ch <-chan []byte) envelope {
	t.Helper()
	select {
	case data := <-ch:
		var env envelope
		require.NoError(t, json.Unmarshal(data, &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
		return envelope{}
	}
}

func assertNoDelivery(t *testing.T, ch <-chan []byte) {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			return // channel closed (e.g. after Unregister), not a delivery
		}
		t.Fatalf("unexpected delivery: %s", string(data))
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubEmitRoomOnlyReachesSubscribersOfThatRoom(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	roomA, roomB := uuid.New(), uuid.New()
	clientA := newTestClient(hub, roomA, uuid.New())
	clientB := newTestClient(hub, roomB, uuid.New())
	clientA.Register()
	clientB.Register()
	time.Sleep(10 * time.Millisecond)

	hub.EmitRoom(roomA, "game:state", map[string]string{"phase": "night"})

	env := drainEnvelope(t, clientA.sendCh)
	assert.Equal(t, "game:state", env.Event)
	assertNoDelivery(t, clientB.sendCh)
}

func TestHubEmitUserOnlyReachesThatUsersChannel(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	roomID := uuid.New()
	userA, userB := uuid.New(), uuid.New()
	clientA := newTestClient(hub, roomID, userA)
	clientB := newTestClient(hub, roomID, userB)
	clientA.Register()
	clientB.Register()
	time.Sleep(10 * time.Millisecond)

	hub.EmitUser(userA, "game:private", map[string]string{"role": "witch"})

	env := drainEnvelope(t, clientA.sendCh)
	assert.Equal(t, "game:private", env.Event)
	assertNoDelivery(t, clientB.sendCh)
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	roomID := uuid.New()
	client := newTestClient(hub, roomID, uuid.New())
	client.Register()
	time.Sleep(10 * time.Millisecond)
	client.Unregister()
	time.Sleep(10 * time.Millisecond)

	hub.EmitRoom(roomID, "room:dissolved", nil)
	assertNoDelivery(t, client.sendCh)
}

func TestHubTracksActiveConnectionsMetric(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	hub := NewHub(m)
	go hub.Run()
	defer hub.Stop()

	client := newTestClient(hub, uuid.New(), uuid.New())
	client.Register()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.ActiveConnections) == 1
	}, time.Second, 5*time.Millisecond)

	client.Unregister()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.ActiveConnections) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestHubCountsBroadcastFailureOnFullClientBuffer(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	hub := NewHub(m)
	go hub.Run()
	defer hub.Stop()

	roomID := uuid.New()
	client := &Client{hub: hub, sendCh: make(chan []byte), roomID: roomID, userID: uuid.New()}
	client.Register()
	time.Sleep(10 * time.Millisecond)

	hub.EmitRoom(roomID, "game:state", map[string]string{"phase": "night"})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.BroadcastFailures) == 1
	}, time.Second, 5*time.Millisecond)
}
