package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/collabtext/core/internal/protocol"
)

func TestConnectReceivesBroadcast(t *testing.T) {
	h := New(4)

	ch1 := h.Connect("doc-1", 1)
	ch2 := h.Connect("doc-1", 2)

	frame := protocol.NewAckFrame(nil, 3)
	h.Broadcast("doc-1", 0, frame)

	select {
	case got := <-ch1:
		require.Equal(t, frame, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber 1 did not receive broadcast")
	}

	select {
	case got := <-ch2:
		require.Equal(t, frame, got)
	case <-time.After(time.Second):
		t.Fatal("subscriber 2 did not receive broadcast")
	}
}

func TestBroadcastExcludesSender(t *testing.T) {
	h := New(4)

	sender := h.Connect("doc-1", 1)
	other := h.Connect("doc-1", 2)

	h.Broadcast("doc-1", 1, protocol.NewAckFrame(nil, 1))

	select {
	case <-sender:
		t.Fatal("sender should not receive its own broadcast")
	default:
	}

	select {
	case <-other:
	case <-time.After(time.Second):
		t.Fatal("other subscriber did not receive broadcast")
	}
}

func TestDisconnectClosesChannelAndStopsDelivery(t *testing.T) {
	h := New(4)

	ch := h.Connect("doc-1", 1)
	h.Disconnect("doc-1", 1)

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after disconnect")

	require.Equal(t, 0, h.SessionCount("doc-1"))

	// Broadcasting after everyone left must not panic.
	h.Broadcast("doc-1", 0, protocol.NewAckFrame(nil, 1))
}

func TestDocumentsAreIsolated(t *testing.T) {
	h := New(4)

	chA := h.Connect("doc-a", 1)
	chB := h.Connect("doc-b", 1)

	h.Broadcast("doc-a", 0, protocol.NewAckFrame(nil, 1))

	select {
	case <-chA:
	case <-time.After(time.Second):
		t.Fatal("doc-a subscriber did not receive broadcast")
	}

	select {
	case <-chB:
		t.Fatal("doc-b subscriber should not see doc-a's broadcast")
	default:
	}
}

func TestBroadcastDropsOnFullChannel(t *testing.T) {
	h := New(1)

	ch := h.Connect("doc-1", 1)
	h.Broadcast("doc-1", 0, protocol.NewAckFrame(nil, 1)) // fills the buffer
	h.Broadcast("doc-1", 0, protocol.NewAckFrame(nil, 2)) // must not block

	first := <-ch
	require.Equal(t, protocol.NewAckFrame(nil, 1), first)
}
