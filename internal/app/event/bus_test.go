package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Publish_fanOut(t *testing.T) {
	bus := NewBus()

	first := bus.Subscribe(4)
	second := bus.Subscribe(4)

	bus.Publish(Event{Kind: KindRoomCreated, RoomID: "a1b2c3d4"})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case e := <-ch:
			assert.Equal(t, KindRoomCreated, e.Kind)
			assert.Equal(t, "a1b2c3d4", e.RoomID)
		default:
			t.Fatal("expected the event on every subscriber channel")
		}
	}
}

func Test_Publish_neverBlocksOnFullSubscriber(t *testing.T) {
	bus := NewBus()

	full := bus.Subscribe(1)
	bus.Publish(Event{Kind: KindMemberJoined, RoomID: "a1b2c3d4"})

	// The buffer is full now; further publishes must not block.
	bus.Publish(Event{Kind: KindMemberLeft, RoomID: "a1b2c3d4"})

	e := <-full
	require.Equal(t, KindMemberJoined, e.Kind, "expected the first event to be retained")

	select {
	case e := <-full:
		t.Fatalf("expected the overflow event to be dropped, got %v", e.Kind)
	default:
	}
}
