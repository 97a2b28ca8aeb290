package sse

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mannyc2/watchify-app-sub000/internal/platform/logger"
	"github.com/mannyc2/watchify-app-sub000/internal/services"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewHub(log)
}

func TestBroadcastReachesSubscribedChannelOnly(t *testing.T) {
	hub := testHub(t)
	src := uuid.New()

	subscribed := hub.NewClient()
	hub.AddChannel(subscribed, SourceChannel(src))
	other := hub.NewClient()
	hub.AddChannel(other, SourceChannel(uuid.New()))

	hub.Broadcast(Message{Channel: SourceChannel(src), Event: EventCatalogChanges})

	select {
	case msg := <-subscribed.Outbound:
		if msg.Event != EventCatalogChanges {
			t.Fatalf("event: %q", msg.Event)
		}
	default:
		t.Fatalf("subscribed client should have received the message")
	}
	select {
	case msg := <-other.Outbound:
		t.Fatalf("unsubscribed client received %+v", msg)
	default:
	}
}

func TestDeliverFansOutToSourceAndAll(t *testing.T) {
	hub := testHub(t)
	src := uuid.New()

	perSource := hub.NewClient()
	hub.AddChannel(perSource, SourceChannel(src))
	catchAll := hub.NewClient()
	hub.AddChannel(catchAll, ChannelAll)

	hub.Deliver(src, "Acme Outdoor", "3 price drops, 1 back in stock", services.TierHigh)

	for _, c := range []*Client{perSource, catchAll} {
		select {
		case msg := <-c.Outbound:
			data, ok := msg.Data.(map[string]any)
			if !ok {
				t.Fatalf("payload type: %T", msg.Data)
			}
			if data["title"] != "Acme Outdoor" || data["tier"] != services.TierHigh {
				t.Fatalf("payload: %+v", data)
			}
		default:
			t.Fatalf("client %v missed the delivery", c.ID)
		}
	}
}

func TestBroadcastDropsWhenBufferFull(t *testing.T) {
	hub := testHub(t)
	client := hub.NewClient()
	hub.AddChannel(client, ChannelAll)

	// Outbound buffers 10 messages; the rest drop instead of blocking the hub.
	for i := 0; i < 15; i++ {
		hub.Broadcast(Message{Channel: ChannelAll, Event: EventCatalogChanges})
	}
	if got := len(client.Outbound); got != 10 {
		t.Fatalf("buffered messages: want=10 got=%d", got)
	}
}

func TestRemoveClientStopsDelivery(t *testing.T) {
	hub := testHub(t)
	client := hub.NewClient()
	hub.AddChannel(client, ChannelAll)

	hub.RemoveClient(client)
	hub.Broadcast(Message{Channel: ChannelAll, Event: EventCatalogChanges})

	select {
	case msg := <-client.Outbound:
		t.Fatalf("removed client received %+v", msg)
	default:
	}
}
