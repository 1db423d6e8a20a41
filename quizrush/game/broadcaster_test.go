package game

import "testing"

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	chA, _ := b.Subscribe("a")
	chB, _ := b.Subscribe("b")

	b.Publish(Event{Kind: EventBroadcast, Msg: "hello"})

	if ev := <-chA; ev.Msg != "hello" {
		t.Errorf("subscriber a did not receive the broadcast")
	}
	if ev := <-chB; ev.Msg != "hello" {
		t.Errorf("subscriber b did not receive the broadcast")
	}
}

func TestSendToOnlyReachesTarget(t *testing.T) {
	b := NewBroadcaster()
	chA, _ := b.Subscribe("a")
	chB, _ := b.Subscribe("b")

	b.Publish(Event{Kind: EventSendTo, SocketID: "a", Msg: "for-a"})

	select {
	case ev := <-chA:
		if ev.Msg != "for-a" {
			t.Errorf("unexpected message for a: %v", ev.Msg)
		}
	default:
		t.Errorf("expected subscriber a to receive the SendTo event")
	}

	select {
	case ev := <-chB:
		t.Errorf("subscriber b should not have received the SendTo event, got %v", ev.Msg)
	default:
	}
}

func TestBroadcastExceptSkipsExcluded(t *testing.T) {
	b := NewBroadcaster()
	chA, _ := b.Subscribe("a")
	chB, _ := b.Subscribe("b")

	b.Publish(Event{Kind: EventBroadcastExcept, Exclude: "a", Msg: "not-for-a"})

	select {
	case <-chA:
		t.Errorf("subscriber a should have been excluded")
	default:
	}

	select {
	case ev := <-chB:
		if ev.Msg != "not-for-a" {
			t.Errorf("unexpected message for b: %v", ev.Msg)
		}
	default:
		t.Errorf("expected subscriber b to receive the BroadcastExcept event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroadcaster()
	ch, unsubscribe := b.Subscribe("a")
	unsubscribe()

	b.Publish(Event{Kind: EventBroadcast, Msg: "after-unsubscribe"})

	select {
	case ev, ok := <-ch:
		if ok {
			t.Errorf("unsubscribed channel should not receive further events, got %v", ev.Msg)
		}
	default:
	}
}

func TestPublishDoesNotBlockOnFullSubscriberChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, _ := b.Subscribe("a")

	for i := 0; i < eventBufferSize+10; i++ {
		b.Publish(Event{Kind: EventBroadcast, Msg: i})
	}

	if len(ch) != eventBufferSize {
		t.Errorf("expected subscriber channel to be full at %d, got %d", eventBufferSize, len(ch))
	}
}
