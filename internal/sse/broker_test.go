package sse

import (
	"strings"
	"testing"
	"time"
)

func TestSubscribeReceivesChangeEvents(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	b.PublishChange("note.versioned", "note-1", "2")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: note.versioned") {
			t.Errorf("message = %q", s)
		}
		if !strings.Contains(s, `"note_id":"note-1"`) || !strings.Contains(s, `"ref":"2"`) {
			t.Errorf("payload missing fields: %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	b.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
}

func TestClientCount(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	if n := b.ClientCount(); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
	ch := b.Subscribe()
	if n := b.ClientCount(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	b.Unsubscribe(ch)
}

func TestPublishAfterCloseDoesNotPanic(t *testing.T) {
	b := NewBroker()
	b.Close()
	b.PublishChange("note.created", "note-1", "1")
	if n := b.ClientCount(); n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}
