package indexpub

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu   sync.Mutex
	docs map[string]string
	fail bool
}

func (s *captureSink) UpsertSearch(noteID, title, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("index unavailable")
	}
	if s.docs == nil {
		s.docs = make(map[string]string)
	}
	s.docs[noteID] = body
	return nil
}

func (s *captureSink) get(noteID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.docs[noteID]
	return body, ok
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublishReachesSink(t *testing.T) {
	sink := &captureSink{}
	p := New(sink, discard())
	p.Publish("note-1", 2, "Initial Visit", "S: chest pain resolved")
	p.Close()

	body, ok := sink.get("note-1")
	if !ok {
		t.Fatal("document never reached sink")
	}
	if body != "S: chest pain resolved" {
		t.Errorf("body = %q", body)
	}
}

func TestSinkFailureDoesNotPropagate(t *testing.T) {
	sink := &captureSink{fail: true}
	p := New(sink, discard())
	// Publish must neither block nor panic when the sink is broken.
	done := make(chan struct{})
	go func() {
		p.Publish("note-1", 1, "t", "b")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
	p.Close()
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	sink := &captureSink{}
	p := New(sink, discard())
	p.Close()
	p.Publish("late", 1, "t", "b")
	if _, ok := sink.get("late"); ok {
		t.Error("publish after close reached sink")
	}
}
