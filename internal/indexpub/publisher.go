// Package indexpub decouples search indexing from the note write path.
// Committed versions are handed to the indexer through a buffered channel;
// the write path never waits on indexing and never fails because of it.
package indexpub

import (
	"log/slog"
	"sync/atomic"
)

// Sink receives committed note content for indexing.
type Sink interface {
	UpsertSearch(noteID, title, body string) error
}

type document struct {
	noteID  string
	version int
	title   string
	body    string
}

// Publisher is an asynchronous one-way feed into a search Sink.
//
// Concurrency model: a single internal goroutine owns the sink; Publish only
// enqueues. When the buffer is full the document is dropped and logged:
// a stale index entry is acceptable, a blocked commit is not.
type Publisher struct {
	sink   Sink
	logger *slog.Logger

	ch      chan document
	stopped chan struct{}
	closed  atomic.Bool
}

// New starts a publisher feeding the given sink.
func New(sink Sink, logger *slog.Logger) *Publisher {
	p := &Publisher{
		sink:    sink,
		logger:  logger,
		ch:      make(chan document, 256),
		stopped: make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer close(p.stopped)
	for doc := range p.ch {
		if err := p.sink.UpsertSearch(doc.noteID, doc.title, doc.body); err != nil {
			p.logger.Warn("indexpub: upsert failed",
				slog.String("note_id", doc.noteID),
				slog.Int("version", doc.version),
				slog.String("error", err.Error()))
		} else {
			p.logger.Debug("indexpub: indexed",
				slog.String("note_id", doc.noteID),
				slog.Int("version", doc.version))
		}
	}
}

// Publish enqueues a committed version for indexing. It never blocks.
func (p *Publisher) Publish(noteID string, version int, title, contentText string) {
	if p.closed.Load() {
		return
	}
	select {
	case p.ch <- document{noteID: noteID, version: version, title: title, body: contentText}:
	default:
		p.logger.Warn("indexpub: queue full, dropping",
			slog.String("note_id", noteID),
			slog.Int("version", version))
	}
}

// Close drains the queue and stops the indexing goroutine.
func (p *Publisher) Close() {
	if p.closed.CompareAndSwap(false, true) {
		close(p.ch)
	}
	<-p.stopped
}
