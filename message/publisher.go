package message

import (
	"errors"
	"fmt"
	"sync"

	"github.com/isoterra/sculpt/sculpt"
)

var (
	ErrQueueFull = errors.New("event queue full")
	ErrClosed    = errors.New("publisher closed")
)

// Publisher delivers events.  Publish must not block on slow consumers.
type Publisher interface {
	Publish(Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(Event) error { return nil }
func (NopPublisher) Close() error        { return nil }

// LocalPublisher queues events on a buffered channel for an in-process consumer.
type LocalPublisher struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

// NewLocalPublisher returns a publisher queueing at most size undelivered events.
func NewLocalPublisher(size int) *LocalPublisher {
	return &LocalPublisher{ch: make(chan Event, size)}
}

// Events returns the channel consumers read from.  It is closed by Close.
func (p *LocalPublisher) Events() <-chan Event {
	return p.ch
}

func (p *LocalPublisher) Publish(e Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.ch <- e:
		return nil
	default:
		sculpt.Warningf("Dropped %s: local consumer is %d events behind\n", e, cap(p.ch))
		return ErrQueueFull
	}
}

func (p *LocalPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
	return nil
}

// Fanout publishes every event to each of its publishers.
type Fanout []Publisher

func (f Fanout) Publish(e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %T: %w", p, err))
		}
	}
	return errors.Join(errs...)
}
