package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryEventBus delivers events synchronously inside the process. It backs
// the memory storage driver and tests.
type MemoryEventBus struct {
	mu        sync.RWMutex
	subs      []memorySub
	published []*Message
	seq       int64
}

type memorySub struct {
	pattern string
	handler func(msg *Message)
}

func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{}
}

func (b *MemoryEventBus) Publish(_ context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	b.mu.Lock()
	b.seq++
	msg := &Message{
		Subject:   subject,
		Data:      payload,
		Timestamp: time.Now(),
		ID:        fmt.Sprintf("mem-%d", b.seq),
	}
	b.published = append(b.published, msg)
	subs := append([]memorySub(nil), b.subs...)
	b.mu.Unlock()

	for _, s := range subs {
		if SubjectMatches(s.pattern, subject) {
			s.handler(msg)
		}
	}
	return nil
}

func (b *MemoryEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, memorySub{pattern: subject, handler: handler})
	return nil
}

// QueueSubscribe ignores the queue group; a single process is the only member.
func (b *MemoryEventBus) QueueSubscribe(subject, _ string, handler func(msg *Message)) error {
	return b.Subscribe(subject, handler)
}

func (b *MemoryEventBus) Close() error {
	return nil
}

// Published returns every message with the given subject, oldest first.
func (b *MemoryEventBus) Published(subject string) []*Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*Message
	for _, m := range b.published {
		if m.Subject == subject {
			out = append(out, m)
		}
	}
	return out
}

// SubjectMatches applies NATS wildcard rules: '*' matches one token and
// '>' matches one or more trailing tokens.
func SubjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, p := range pt {
		if p == ">" {
			return len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
