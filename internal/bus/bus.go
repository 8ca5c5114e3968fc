// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package bus distributes samples from several providers to subscribers. For every key the bus
// keeps the best result, as decided by its Policy.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/wneessen/stepnav/internal/logger"
)

const (
	accuracyEpsilon = 1e-6
	initialBackoff  = time.Second
	maxBackoff      = 30 * time.Second
)

// Provider defines an interface for sample providers.
// It supports retrieving streamed results for a given key.
type Provider[T any] interface {
	Name() string
	LookupStream(ctx context.Context, key string) <-chan Result[T]
}

// Result represents a sample with associated metadata. Accuracy is in meters, lower is better.
type Result[T any] struct {
	Key      string
	Value    T
	Accuracy float64
	Source   string
	At       time.Time
	TTL      time.Duration
}

// BetterThan reports whether r is at least as recent as prev and more accurate.
func (r Result[T]) BetterThan(prev Result[T]) bool {
	if prev.Key == "" {
		return true
	}
	if r.At.Before(prev.At) {
		return false
	}
	return r.Accuracy < prev.Accuracy-accuracyEpsilon
}

// IsExpired checks if the Result has exceeded its time-to-live (TTL) based on the current time and the timestamp.
func (r Result[T]) IsExpired() bool {
	return r.TTL > 0 && time.Since(r.At) > r.TTL
}

// Policy decides which results are published. A nil Accept accepts every result. A nil
// Replaces lets every result that is not older than the current best replace it.
type Policy[T any] struct {
	Accept   func(Result[T]) bool
	Replaces func(prev, next Result[T]) bool
}

// Latest is the policy for continuous streams: every new result wins.
func Latest[T any]() Policy[T] {
	return Policy[T]{}
}

// Significant is the policy for coarse fixes: results without accuracy are dropped, and a
// result only replaces the current best if it is more accurate and changed significantly.
// Expired results are always replaced.
func Significant[T any](changed func(prev, next T) bool) Policy[T] {
	return Policy[T]{
		Accept: func(r Result[T]) bool { return r.Accuracy > 0 },
		Replaces: func(prev, next Result[T]) bool {
			return next.BetterThan(prev) && changed(prev.Value, next.Value)
		},
	}
}

// Bus coordinates the publishing and subscribing of results between providers and consumers.
type Bus[T any] struct {
	mu          sync.RWMutex
	logger      *logger.Logger
	policy      Policy[T]
	best        map[string]Result[T]
	subscribers map[string]map[chan Result[T]]struct{}
	globalSubs  map[chan Result[T]]struct{}
}

// New initializes and returns a new Bus.
func New[T any](logger *logger.Logger, policy Policy[T]) *Bus[T] {
	return &Bus[T]{
		logger:      logger,
		policy:      policy,
		best:        make(map[string]Result[T]),
		subscribers: make(map[string]map[chan Result[T]]struct{}),
		globalSubs:  make(map[chan Result[T]]struct{}),
	}
}

// NewOrchestrator returns an Orchestrator that publishes the results of the given providers.
func (b *Bus[T]) NewOrchestrator(providers []Provider[T]) *Orchestrator[T] {
	return &Orchestrator[T]{
		Bus:       b,
		Providers: providers,
	}
}

// Subscribe adds a subscriber for updates associated with the given key and buffer size, returning a result
// channel and an unsubscribe function. The current best result is delivered immediately.
func (b *Bus[T]) Subscribe(key string, size int) (<-chan Result[T], func()) {
	resultChan := make(chan Result[T], max(1, size))
	b.mu.Lock()
	if _, ok := b.subscribers[key]; !ok {
		b.subscribers[key] = make(map[chan Result[T]]struct{})
	}

	b.subscribers[key][resultChan] = struct{}{}
	if best, ok := b.best[key]; ok && !best.IsExpired() {
		resultChan <- best
	}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			if subs, ok := b.subscribers[key]; ok {
				delete(subs, resultChan)
				if len(subs) == 0 {
					delete(b.subscribers, key)
				}
			}
			b.mu.Unlock()
			close(resultChan)
		})
	}

	return resultChan, unsub
}

// SubscribeAll subscribes to the results of all keys. Current best results are delivered as
// far as the buffer allows.
func (b *Bus[T]) SubscribeAll(buffer int) (<-chan Result[T], func()) {
	ch := make(chan Result[T], max(1, buffer))
	b.mu.Lock()
	b.globalSubs[ch] = struct{}{}
	for _, v := range b.best {
		if v.IsExpired() {
			continue
		}
		select {
		case ch <- v:
		default:
		}
	}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.globalSubs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, unsub
}

// Publish offers a result to the bus. It is stored and broadcast if there is no valid result
// for its key yet or the policy lets it replace the current one.
func (b *Bus[T]) Publish(r Result[T]) {
	if r.Key == "" {
		return
	}
	if b.policy.Accept != nil && !b.policy.Accept(r) {
		return
	}
	if r.At.IsZero() {
		r.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	prev, have := b.best[r.Key]
	if !have || prev.IsExpired() || b.replaces(prev, r) {
		b.best[r.Key] = r
		b.broadcastResult(r)
		return
	}

	// Refresh the TTL if the source has not changed
	if prev.Source == r.Source && r.At.After(prev.At) {
		prev.At = r.At
		b.best[r.Key] = prev
	}
}

// Best returns the current best result for a key.
func (b *Bus[T]) Best(key string) (Result[T], bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.best[key]
	return r, ok && !r.IsExpired()
}

// Forget removes the best result of a key.
func (b *Bus[T]) Forget(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.best, key)
}

func (b *Bus[T]) replaces(prev, next Result[T]) bool {
	if b.policy.Replaces != nil {
		return b.policy.Replaces(prev, next)
	}
	return !next.At.Before(prev.At)
}

// broadcastResult hands the result to all subscribers without blocking. Subscribers that are
// not keeping up miss results.
func (b *Bus[T]) broadcastResult(r Result[T]) {
	dropped := 0
	if subs, ok := b.subscribers[r.Key]; ok {
		for ch := range subs {
			select {
			case ch <- r:
			default:
				dropped++
			}
		}
	}
	for ch := range b.globalSubs {
		select {
		case ch <- r:
		default:
			dropped++
		}
	}
	if dropped > 0 && b.logger != nil {
		b.logger.Debug("subscribers are not keeping up", "key", r.Key, "dropped", dropped)
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}
