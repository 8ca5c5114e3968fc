// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wneessen/stepnav/internal/logger"
)

// Orchestrator coordinates the tracking and publication of results from multiple providers
// through a Bus.
type Orchestrator[T any] struct {
	Bus       *Bus[T]
	Providers []Provider[T]
}

// Track initiates concurrent tracking for a given key across all providers. It blocks until
// the context is cancelled.
func (o *Orchestrator[T]) Track(ctx context.Context, key string) {
	var wg sync.WaitGroup
	for _, p := range o.Providers {
		wg.Add(1)
		go func(p Provider[T]) {
			defer wg.Done()
			o.trackProvider(ctx, p, key)
		}(p)
	}
	<-ctx.Done()
	wg.Wait()
}

// trackProvider continuously tracks a Provider, publishing results to the Bus. Whenever the
// stream of the provider ends, it is restarted with exponential backoff.
func (o *Orchestrator[T]) trackProvider(ctx context.Context, p Provider[T], key string) {
	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		lookupChan, err := o.safeLookup(ctx, p, key)
		if err != nil && o.Bus.logger != nil {
			o.Bus.logger.Error("provider failed", slog.String("provider", p.Name()), logger.Err(err))
		}
		if lookupChan != nil {
		stream:
			for {
				select {
				case <-ctx.Done():
					return
				case r, ok := <-lookupChan:
					if !ok {
						break stream
					}
					if r.Source == "" {
						r.Source = p.Name()
					}
					o.Bus.Publish(r)
					backoff = initialBackoff
				}
			}
		}

		if !sleepOrDone(ctx, backoff) {
			return
		}
		backoff = nextBackoff(backoff)
	}
}

// safeLookup safely invokes the LookupStream method on a Provider and recovers from potential panics.
func (o *Orchestrator[T]) safeLookup(ctx context.Context, provider Provider[T], key string) (ch <-chan Result[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			ch, err = nil, fmt.Errorf("lookup panicked: %v", r)
		}
	}()
	return provider.LookupStream(ctx, key), nil
}
