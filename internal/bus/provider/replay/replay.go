// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package replay

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/wneessen/stepnav/internal/bus"
	"github.com/wneessen/stepnav/internal/logger"
	"github.com/wneessen/stepnav/internal/pathlog"
	"github.com/wneessen/stepnav/internal/pose"
)

const name = "replay"

// event is a sample of the record scheduled at a timestamp.
type event struct {
	key    string
	sample pose.Sample
}

// ReplayProvider plays back a recorded path log at its recorded pace. Camera poses are emitted
// under the lookup key, landmark resolutions under their landmark keys. After the last sample
// the stream stays open until the context ends, unless Loop is set.
type ReplayProvider struct {
	name   string
	path   string
	speed  float64
	loop   bool
	logger *logger.Logger
	loadFn func() (pathlog.Record, error)
}

// NewReplayProvider returns a provider for the record at path. A speed of 2 replays twice as
// fast, speeds <= 0 default to 1.
func NewReplayProvider(path string, speed float64, loop bool, log *logger.Logger) *ReplayProvider {
	if speed <= 0 {
		speed = 1
	}
	provider := &ReplayProvider{
		name:   name,
		path:   path,
		speed:  speed,
		loop:   loop,
		logger: log,
	}
	provider.loadFn = func() (pathlog.Record, error) {
		return pathlog.ReadFile(provider.path)
	}
	return provider
}

func (p *ReplayProvider) Name() string {
	return p.name
}

func (p *ReplayProvider) LookupStream(ctx context.Context, key string) <-chan bus.Result[pose.Sample] {
	out := make(chan bus.Result[pose.Sample])
	go func() {
		defer close(out)

		rec, err := p.loadFn()
		if err != nil {
			if p.logger != nil {
				p.logger.Error("failed to load path log", slog.String("path", p.path), logger.Err(err))
			}
			return
		}
		times, events := schedule(rec, key)
		if len(events) == 0 {
			return
		}

		for {
			if !p.play(ctx, times, events, out) {
				return
			}
			if !p.loop {
				<-ctx.Done()
				return
			}
		}
	}()
	return out
}

// play emits all events, sleeping between them. It returns false if the context ended.
func (p *ReplayProvider) play(ctx context.Context, times []float64, events []event, out chan<- bus.Result[pose.Sample]) bool {
	for i, ev := range events {
		if i > 0 {
			wait := time.Duration((times[i] - times[i-1]) / p.speed * float64(time.Second))
			if wait > 0 {
				select {
				case <-ctx.Done():
					return false
				case <-time.After(wait):
				}
			}
		}
		select {
		case <-ctx.Done():
			return false
		case out <- p.createResult(ev):
		}
	}
	return true
}

// createResult composes a Result for the given event.
func (p *ReplayProvider) createResult(ev event) bus.Result[pose.Sample] {
	return bus.Result[pose.Sample]{
		Key:    ev.key,
		Value:  ev.sample,
		Source: fmt.Sprintf("%s:%s", p.name, p.path),
		At:     time.Now(),
	}
}

// schedule merges the poses and landmark resolutions of rec into a single list ordered by
// timestamp. Poses come first on equal timestamps.
func schedule(rec pathlog.Record, key string) ([]float64, []event) {
	type timed struct {
		at float64
		ev event
	}
	all := make([]timed, 0, len(rec.Poses)+len(rec.Resolutions))
	for i, t := range rec.Poses {
		all = append(all, timed{
			at: rec.PoseTimestamps[i],
			ev: event{key: key, sample: pose.Sample{Pose: t, Timestamp: rec.PoseTimestamps[i]}},
		})
	}
	for _, r := range rec.Resolutions {
		all = append(all, timed{
			at: r.Timestamp,
			ev: event{
				key:    pose.LandmarkKey(r.LandmarkID),
				sample: pose.Sample{Pose: r.Pose, Timestamp: r.Timestamp, SessionID: r.SessionID},
			},
		})
	}
	slices.SortStableFunc(all, func(a, b timed) int {
		return cmp.Compare(a.at, b.at)
	})

	times := make([]float64, len(all))
	events := make([]event, len(all))
	for i, t := range all {
		times[i], events[i] = t.at, t.ev
	}
	return times, events
}
