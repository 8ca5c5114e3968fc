// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package job

import (
	"context"
	"testing"
	"testing/synctest"
	"time"
)

type testType struct {
	count     int
	completed bool
}

func TestNew(t *testing.T) {
	job := New(time.Millisecond*100, func(context.Context) {})
	if job == nil {
		t.Fatal("expected job to be non-nil")
	}
}

func TestJob_Start(t *testing.T) {
	t.Run("job succeeds", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			tester := &testType{}

			ctx, cancel := context.WithCancel(t.Context())
			context.AfterFunc(ctx, func() {
				tester.completed = true
			})

			testJob := New(time.Millisecond*100, tester.testFunc)
			go testJob.Start(ctx)

			synctest.Wait()
			if tester.completed {
				t.Fatal("expected job to not be completed before context was cancelled")
			}

			cancel()
			synctest.Wait()
			if !tester.completed {
				t.Fatal("expected job to be completed after context was cancelled")
			}
		})
	})
	t.Run("job ticker executes", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond*100)
			tester := &testType{}

			testJob := New(time.Millisecond*10, tester.testFunc)
			testJob.Start(ctx)

			synctest.Wait()
			cancel()
			if tester.count != 5 {
				t.Errorf("expected job to execute 5 times, got %d", tester.count)
			}
		})
		t.Run("nil job returns", func(t *testing.T) {
			tester := New(time.Millisecond*100, nil)
			tester.Start(t.Context())
		})
		t.Run("zero interval returns", func(t *testing.T) {
			tester := &testType{}
			New(0, tester.testFunc).Start(t.Context())
			if tester.count != 0 {
				t.Errorf("expected job to never execute, got %d runs", tester.count)
			}
		})
	})
	t.Run("adaptive interval is evaluated before every tick", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond*95)
			defer cancel()

			var runs []time.Duration
			start := time.Now()
			calls := 0
			testJob := NewAdaptive(func() time.Duration {
				calls++
				if calls == 1 {
					return time.Millisecond * 40
				}
				return time.Millisecond * 10
			}, func(context.Context) {
				runs = append(runs, time.Since(start))
			})
			testJob.Start(ctx)
			synctest.Wait()

			want := []time.Duration{40, 50, 60, 70, 80, 90}
			if len(runs) != len(want) {
				t.Fatalf("expected %d runs, got %d: %v", len(want), len(runs), runs)
			}
			for i, w := range want {
				if runs[i] != w*time.Millisecond {
					t.Errorf("run %d: expected offset %dms, got %s", i, w, runs[i])
				}
			}
		})
	})
	t.Run("overlapping runs are skipped", func(t *testing.T) {
		synctest.Test(t, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(t.Context(), time.Millisecond*95)
			defer cancel()

			runs := 0
			testJob := New(time.Millisecond*10, func(ctx context.Context) {
				runs++
				select {
				case <-ctx.Done():
				case <-time.After(time.Millisecond * 25):
				}
			})
			testJob.Start(ctx)
			synctest.Wait()

			if runs != 3 {
				t.Errorf("expected 3 runs, got %d", runs)
			}
		})
	})
}

func (t *testType) testFunc(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	default:
		if t.count >= 5 {
			return
		}
		t.count++
	}
}
