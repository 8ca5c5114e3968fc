// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package announce

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/wneessen/stepnav/internal/logger"
)

type fakeCaller struct {
	calls [][]any
	ids   []uint32
	err   error
}

func (f *fakeCaller) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...any) *dbus.Call {
	f.calls = append(f.calls, args)
	call := &dbus.Call{Method: method}
	if f.err != nil {
		call.Err = f.err
		return call
	}
	call.Body = []any{f.ids[len(f.calls)-1]}
	return call
}

func TestDBus_Announce(t *testing.T) {
	t.Run("notifications replace each other", func(t *testing.T) {
		fake := &fakeCaller{ids: []uint32{7, 8}}
		notifier := &DBus{obj: fake, timeout: 3 * time.Second}

		first := Announcement{Summary: "Keypoint reached", Body: "2 keypoints remaining", Urgency: UrgencyNormal}
		if err := notifier.Announce(t.Context(), first); err != nil {
			t.Fatalf("failed to announce: %s", err)
		}
		if err := notifier.Announce(t.Context(), Announcement{Summary: "You have arrived"}); err != nil {
			t.Fatalf("failed to announce: %s", err)
		}
		if len(fake.calls) != 2 {
			t.Fatalf("expected 2 calls, got %d", len(fake.calls))
		}

		want := []any{
			AppName, uint32(0), "", "Keypoint reached", "2 keypoints remaining", []string{},
			map[string]dbus.Variant{"urgency": dbus.MakeVariant(UrgencyNormal)}, int32(3000),
		}
		if diff := cmp.Diff(want, fake.calls[0], cmp.Comparer(func(a, b dbus.Variant) bool {
			return a.String() == b.String()
		})); diff != "" {
			t.Errorf("unexpected notify arguments (-want +got):\n%s", diff)
		}
		if replaces := fake.calls[1][1]; replaces != uint32(7) {
			t.Errorf("expected second notification to replace 7, got %v", replaces)
		}
		if notifier.last != 8 {
			t.Errorf("expected last notification id to be 8, got %d", notifier.last)
		}
	})
	t.Run("failing call is returned", func(t *testing.T) {
		fake := &fakeCaller{err: errors.New("intentionally failing")}
		notifier := &DBus{obj: fake}
		err := notifier.Announce(t.Context(), Announcement{Summary: "test"})
		if err == nil {
			t.Fatal("expected announce to fail")
		}
		if !strings.Contains(err.Error(), "intentionally failing") {
			t.Errorf("unexpected error: %s", err)
		}
	})
	t.Run("closing without connection succeeds", func(t *testing.T) {
		notifier := &DBus{}
		if err := notifier.Close(); err != nil {
			t.Errorf("failed to close: %s", err)
		}
	})
}

func TestLog_Announce(t *testing.T) {
	buf := bytes.NewBuffer(nil)
	announcer := Log{Logger: logger.NewLogger(slog.LevelInfo, buf)}
	if err := announcer.Announce(t.Context(), Announcement{Summary: "You have arrived", Body: "Library"}); err != nil {
		t.Fatalf("failed to announce: %s", err)
	}
	for _, want := range []string{`msg="You have arrived"`, "body=Library", "urgency=0"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected log to contain %q, got %q", want, buf.String())
		}
	}
}
