// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package announce tells the user about navigation events that need attention, like a reached
// keypoint or the arrival at the destination.
package announce

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/wneessen/stepnav/internal/logger"
)

const (
	AppName = "stepnav"

	notifyDestination = "org.freedesktop.Notifications"
	notifyPath        = "/org/freedesktop/Notifications"
	notifyMethod      = "org.freedesktop.Notifications.Notify"

	defaultTimeout = 5 * time.Second
)

// Urgency levels of freedesktop notifications.
const (
	UrgencyLow byte = iota
	UrgencyNormal
	UrgencyCritical
)

// Announcement is a single message for the user.
type Announcement struct {
	Summary string
	Body    string
	Urgency byte
}

// Announcer delivers announcements.
type Announcer interface {
	Announce(ctx context.Context, a Announcement) error
}

type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// DBus sends announcements as desktop notifications. Every notification replaces the previous
// one, so only the latest event stays visible.
type DBus struct {
	conn    *dbus.Conn
	obj     caller
	timeout time.Duration

	mu   sync.Mutex
	last uint32
}

// NewDBus connects to the session bus.
func NewDBus() (*DBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &DBus{
		conn:    conn,
		obj:     conn.Object(notifyDestination, notifyPath),
		timeout: defaultTimeout,
	}, nil
}

// Announce implements Announcer.
func (d *DBus) Announce(ctx context.Context, a Announcement) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	hints := map[string]dbus.Variant{"urgency": dbus.MakeVariant(a.Urgency)}
	call := d.obj.CallWithContext(ctx, notifyMethod, 0, AppName, d.last, "", a.Summary, a.Body,
		[]string{}, hints, int32(d.timeout.Milliseconds()))
	if call.Err != nil {
		return fmt.Errorf("failed to send notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("failed to read notification id: %w", err)
	}
	d.last = id
	return nil
}

// Close closes the session bus connection.
func (d *DBus) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// Log writes announcements to the log.
type Log struct {
	Logger *logger.Logger
}

// Announce implements Announcer.
func (l Log) Announce(_ context.Context, a Announcement) error {
	l.Logger.Info(a.Summary, slog.String("body", a.Body), slog.Int("urgency", int(a.Urgency)))
	return nil
}
