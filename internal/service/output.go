// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/wneessen/stepnav/internal/announce"
	"github.com/wneessen/stepnav/internal/bus/provider/mqtt"
	"github.com/wneessen/stepnav/internal/geofix"
	"github.com/wneessen/stepnav/internal/logger"
	"github.com/wneessen/stepnav/internal/navigation"
	"github.com/wneessen/stepnav/internal/vartype"
)

const (
	messageState = "state"
	messageCue   = "cue"

	publishTimeout = 5 * time.Second
	disconnectWait = 250
)

type outputData struct {
	Text    string `json:"text"`
	Alt     string `json:"alt"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
}

// message is the payload for websocket clients and the MQTT directions topic.
type message struct {
	Type  string               `json:"type"`
	State *stateData           `json:"state,omitempty"`
	Cue   *navigation.Feedback `json:"cue,omitempty"`
}

type stateData struct {
	State       string                   `json:"state"`
	Route       string                   `json:"route,omitempty"`
	Destination string                   `json:"destination,omitempty"`
	Text        string                   `json:"text"`
	Tooltip     string                   `json:"tooltip"`
	Direction   navigation.DirectionInfo `json:"direction"`
	Feedback    navigation.Feedback      `json:"feedback"`
	Remaining   int                      `json:"remaining"`
	Total       int                      `json:"total"`
	Nearby      []nearbyData             `json:"nearby,omitempty"`
	Reachable   []string                 `json:"reachable,omitempty"`
	Position    *geofix.Coordinate       `json:"position,omitempty"`
	Heading     vartype.VarFloat64       `json:"heading"`
	UpdateTime  time.Time                `json:"update_time"`
}

type nearbyData struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Distance float64 `json:"distance"`
}

// setupOutputs opens the path log store and connects the optional outputs.
func (s *Service) setupOutputs(ctx context.Context) error {
	if s.config.PathLog.Enabled {
		store, err := s.openStore(ctx)
		if err != nil {
			return fmt.Errorf("failed to open path log store: %w", err)
		}
		s.store = store
	}

	if s.config.Output.Notifications {
		notifier, err := announce.NewDBus()
		if err != nil {
			s.logger.Warn("desktop notifications are unavailable, announcing to the log", logger.Err(err))
		} else {
			s.announcer = notifier
		}
	}

	if s.config.Output.MQTTTopic != "" {
		if s.config.Pose.Broker == "" {
			return fmt.Errorf("mqtt output requires a broker")
		}
		client, err := mqtt.Connect(s.config.Pose.Broker, s.config.Pose.ClientID+"-directions", func(err error) {
			s.logger.Warn("mqtt output connection lost", logger.Err(err))
		})
		if err != nil {
			return fmt.Errorf("failed to connect mqtt output: %w", err)
		}
		s.publisher = client
	}
	return nil
}

func (s *Service) closeOutputs() {
	if s.publisher != nil {
		s.publisher.Disconnect(disconnectWait)
	}
	for _, c := range []any{s.store, s.announcer} {
		closer, ok := c.(io.Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			s.logger.Error("failed to close output", logger.Err(err))
		}
	}
}

// printState renders the current status and sends it to all outputs.
func (s *Service) printState(ctx context.Context) {
	status := s.Status()
	tplCtx := s.presenter.BuildContext(status)
	out, err := s.presenter.Render(tplCtx)
	if err != nil {
		s.logger.Error("failed to render templates", logger.Err(err))
		return
	}

	s.displayAltLock.RLock()
	if s.displayAltText {
		out.Text, out.AltText = out.AltText, out.Text
		out.Tooltip, out.AltTooltip = out.AltTooltip, out.Tooltip
	}
	s.displayAltLock.RUnlock()

	if !s.config.Output.DisableStdout {
		output := outputData{
			Text:    out.Text,
			Alt:     tplCtx.State,
			Tooltip: out.Tooltip,
			Class:   OutputClass,
		}
		if err = json.NewEncoder(s.output).Encode(output); err != nil {
			s.logger.Error("failed to encode navigation state", logger.Err(err))
		}
	}

	state := &stateData{
		State:       tplCtx.State,
		Route:       tplCtx.Route,
		Destination: tplCtx.Destination,
		Text:        out.Text,
		Tooltip:     out.Tooltip,
		Direction:   tplCtx.Direction,
		Feedback:    tplCtx.Feedback,
		Remaining:   tplCtx.Remaining,
		Total:       tplCtx.Total,
		Reachable:   tplCtx.Reachable,
		Position:    status.Position,
		Heading:     status.Heading,
		UpdateTime:  tplCtx.UpdateTime,
	}
	for _, n := range status.Nearby {
		state.Nearby = append(state.Nearby, nearbyData{
			ID:       n.Anchor.ID,
			Name:     n.Anchor.Name,
			Category: n.Anchor.Category,
			Distance: n.Distance,
		})
	}
	s.publish(ctx, message{Type: messageState, State: state})
}

// publish sends a message to the websocket clients and the MQTT directions topic.
func (s *Service) publish(ctx context.Context, msg message) {
	if err := s.hub.Broadcast(msg); err != nil {
		s.logger.Error("failed to broadcast to web clients", logger.Err(err))
	}
	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("failed to marshal mqtt payload", logger.Err(err))
		return
	}
	token := s.publisher.Publish(s.config.Output.MQTTTopic, 0, false, payload)
	timer := time.NewTimer(publishTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return
	case <-timer.C:
		s.logger.Warn("mqtt publish timed out", slog.String("topic", s.config.Output.MQTTTopic))
		return
	case <-token.Done():
	}
	if err = token.Error(); err != nil {
		s.logger.Error("failed to publish to mqtt", logger.Err(err), slog.String("topic", s.config.Output.MQTTTopic))
	}
}

func (s *Service) announce(ctx context.Context, a announce.Announcement) {
	if err := s.announcer.Announce(ctx, a); err != nil {
		s.logger.Warn("failed to announce", logger.Err(err), slog.String("summary", a.Summary))
	}
}

