// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/wneessen/stepnav/internal/bus"
	"github.com/wneessen/stepnav/internal/logger"
	"github.com/wneessen/stepnav/internal/pose"
)

const (
	name = "mqtt"

	DefaultPoseTopic     = "stepnav/pose"
	DefaultLandmarkTopic = "stepnav/landmark/+"

	connectTimeout = time.Second * 10
	disconnectWait = 250
	bufferSize     = 64
)

// PoseProvider streams pose samples published by the AR session to an MQTT broker. Samples on
// the pose topic are camera poses. Samples on the landmark topic are landmark resolutions,
// the last topic level is the landmark id.
type PoseProvider struct {
	name          string
	poseTopic     string
	landmarkTopic string
	logger        *logger.Logger
	connectFn     func(onLost func(error)) (paho.Client, error)
}

// NewPoseProvider returns a provider for the given broker and topics. Empty topics fall back
// to the defaults.
func NewPoseProvider(broker, clientID, poseTopic, landmarkTopic string, log *logger.Logger) *PoseProvider {
	if poseTopic == "" {
		poseTopic = DefaultPoseTopic
	}
	if landmarkTopic == "" {
		landmarkTopic = DefaultLandmarkTopic
	}
	return &PoseProvider{
		name:          name,
		poseTopic:     poseTopic,
		landmarkTopic: landmarkTopic,
		logger:        log,
		connectFn: func(onLost func(error)) (paho.Client, error) {
			return Connect(broker, clientID, onLost)
		},
	}
}

// Connect connects to the broker. onLost is called if the connection drops, the client does not
// reconnect on its own.
func Connect(broker, clientID string, onLost func(error)) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(false).
		SetConnectTimeout(connectTimeout)
	if onLost != nil {
		opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
			onLost(err)
		})
	}

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", broker, err)
	}
	return client, nil
}

func (p *PoseProvider) Name() string {
	return p.name
}

// LookupStream emits camera poses under key and landmark resolutions under their landmark
// keys. The stream ends when the context ends or the connection is lost.
func (p *PoseProvider) LookupStream(ctx context.Context, key string) <-chan bus.Result[pose.Sample] {
	out := make(chan bus.Result[pose.Sample])
	go func() {
		defer close(out)

		lost := make(chan error, 1)
		client, err := p.connectFn(func(err error) {
			select {
			case lost <- err:
			default:
			}
		})
		if err != nil {
			p.logWarn("failed to connect", err)
			return
		}
		defer client.Disconnect(disconnectWait)

		msgs := make(chan bus.Result[pose.Sample], bufferSize)
		done := make(chan struct{})
		defer close(done)
		handler := func(_ paho.Client, msg paho.Message) {
			r, ok := p.handleMessage(key, msg.Topic(), msg.Payload())
			if !ok {
				return
			}
			select {
			case msgs <- r:
			case <-done:
			}
		}

		for _, topic := range []string{p.poseTopic, p.landmarkTopic} {
			token := client.Subscribe(topic, 0, handler)
			token.Wait()
			if err = token.Error(); err != nil {
				p.logWarn("failed to subscribe to "+topic, err)
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case err = <-lost:
				p.logWarn("connection lost", err)
				return
			case r := <-msgs:
				select {
				case <-ctx.Done():
					return
				case out <- r:
				}
			}
		}
	}()
	return out
}

// handleMessage decodes a sample published on topic into a result.
func (p *PoseProvider) handleMessage(key, topic string, payload []byte) (bus.Result[pose.Sample], bool) {
	var sample pose.Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		p.logWarn("failed to decode sample from "+topic, err)
		return bus.Result[pose.Sample]{}, false
	}
	if sample.Pose.IsZero() {
		return bus.Result[pose.Sample]{}, false
	}

	if topicMatches(p.poseTopic, topic) {
		return p.createResult(key, sample), true
	}
	if topicMatches(p.landmarkTopic, topic) {
		id := topic[strings.LastIndex(topic, "/")+1:]
		if id == "" {
			return bus.Result[pose.Sample]{}, false
		}
		return p.createResult(pose.LandmarkKey(id), sample), true
	}
	return bus.Result[pose.Sample]{}, false
}

// createResult composes a Result for the given sample.
func (p *PoseProvider) createResult(key string, sample pose.Sample) bus.Result[pose.Sample] {
	return bus.Result[pose.Sample]{
		Key:    key,
		Value:  sample,
		Source: p.name,
		At:     time.Now(),
	}
}

func (p *PoseProvider) logWarn(msg string, err error) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, slog.String("provider", p.name), logger.Err(err))
}

// topicMatches reports whether topic matches the subscription filter. It supports the + and #
// wildcards.
func topicMatches(filter, topic string) bool {
	filterLevels := strings.Split(filter, "/")
	topicLevels := strings.Split(topic, "/")
	for i, level := range filterLevels {
		if level == "#" {
			return true
		}
		if i >= len(topicLevels) {
			return false
		}
		if level != "+" && level != topicLevels[i] {
			return false
		}
	}
	return len(filterLevels) == len(topicLevels)
}
