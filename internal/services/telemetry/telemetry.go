// Package telemetry mirrors greenhouse readings to MQTT and applies
// appliance commands received from it.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/greenhouse"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/metrics"
	"github.com/LeonardoBeccarini/greenhouse_project/internal/model/messages"
	"github.com/LeonardoBeccarini/greenhouse_project/pkg/dedup"
	"github.com/LeonardoBeccarini/greenhouse_project/pkg/rabbitmq"
)

type Config struct {
	ReadingsTopic string // fmt pattern with one %d for the greenhouse id
	ResultTopic   string // fmt pattern with one %d for the greenhouse id

	BreakerFails int
	BreakerOpen  time.Duration
	DedupTTL     time.Duration
	QueueSize    int
}

func (c *Config) withDefaults() {
	if c.ReadingsTopic == "" {
		c.ReadingsTopic = "greenhouse/%d/readings"
	}
	if c.ResultTopic == "" {
		c.ResultTopic = "greenhouse/%d/result"
	}
	if c.BreakerFails <= 0 {
		c.BreakerFails = 5
	}
	if c.BreakerOpen <= 0 {
		c.BreakerOpen = 10 * time.Second
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
}

type Service struct {
	cfg       Config
	publisher rabbitmq.IPublisher
	consumer  rabbitmq.IConsumer
	source    func() []*greenhouse.GreenHouse
	lookup    func(id int) (*greenhouse.GreenHouse, bool)
	deduper   *dedup.Deduper
	cb        *gobreaker.CircuitBreaker
	queue     chan messages.ReadingsMessage
	now       func() time.Time
}

func NewService(
	publisher rabbitmq.IPublisher,
	consumer rabbitmq.IConsumer,
	source func() []*greenhouse.GreenHouse,
	lookup func(id int) (*greenhouse.GreenHouse, bool),
	cfg Config,
) *Service {
	cfg.withDefaults()
	fails := uint32(cfg.BreakerFails)
	return &Service{
		cfg:       cfg,
		publisher: publisher,
		consumer:  consumer,
		source:    source,
		lookup:    lookup,
		deduper:   dedup.New(cfg.DedupTTL, 0),
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "mqtt-publish",
			Timeout: cfg.BreakerOpen,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= fails
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Printf("telemetry: breaker %s %s -> %s", name, from, to)
			},
		}),
		queue: make(chan messages.ReadingsMessage, cfg.QueueSize),
		now:   time.Now,
	}
}

// Tick snapshots every greenhouse's readings and queues them for publishing.
// It never blocks the clock: when the queue is full the batch is dropped.
func (s *Service) Tick() {
	ts := s.now().UTC()
	for _, gh := range s.source() {
		msg := messages.ReadingsMessage{GreenhouseID: gh.ID(), Readings: []messages.Reading{}, Timestamp: ts}
		for _, r := range gh.Readings() {
			msg.Readings = append(msg.Readings, messages.Reading{SensorID: r.SensorID, Kind: string(r.Kind), Value: r.Value})
		}
		select {
		case s.queue <- msg:
		default:
			metrics.TelemetryPublishedTotal.WithLabelValues("dropped").Inc()
		}
	}
}

// Start consumes commands and drains the publish queue until ctx is done.
func (s *Service) Start(ctx context.Context) error {
	s.consumer.SetHandler(s.handleMessage)
	errc := make(chan error, 1)
	go func() { errc <- s.consumer.ConsumeMessage(ctx) }()

	for {
		select {
		case <-ctx.Done():
			if errc == nil {
				return nil
			}
			return <-errc
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			errc = nil
		case msg := <-s.queue:
			_ = s.publishReadings(msg)
		}
	}
}

func (s *Service) publishReadings(msg messages.ReadingsMessage) error {
	err := s.publishJSON(fmt.Sprintf(s.cfg.ReadingsTopic, msg.GreenhouseID), msg)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.TelemetryPublishedTotal.WithLabelValues("open").Inc()
	case err != nil:
		metrics.TelemetryPublishedTotal.WithLabelValues("failed").Inc()
		log.Printf("telemetry: publish readings greenhouse=%d: %v", msg.GreenhouseID, err)
	default:
		metrics.TelemetryPublishedTotal.WithLabelValues("ok").Inc()
	}
	return err
}

func (s *Service) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.cb.Execute(func() (interface{}, error) {
		return nil, s.publisher.PublishMessage(topic, payload)
	})
	return err
}

// handleMessage applies one appliance command. Malformed or unknown commands
// are answered with a FAIL result and never returned as errors, so they do
// not stall the subscription.
func (s *Service) handleMessage(topic string, msg mqtt.Message) error {
	var cmd messages.ApplianceCommand
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		metrics.RemoteCommandsTotal.WithLabelValues("invalid").Inc()
		log.Printf("telemetry: invalid command on %s: %v", topic, err)
		return nil
	}

	id := cmd.ID
	if id == "" {
		h := sha256.Sum256(msg.Payload())
		id = hex.EncodeToString(h[:])
	}
	if !s.deduper.ShouldProcess(id) {
		metrics.RemoteCommandsTotal.WithLabelValues("duplicate").Inc()
		return nil
	}

	res := s.apply(topic, cmd)
	res.CommandID = id
	res.Timestamp = s.now().UTC()
	if res.Status == "OK" {
		metrics.RemoteCommandsTotal.WithLabelValues("ok").Inc()
		log.Printf("telemetry: greenhouse=%d appliance=%d toggled: %s", cmd.GreenhouseID, cmd.ApplianceID, res.Appliance)
	} else {
		metrics.RemoteCommandsTotal.WithLabelValues("rejected").Inc()
		log.Printf("telemetry: greenhouse=%d appliance=%d rejected: %s", cmd.GreenhouseID, cmd.ApplianceID, res.Reason)
	}
	if err := s.publishJSON(fmt.Sprintf(s.cfg.ResultTopic, cmd.GreenhouseID), res); err != nil {
		log.Printf("telemetry: publish result: %v", err)
	}
	return nil
}

func (s *Service) apply(topic string, cmd messages.ApplianceCommand) messages.ApplianceResultEvent {
	res := messages.ApplianceResultEvent{GreenhouseID: cmd.GreenhouseID, ApplianceID: cmd.ApplianceID, Status: "FAIL"}
	if id, ok := topicGreenhouse(topic); ok && id != cmd.GreenhouseID {
		res.Reason = "topic_mismatch"
		return res
	}
	if cmd.Action != messages.ActionToggle {
		res.Reason = "unknown_action"
		return res
	}
	gh, ok := s.lookup(cmd.GreenhouseID)
	if !ok {
		res.Reason = "greenhouse_not_found"
		return res
	}
	a, err := gh.ActuateAppliance(cmd.ApplianceID)
	if err != nil {
		res.Reason = "appliance_not_found"
		return res
	}
	res.Status = "OK"
	res.Appliance = a.String()
	return res
}

// topicGreenhouse extracts <id> from greenhouse/<id>/command.
func topicGreenhouse(topic string) (int, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "greenhouse" {
		return 0, false
	}
	id, err := strconv.Atoi(parts[1])
	return id, err == nil
}
