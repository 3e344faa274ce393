package persistence

import (
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/greenhouse"
)

// Sink writes every sensor reading to InfluxDB on each clock tick. Writes go
// through the non-blocking WriteAPI; failures arrive on its error channel and
// only update LastErrorAge.
type Sink struct {
	api         api.WriteAPI
	measurement string
	source      func() []*greenhouse.GreenHouse
	now         func() time.Time

	mu      sync.RWMutex
	lastErr time.Time
	written int64
}

func NewSink(w api.WriteAPI, measurement string, source func() []*greenhouse.GreenHouse) *Sink {
	s := &Sink{
		api:         w,
		measurement: sanitizeMeasurement(measurement),
		source:      source,
		now:         time.Now,
		lastErr:     time.Now().Add(-24 * time.Hour),
	}
	go func() {
		for err := range w.Errors() {
			if err == nil {
				continue
			}
			s.mu.Lock()
			s.lastErr = time.Now()
			s.mu.Unlock()
			log.Printf("persistence: influx write error: %v", err)
		}
	}()
	return s
}

// Tick queues one point per sensor of every greenhouse.
func (s *Sink) Tick() {
	t := s.now()
	n := 0
	for _, gh := range s.source() {
		ghID := strconv.Itoa(gh.ID())
		for _, r := range gh.Readings() {
			tags := map[string]string{
				"greenhouse_id": ghID,
				"sensor_id":     strconv.Itoa(r.SensorID),
				"kind":          string(r.Kind),
			}
			fields := map[string]interface{}{"value": r.Value}
			s.api.WritePoint(influxdb2.NewPoint(s.measurement, tags, fields, t))
			n++
		}
	}
	s.mu.Lock()
	s.written += int64(n)
	s.mu.Unlock()
}

// Flush pushes buffered points out.
func (s *Sink) Flush() { s.api.Flush() }

// LastErrorAge is the time since the last asynchronous write error.
func (s *Sink) LastErrorAge() time.Duration {
	if s == nil {
		return 99999 * time.Hour
	}
	s.mu.RLock()
	t := s.lastErr
	s.mu.RUnlock()
	return time.Since(t)
}

// Written is the number of points queued so far.
func (s *Sink) Written() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.written
}

func sanitizeMeasurement(s string) string {
	if s == "" {
		return "greenhouse_reading"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == '_', r == ':', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
