package greenhouse

import (
	"fmt"
	"strings"
	"sync"
)

type SensorKind string

const (
	TemperatureSensor SensorKind = "temperaturesensor"
	HumiditySensor    SensorKind = "humiditysensor"
	LightSensor       SensorKind = "lightsensor"
	MoistureSensor    SensorKind = "moisturesensor"
	PHSensor          SensorKind = "phsensor"
	NitrogenSensor    SensorKind = "nitrogensensor"
)

type sensorSpec struct {
	label string
	field string
	air   func(AirState) float64
	soil  func(SoilState) float64
}

var sensorKinds = map[SensorKind]sensorSpec{
	TemperatureSensor: {label: "TemperatureSensor", field: "temperature", air: func(s AirState) float64 { return s.Temperature }},
	HumiditySensor:    {label: "HumiditySensor", field: "humidity", air: func(s AirState) float64 { return s.Humidity }},
	LightSensor:       {label: "LightSensor", field: "lux", air: func(s AirState) float64 { return s.Lux }},
	MoistureSensor:    {label: "MoistureSensor", field: "moisture", soil: func(s SoilState) float64 { return s.Moisture }},
	PHSensor:          {label: "PHSensor", field: "ph", soil: func(s SoilState) float64 { return s.PH }},
	NitrogenSensor:    {label: "NitrogenSensor", field: "nitrogen", soil: func(s SoilState) float64 { return s.Nitrogen }},
}

// ParseSensorKind accepts the protocol names case-insensitively, with or
// without the "sensor" suffix ("temperature" and "TemperatureSensor" both
// resolve to TemperatureSensor).
func ParseSensorKind(s string) (SensorKind, error) {
	k := strings.ToLower(strings.TrimSpace(s))
	if _, ok := sensorKinds[SensorKind(k)]; ok {
		return SensorKind(k), nil
	}
	if _, ok := sensorKinds[SensorKind(k+"sensor")]; ok {
		return SensorKind(k + "sensor"), nil
	}
	return "", fmt.Errorf("%w: sensor %q", ErrUnknownKind, s)
}

// SensorKinds lists every known kind in a stable order.
func SensorKinds() []SensorKind {
	return []SensorKind{TemperatureSensor, HumiditySensor, LightSensor, MoistureSensor, PHSensor, NitrogenSensor}
}

func (k SensorKind) Label() string { return sensorKinds[k].label }

// Sensor mirrors one attribute of its greenhouse's air or soil. It only
// holds a registration handle on the source.
type Sensor struct {
	id   int
	kind SensorKind

	mu      sync.Mutex
	reading float64

	detach func()
}

func (s *Sensor) ID() int          { return s.id }
func (s *Sensor) Kind() SensorKind { return s.kind }

func (s *Sensor) Reading() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading
}

func (s *Sensor) set(v float64) {
	s.mu.Lock()
	s.reading = v
	s.mu.Unlock()
}

func (s *Sensor) String() string {
	spec := sensorKinds[s.kind]
	return fmt.Sprintf("%s{id=%d, %s=%.2f}", spec.label, s.id, spec.field, s.Reading())
}

// attach subscribes the sensor to the source its kind tracks.
func (s *Sensor) attach(air *Air, soil *Soil) {
	spec := sensorKinds[s.kind]
	switch {
	case spec.air != nil:
		h := air.Attach(func(st AirState) { s.set(spec.air(st)) })
		s.detach = func() { air.Detach(h) }
	case spec.soil != nil:
		h := soil.Attach(func(st SoilState) { s.set(spec.soil(st)) })
		s.detach = func() { soil.Detach(h) }
	}
}

func (s *Sensor) close() {
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
}
