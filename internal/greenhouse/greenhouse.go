package greenhouse

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var seedCounter atomic.Int64

// Option customizes a greenhouse at construction.
type Option func(*options)

type options struct {
	newRand func() *rand.Rand
	soil    SoilState
}

// WithRandSource sets the generator factory; it is called once for the air
// and once for the soil.
func WithRandSource(src func() *rand.Rand) Option {
	return func(o *options) { o.newRand = src }
}

// WithSoil sets the initial soil values.
func WithSoil(st SoilState) Option {
	return func(o *options) { o.soil = st }
}

func defaultRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano() + seedCounter.Add(1)))
}

// SeededSource returns a deterministic generator factory.
func SeededSource(seed int64) func() *rand.Rand {
	var mu sync.Mutex
	root := rand.New(rand.NewSource(seed))
	return func() *rand.Rand {
		mu.Lock()
		defer mu.Unlock()
		return rand.New(rand.NewSource(root.Int63()))
	}
}

// Reading is one sensor value at the time it was taken.
type Reading struct {
	SensorID int
	Kind     SensorKind
	Value    float64
}

// GreenHouse owns one air, one soil and the devices attached to them.
// Sensor and appliance ids are never reused.
type GreenHouse struct {
	id   int
	air  *Air
	soil *Soil

	mu              sync.RWMutex
	sensors         map[int]*Sensor
	appliances      map[int]*Appliance
	nextSensorID    int
	nextApplianceID int
}

func New(id int, opts ...Option) *GreenHouse {
	o := options{newRand: defaultRand, soil: DefaultSoil()}
	for _, opt := range opts {
		opt(&o)
	}
	return &GreenHouse{
		id:         id,
		air:        NewAir(o.newRand()),
		soil:       NewSoil(o.newRand(), o.soil),
		sensors:    make(map[int]*Sensor),
		appliances: make(map[int]*Appliance),
	}
}

func (g *GreenHouse) ID() int     { return g.id }
func (g *GreenHouse) Air() *Air   { return g.air }
func (g *GreenHouse) Soil() *Soil { return g.soil }

// Tick advances air then soil by one step.
func (g *GreenHouse) Tick() {
	g.air.UpdateState()
	g.soil.UpdateState()
}

func (g *GreenHouse) AddSensor(kind SensorKind) (*Sensor, error) {
	if _, ok := sensorKinds[kind]; !ok {
		return nil, fmt.Errorf("%w: sensor %q", ErrUnknownKind, kind)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.addSensorLocked(g.nextSensorID, kind)
	return s, nil
}

func (g *GreenHouse) addSensorLocked(id int, kind SensorKind) *Sensor {
	s := &Sensor{id: id, kind: kind}
	s.attach(g.air, g.soil)
	g.sensors[id] = s
	if id >= g.nextSensorID {
		g.nextSensorID = id + 1
	}
	return s
}

func (g *GreenHouse) Sensor(id int) (*Sensor, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := g.sensors[id]
	return s, ok
}

// Sensors returns the sensors ordered by id.
func (g *GreenHouse) Sensors() []*Sensor {
	g.mu.RLock()
	out := make([]*Sensor, 0, len(g.sensors))
	for _, s := range g.sensors {
		out = append(out, s)
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// RemoveSensor detaches the sensor from its source and forgets it.
func (g *GreenHouse) RemoveSensor(id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sensors[id]
	if !ok {
		return fmt.Errorf("%w: sensor %d in greenhouse %d", ErrNotFound, id, g.id)
	}
	s.close()
	delete(g.sensors, id)
	return nil
}

func (g *GreenHouse) AddAppliance(kind ApplianceKind) (*Appliance, error) {
	if _, ok := applianceKinds[kind]; !ok {
		return nil, fmt.Errorf("%w: appliance %q", ErrUnknownKind, kind)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addApplianceLocked(g.nextApplianceID, kind, false), nil
}

func (g *GreenHouse) addApplianceLocked(id int, kind ApplianceKind, powered bool) *Appliance {
	a := &Appliance{id: id, kind: kind, air: g.air}
	if kind.IsSoil() {
		a.soil = g.soil
	} else {
		a.powered = powered
	}
	if kind == Aircondition && powered {
		a.mode = climateMode(g.air.State())
	}
	g.appliances[id] = a
	if id >= g.nextApplianceID {
		g.nextApplianceID = id + 1
	}
	return a
}

func (g *GreenHouse) Appliance(id int) (*Appliance, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	a, ok := g.appliances[id]
	return a, ok
}

func (g *GreenHouse) Appliances() []*Appliance {
	g.mu.RLock()
	out := make([]*Appliance, 0, len(g.appliances))
	for _, a := range g.appliances {
		out = append(out, a)
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (g *GreenHouse) RemoveAppliance(id int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.appliances[id]; !ok {
		return fmt.Errorf("%w: appliance %d in greenhouse %d", ErrNotFound, id, g.id)
	}
	delete(g.appliances, id)
	return nil
}

// ActuateAppliance runs the appliance's effect once.
func (g *GreenHouse) ActuateAppliance(id int) (*Appliance, error) {
	a, ok := g.Appliance(id)
	if !ok {
		return nil, fmt.Errorf("%w: appliance %d in greenhouse %d", ErrNotFound, id, g.id)
	}
	a.Actuate()
	return a, nil
}

func (g *GreenHouse) SetTargetTemperature(t float64) error {
	return g.air.SetTargetTemperature(t)
}

func (g *GreenHouse) SetTargetHumidity(h float64) error {
	return g.air.SetTargetHumidity(h)
}

// NextIDs returns the ids the next sensor and appliance will get.
func (g *GreenHouse) NextIDs() (sensor, appliance int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nextSensorID, g.nextApplianceID
}

// SensorDump is one line per sensor, ordered by id.
func (g *GreenHouse) SensorDump() []string {
	sensors := g.Sensors()
	out := make([]string, 0, len(sensors))
	for _, s := range sensors {
		out = append(out, s.String())
	}
	return out
}

func (g *GreenHouse) ApplianceDump() []string {
	apps := g.Appliances()
	out := make([]string, 0, len(apps))
	for _, a := range apps {
		out = append(out, a.String())
	}
	return out
}

func (g *GreenHouse) Readings() []Reading {
	sensors := g.Sensors()
	out := make([]Reading, 0, len(sensors))
	for _, s := range sensors {
		out = append(out, Reading{SensorID: s.id, Kind: s.kind, Value: s.Reading()})
	}
	return out
}

func (g *GreenHouse) String() string {
	return fmt.Sprintf("Greenhouse %d", g.id)
}

// Summary is a one-line description used in greenhouse listings.
func (g *GreenHouse) Summary() string {
	g.mu.RLock()
	ns, na := len(g.sensors), len(g.appliances)
	g.mu.RUnlock()
	return fmt.Sprintf("Greenhouse %d (sensors: %d, appliances: %d)", g.id, ns, na)
}
