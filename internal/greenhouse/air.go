package greenhouse

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
)

const (
	DefaultTargetTemperature = 15.0
	DefaultTargetHumidity    = 0.65
	DefaultTargetLux         = 20000.0

	maxInitialLux         = 100000.0
	maxInitialTemperature = 40.0
)

// AirState is a copy of the air values pushed to subscribers.
type AirState struct {
	Humidity          float64
	Lux               float64
	Temperature       float64
	TargetHumidity    float64
	TargetTemperature float64
	TargetLux         float64
	Hour              int
}

// band maps a minimum distance from the target to the probability of
// stepping towards it. Bands are checked in order.
type band struct {
	over float64
	p    float64
}

var (
	temperatureBands = []band{{20, 0.97}, {10, 0.92}, {2, 0.85}}
	humidityBands    = []band{{0.5, 0.97}, {0.2, 0.92}, {0.01, 0.88}}
)

// Air is the simulated atmosphere of one greenhouse.
type Air struct {
	mu  sync.Mutex
	rng *rand.Rand
	st  AirState

	humiditySet    bool
	luxSet         bool
	temperatureSet bool

	pub Publisher[AirState]
}

func NewAir(rng *rand.Rand) *Air {
	return &Air{
		rng: rng,
		st: AirState{
			TargetHumidity:    DefaultTargetHumidity,
			TargetTemperature: DefaultTargetTemperature,
			TargetLux:         DefaultTargetLux,
		},
	}
}

// UpdateState advances the air by one tick and notifies subscribers.
func (a *Air) UpdateState() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.st.Hour = (a.st.Hour + 1) % 24

	if !a.humiditySet {
		a.st.Humidity = a.rng.Float64()
		a.humiditySet = true
	}
	if !a.luxSet {
		a.st.Lux = a.rng.Float64() * maxInitialLux
		a.luxSet = true
	}
	if !a.temperatureSet {
		a.st.Temperature = a.rng.Float64() * maxInitialTemperature
		a.temperatureSet = true
	}

	weather := 0.8 + a.rng.Float64()*0.4
	sine := math.Sin(float64(a.st.Hour)/24.0*2*math.Pi - math.Pi/2)
	a.st.Lux = weather * (20015 + 19985*sine)

	a.st.Humidity = clamp(a.walk(a.st.Humidity, a.st.TargetHumidity, humidityBands, 0.005, 0.03), 0, 1)
	a.st.Temperature = a.walk(a.st.Temperature, a.st.TargetTemperature, temperatureBands, 0.25, 1.0)

	a.pub.Notify(a.st)
}

// walk takes one biased step of size U[min, min+spread] towards target.
func (a *Air) walk(cur, target float64, bands []band, min, spread float64) float64 {
	p := 0.5
	delta := math.Abs(cur - target)
	for _, b := range bands {
		if delta > b.over {
			p = b.p
			break
		}
	}
	if cur >= target {
		p = 1 - p
	}
	step := a.rng.Float64()*spread + min
	if a.rng.Float64() < p {
		return cur + step
	}
	return cur - step
}

func (a *Air) SetTargetTemperature(t float64) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("%w: temperature %v is not finite", ErrInvalidTarget, t)
	}
	a.mu.Lock()
	a.st.TargetTemperature = t
	a.mu.Unlock()
	return nil
}

func (a *Air) SetTargetHumidity(h float64) error {
	if h < 0 || h > 1 || math.IsNaN(h) {
		return fmt.Errorf("%w: humidity %v outside [0,1]", ErrInvalidTarget, h)
	}
	a.mu.Lock()
	a.st.TargetHumidity = h
	a.mu.Unlock()
	return nil
}

func (a *Air) State() AirState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.st
}

// Restore replaces every value and marks them as set so no lazy
// initialization happens afterwards.
func (a *Air) Restore(st AirState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st.Humidity = clamp(st.Humidity, 0, 1)
	if st.Lux < 0 {
		st.Lux = 0
	}
	st.Hour = ((st.Hour % 24) + 24) % 24
	a.st = st
	a.humiditySet, a.luxSet, a.temperatureSet = true, true, true
	a.pub.Notify(a.st)
}

// Attach registers fn and hands it the current state before any other
// notification can reach it.
func (a *Air) Attach(fn func(AirState)) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := a.pub.Subscribe(fn)
	fn(a.st)
	return h
}

func (a *Air) Detach(h Handle) bool {
	return a.pub.Unsubscribe(h)
}

func (a *Air) Subscribers() int {
	return a.pub.Len()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
