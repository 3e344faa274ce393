package greenhouse

import (
	"math"
	"math/rand"
	"sync"
)

const (
	DefaultMoisture = 50.0
	DefaultPH       = 7.0
	DefaultNitrogen = 20.0

	nitrogenPerTick = 3.0
	limeStep        = 0.5
)

// SoilState is a copy of the soil values pushed to subscribers.
type SoilState struct {
	Moisture float64 // percent, [0,100]
	PH       float64 // [0,14]
	Nitrogen float64 // >= 0
}

func DefaultSoil() SoilState {
	return SoilState{Moisture: DefaultMoisture, PH: DefaultPH, Nitrogen: DefaultNitrogen}
}

// Soil is the simulated soil bed of one greenhouse. Every mutation clamps
// and notifies exactly once.
type Soil struct {
	mu  sync.Mutex
	rng *rand.Rand
	st  SoilState
	pub Publisher[SoilState]
}

func NewSoil(rng *rand.Rand, initial SoilState) *Soil {
	s := &Soil{rng: rng}
	s.st = normalizeSoil(initial)
	return s
}

// UpdateState applies one tick: pH drift driven by nitrogen, evaporation,
// then nitrogen uptake.
func (s *Soil) UpdateState() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.PH = clamp(s.st.PH+math.Mod(-s.st.Nitrogen, 14)*0.1, 0, 14)
	s.st.Moisture = clamp(s.st.Moisture-s.st.Moisture*(0.04+s.rng.Float64()*0.01), 0, 100)
	s.st.Nitrogen = math.Max(0, s.st.Nitrogen-nitrogenPerTick)

	s.pub.Notify(s.st)
}

// WaterSoil adds moisture and washes out some nitrogen.
func (s *Soil) WaterSoil(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.Moisture = clamp(s.st.Moisture+amount, 0, 100)
	leached := amount * (0.05 + s.rng.Float64()*0.25)
	s.st.Nitrogen = math.Max(0, s.st.Nitrogen-leached)

	s.pub.Notify(s.st)
}

// Fertilize adds nitrogen; the richer the soil, the more it acidifies.
func (s *Soil) Fertilize(amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.Nitrogen = math.Max(0, s.st.Nitrogen+amount)
	s.st.PH = clamp(s.st.PH-s.st.Nitrogen/100, 0, 14)

	s.pub.Notify(s.st)
}

func (s *Soil) Lime() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.PH = clamp(s.st.PH+limeStep, 0, 14)

	s.pub.Notify(s.st)
}

func (s *Soil) State() SoilState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st
}

func (s *Soil) Restore(st SoilState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = normalizeSoil(st)
	s.pub.Notify(s.st)
}

func (s *Soil) Attach(fn func(SoilState)) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.pub.Subscribe(fn)
	fn(s.st)
	return h
}

func (s *Soil) Detach(h Handle) bool {
	return s.pub.Unsubscribe(h)
}

func (s *Soil) Subscribers() int {
	return s.pub.Len()
}

func normalizeSoil(st SoilState) SoilState {
	st.Moisture = clamp(st.Moisture, 0, 100)
	st.PH = clamp(st.PH, 0, 14)
	st.Nitrogen = math.Max(0, st.Nitrogen)
	return st
}
