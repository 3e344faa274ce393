package greenhouse

import (
	"fmt"
	"strings"
	"sync"
)

type ApplianceKind string

const (
	Aircondition ApplianceKind = "aircondition"
	Lamp         ApplianceKind = "lamp"
	Humidifier   ApplianceKind = "humidifier"
	Sprinkler    ApplianceKind = "sprinkler"
	Fertilizer   ApplianceKind = "fertilizer"
	Limer        ApplianceKind = "limer"
)

// Mode is the working mode of an aircondition.
type Mode string

const (
	ModeNone    Mode = ""
	ModeHeating Mode = "heating"
	ModeCooling Mode = "cooling"
)

const (
	sprinklerWater = 20.0
	fertilizerDose = 10.0
)

type applianceSpec struct {
	label  string
	soil   bool
	effect func(a *Appliance)
}

var applianceKinds = map[ApplianceKind]applianceSpec{
	Aircondition: {label: "Aircondition", effect: toggleClimate},
	Lamp:         {label: "Lamp", effect: togglePower},
	Humidifier:   {label: "Humidifier", effect: togglePower},
	Sprinkler:    {label: "Sprinkler", soil: true, effect: func(a *Appliance) { a.soil.WaterSoil(sprinklerWater) }},
	Fertilizer:   {label: "Fertilizer", soil: true, effect: func(a *Appliance) { a.soil.Fertilize(fertilizerDose) }},
	Limer:        {label: "Limer", soil: true, effect: func(a *Appliance) { a.soil.Lime() }},
}

func ParseApplianceKind(s string) (ApplianceKind, error) {
	k := ApplianceKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := applianceKinds[k]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: appliance %q", ErrUnknownKind, s)
}

func ApplianceKinds() []ApplianceKind {
	return []ApplianceKind{Aircondition, Lamp, Humidifier, Sprinkler, Fertilizer, Limer}
}

func (k ApplianceKind) Label() string { return applianceKinds[k].label }

// IsSoil reports whether the kind acts on the soil rather than the air.
func (k ApplianceKind) IsSoil() bool { return applianceKinds[k].soil }

type Appliance struct {
	id   int
	kind ApplianceKind

	air  *Air
	soil *Soil

	mu      sync.Mutex
	powered bool
	mode    Mode
}

func (a *Appliance) ID() int             { return a.id }
func (a *Appliance) Kind() ApplianceKind { return a.kind }

func (a *Appliance) Powered() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.powered
}

func (a *Appliance) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Actuate runs the kind's effect once.
func (a *Appliance) Actuate() {
	applianceKinds[a.kind].effect(a)
}

func (a *Appliance) String() string {
	label := a.kind.Label()
	if a.kind.IsSoil() {
		return fmt.Sprintf("Appliance [Type: %s, ID: %d]", label, a.id)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	status := "off"
	if a.powered {
		status = "on"
	}
	if a.mode != ModeNone {
		return fmt.Sprintf("Appliance [Type: %s, ID: %d, Status: %s, Mode: %s]", label, a.id, status, a.mode)
	}
	return fmt.Sprintf("Appliance [Type: %s, ID: %d, Status: %s]", label, a.id, status)
}

func togglePower(a *Appliance) {
	a.mu.Lock()
	a.powered = !a.powered
	a.mu.Unlock()
}

// toggleClimate flips power; switching on picks heating when the air is
// below its target and cooling otherwise.
func toggleClimate(a *Appliance) {
	st := a.air.State()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.powered = !a.powered
	if a.powered {
		a.mode = climateMode(st)
	} else {
		a.mode = ModeNone
	}
}

func climateMode(st AirState) Mode {
	if st.Temperature < st.TargetTemperature {
		return ModeHeating
	}
	return ModeCooling
}
