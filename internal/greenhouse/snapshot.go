package greenhouse

import (
	"fmt"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/model/entities"
)

// Snapshot exports the greenhouse in its persisted shape.
func (g *GreenHouse) Snapshot() entities.GreenhouseSnapshot {
	air := g.air.State()
	soil := g.soil.State()

	snap := entities.GreenhouseSnapshot{
		ID: g.id,
		Air: entities.AirSnapshot{
			Humidity:          air.Humidity,
			Lux:               air.Lux,
			Temperature:       air.Temperature,
			TargetHumidity:    air.TargetHumidity,
			TargetTemperature: air.TargetTemperature,
			TargetLux:         air.TargetLux,
		},
		Soil: entities.SoilSnapshot{
			Moisture: soil.Moisture,
			PH:       soil.PH,
			Nitrogen: soil.Nitrogen,
		},
		Sensors:    []entities.SensorSnapshot{},
		Appliances: []entities.ApplianceSnapshot{},
	}
	for _, s := range g.Sensors() {
		snap.Sensors = append(snap.Sensors, entities.SensorSnapshot{ID: s.id, Type: string(s.kind)})
	}
	for _, a := range g.Appliances() {
		snap.Appliances = append(snap.Appliances, entities.ApplianceSnapshot{ID: a.id, Type: string(a.kind), Powered: a.Powered()})
	}
	snap.NextSensorID, snap.NextApplianceID = g.NextIDs()
	return snap
}

// Restore rebuilds a greenhouse from a snapshot, re-attaching sensors to the
// restored air and soil and re-binding soil appliances.
func Restore(snap entities.GreenhouseSnapshot, opts ...Option) (*GreenHouse, error) {
	if snap.ID < 0 {
		return nil, fmt.Errorf("restore: negative greenhouse id %d", snap.ID)
	}
	sKinds := make([]SensorKind, len(snap.Sensors))
	for i, s := range snap.Sensors {
		k, err := ParseSensorKind(s.Type)
		if err != nil {
			return nil, fmt.Errorf("restore greenhouse %d: %w", snap.ID, err)
		}
		sKinds[i] = k
	}
	aKinds := make([]ApplianceKind, len(snap.Appliances))
	for i, a := range snap.Appliances {
		k, err := ParseApplianceKind(a.Type)
		if err != nil {
			return nil, fmt.Errorf("restore greenhouse %d: %w", snap.ID, err)
		}
		aKinds[i] = k
	}

	g := New(snap.ID, opts...)
	g.air.Restore(AirState{
		Humidity:          snap.Air.Humidity,
		Lux:               snap.Air.Lux,
		Temperature:       snap.Air.Temperature,
		TargetHumidity:    snap.Air.TargetHumidity,
		TargetTemperature: snap.Air.TargetTemperature,
		TargetLux:         snap.Air.TargetLux,
	})
	g.soil.Restore(SoilState{Moisture: snap.Soil.Moisture, PH: snap.Soil.PH, Nitrogen: snap.Soil.Nitrogen})

	g.mu.Lock()
	defer g.mu.Unlock()
	for i, s := range snap.Sensors {
		if _, dup := g.sensors[s.ID]; dup || s.ID < 0 {
			return nil, fmt.Errorf("restore greenhouse %d: bad sensor id %d", snap.ID, s.ID)
		}
		g.addSensorLocked(s.ID, sKinds[i])
	}
	for i, a := range snap.Appliances {
		if _, dup := g.appliances[a.ID]; dup || a.ID < 0 {
			return nil, fmt.Errorf("restore greenhouse %d: bad appliance id %d", snap.ID, a.ID)
		}
		g.addApplianceLocked(a.ID, aKinds[i], a.Powered)
	}
	if snap.NextSensorID > g.nextSensorID {
		g.nextSensorID = snap.NextSensorID
	}
	if snap.NextApplianceID > g.nextApplianceID {
		g.nextApplianceID = snap.NextApplianceID
	}
	return g, nil
}
