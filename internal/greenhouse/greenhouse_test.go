package greenhouse

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/clock"
)

func newTestGreenHouse(id int) *GreenHouse {
	return New(id, WithRandSource(SeededSource(int64(id)+42)))
}

func TestParseSensorKind(t *testing.T) {
	tests := []struct {
		in   string
		want SensorKind
	}{
		{"temperaturesensor", TemperatureSensor},
		{"TemperatureSensor", TemperatureSensor},
		{"temperature", TemperatureSensor},
		{" humidity ", HumiditySensor},
		{"light", LightSensor},
		{"moisturesensor", MoistureSensor},
		{"PH", PHSensor},
		{"nitrogensensor", NitrogenSensor},
	}
	for _, tt := range tests {
		got, err := ParseSensorKind(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseSensorKind("motionsensor")
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = ParseSensorKind("")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestParseApplianceKind(t *testing.T) {
	for _, k := range ApplianceKinds() {
		got, err := ParseApplianceKind(strings.ToUpper(string(k)))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseApplianceKind("toaster")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestGreenHouse_SensorIDsNeverReused(t *testing.T) {
	g := newTestGreenHouse(0)

	s0, err := g.AddSensor(TemperatureSensor)
	require.NoError(t, err)
	assert.Equal(t, 0, s0.ID())

	require.NoError(t, g.RemoveSensor(0))
	_, ok := g.Sensor(0)
	assert.False(t, ok)

	s1, err := g.AddSensor(TemperatureSensor)
	require.NoError(t, err)
	assert.NotEqual(t, 0, s1.ID())
	assert.Equal(t, 1, s1.ID())

	assert.ErrorIs(t, g.RemoveSensor(0), ErrNotFound)
}

func TestGreenHouse_ApplianceIDsNeverReused(t *testing.T) {
	g := newTestGreenHouse(0)

	a0, err := g.AddAppliance(Lamp)
	require.NoError(t, err)
	require.NoError(t, g.RemoveAppliance(a0.ID()))

	a1, err := g.AddAppliance(Lamp)
	require.NoError(t, err)
	assert.Equal(t, 1, a1.ID())

	assert.ErrorIs(t, g.RemoveAppliance(0), ErrNotFound)
	_, err = g.ActuateAppliance(0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGreenHouse_UnknownKind(t *testing.T) {
	g := newTestGreenHouse(0)

	_, err := g.AddSensor("motionsensor")
	assert.ErrorIs(t, err, ErrUnknownKind)
	_, err = g.AddAppliance("toaster")
	assert.ErrorIs(t, err, ErrUnknownKind)

	sid, aid := g.NextIDs()
	assert.Equal(t, 0, sid)
	assert.Equal(t, 0, aid)
}

func TestGreenHouse_RemoveSensorDetaches(t *testing.T) {
	g := newTestGreenHouse(0)

	_, err := g.AddSensor(TemperatureSensor)
	require.NoError(t, err)
	_, err = g.AddSensor(PHSensor)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Air().Subscribers())
	assert.Equal(t, 1, g.Soil().Subscribers())

	require.NoError(t, g.RemoveSensor(0))
	require.NoError(t, g.RemoveSensor(1))
	assert.Equal(t, 0, g.Air().Subscribers())
	assert.Equal(t, 0, g.Soil().Subscribers())
}

func TestGreenHouse_SensorsNeverStale(t *testing.T) {
	g := newTestGreenHouse(0)
	kinds := SensorKinds()
	for _, k := range kinds {
		_, err := g.AddSensor(k)
		require.NoError(t, err)
	}

	check := func(step string) {
		air, soil := g.Air().State(), g.Soil().State()
		want := map[SensorKind]float64{
			TemperatureSensor: air.Temperature,
			HumiditySensor:    air.Humidity,
			LightSensor:       air.Lux,
			MoistureSensor:    soil.Moisture,
			PHSensor:          soil.PH,
			NitrogenSensor:    soil.Nitrogen,
		}
		for _, s := range g.Sensors() {
			assert.Equal(t, want[s.Kind()], s.Reading(), "%s after %s", s.Kind(), step)
		}
	}

	check("add")
	for i := 0; i < 5; i++ {
		g.Tick()
		check("tick")
	}
	g.Soil().WaterSoil(15)
	check("water")
	g.Soil().Fertilize(8)
	check("fertilize")
	g.Soil().Lime()
	check("lime")
}

func TestGreenHouse_SoilAppliances(t *testing.T) {
	g := newTestGreenHouse(0)
	sprinkler, _ := g.AddAppliance(Sprinkler)
	fertilizer, _ := g.AddAppliance(Fertilizer)
	limer, _ := g.AddAppliance(Limer)

	_, err := g.ActuateAppliance(sprinkler.ID())
	require.NoError(t, err)
	assert.InDelta(t, 70.0, g.Soil().State().Moisture, 1e-9)

	before := g.Soil().State()
	_, err = g.ActuateAppliance(fertilizer.ID())
	require.NoError(t, err)
	after := g.Soil().State()
	assert.InDelta(t, before.Nitrogen+10, after.Nitrogen, 1e-9)
	assert.Less(t, after.PH, before.PH)

	before = after
	_, err = g.ActuateAppliance(limer.ID())
	require.NoError(t, err)
	assert.InDelta(t, before.PH+0.5, g.Soil().State().PH, 1e-9)

	assert.False(t, sprinkler.Powered())
	assert.Equal(t, "Appliance [Type: Sprinkler, ID: 0]", sprinkler.String())
}

func TestGreenHouse_AirconditionMode(t *testing.T) {
	g := newTestGreenHouse(0)
	g.Air().Restore(AirState{Temperature: 10, TargetTemperature: 20, TargetHumidity: 0.5})
	ac, _ := g.AddAppliance(Aircondition)

	_, err := g.ActuateAppliance(ac.ID())
	require.NoError(t, err)
	assert.True(t, ac.Powered())
	assert.Equal(t, ModeHeating, ac.Mode())
	assert.Equal(t, "Appliance [Type: Aircondition, ID: 0, Status: on, Mode: heating]", ac.String())

	_, err = g.ActuateAppliance(ac.ID())
	require.NoError(t, err)
	assert.False(t, ac.Powered())
	assert.Equal(t, ModeNone, ac.Mode())

	require.NoError(t, g.SetTargetTemperature(5))
	_, err = g.ActuateAppliance(ac.ID())
	require.NoError(t, err)
	assert.Equal(t, ModeCooling, ac.Mode())
}

func TestGreenHouse_LampTogglesPower(t *testing.T) {
	g := newTestGreenHouse(0)
	lamp, _ := g.AddAppliance(Lamp)
	assert.Equal(t, "Appliance [Type: Lamp, ID: 0, Status: off]", lamp.String())

	lamp.Actuate()
	assert.Equal(t, "Appliance [Type: Lamp, ID: 0, Status: on]", lamp.String())
	lamp.Actuate()
	assert.False(t, lamp.Powered())
}

func TestGreenHouse_Dumps(t *testing.T) {
	g := newTestGreenHouse(3)
	g.Air().Restore(AirState{Temperature: 21.534, Humidity: 0.5})
	_, _ = g.AddSensor(TemperatureSensor)
	_, _ = g.AddSensor(NitrogenSensor)
	_, _ = g.AddAppliance(Humidifier)

	assert.Equal(t, []string{
		"TemperatureSensor{id=0, temperature=21.53}",
		"NitrogenSensor{id=1, nitrogen=20.00}",
	}, g.SensorDump())
	assert.Equal(t, []string{"Appliance [Type: Humidifier, ID: 0, Status: off]"}, g.ApplianceDump())
	assert.Equal(t, "Greenhouse 3 (sensors: 2, appliances: 1)", g.Summary())

	readings := g.Readings()
	require.Len(t, readings, 2)
	assert.Equal(t, Reading{SensorID: 1, Kind: NitrogenSensor, Value: 20}, readings[1])
}

func TestGreenHouse_ConcurrentUse(t *testing.T) {
	g := newTestGreenHouse(0)
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s, err := g.AddSensor(SensorKinds()[i%6])
				if err != nil {
					t.Error(err)
					return
				}
				if i%3 == 0 {
					_ = g.RemoveSensor(s.ID())
				}
				_ = g.SensorDump()
			}
		}(w)
	}
	for i := 0; i < 100; i++ {
		g.Tick()
	}
	wg.Wait()

	sid, _ := g.NextIDs()
	assert.Equal(t, 400, sid)
}

func TestRegistry_CreateAssignsIncreasingIDs(t *testing.T) {
	c := clock.New(time.Hour)
	r := NewRegistry(c, WithRandSource(SeededSource(1)))

	g0 := r.Create()
	g1 := r.Create()
	assert.Equal(t, 0, g0.ID())
	assert.Equal(t, 1, g1.ID())
	assert.Equal(t, 2, c.Subscribers())

	got, ok := r.Get(1)
	require.True(t, ok)
	assert.Same(t, g1, got)
	_, ok = r.Get(7)
	assert.False(t, ok)
}

func TestRegistry_AddRestoredKeepsOrder(t *testing.T) {
	c := clock.New(time.Hour)
	r := NewRegistry(c)

	require.NoError(t, r.Add(New(5)))
	require.NoError(t, r.Add(New(2)))
	assert.ErrorIs(t, r.Add(New(5)), ErrDuplicateID)

	var ids []int
	for _, g := range r.List() {
		ids = append(ids, g.ID())
	}
	assert.Equal(t, []int{2, 5}, ids)
	assert.Equal(t, 6, r.Create().ID())
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_ClockDrivesGreenhouses(t *testing.T) {
	c := clock.New(time.Hour)
	r := NewRegistry(c, WithRandSource(SeededSource(9)))
	g := r.Create()
	s, err := g.AddSensor(NitrogenSensor)
	require.NoError(t, err)

	c.TickNow()
	assert.InDelta(t, 17.0, s.Reading(), 1e-9)

	r.Close()
	assert.Equal(t, 0, c.Subscribers())
	c.TickNow()
	assert.InDelta(t, 17.0, s.Reading(), 1e-9)
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	r := NewRegistry(clock.New(time.Hour))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Create()
			_ = r.List()
		}()
	}
	wg.Wait()

	seen := map[int]bool{}
	for _, g := range r.List() {
		require.False(t, seen[g.ID()], fmt.Sprintf("duplicate id %d", g.ID()))
		seen[g.ID()] = true
	}
	assert.Len(t, seen, 20)
}
