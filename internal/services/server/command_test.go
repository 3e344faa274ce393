package server

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/greenhouse"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		line string
		want Tokens
	}{
		{"", Tokens{}},
		{"   ", Tokens{}},
		{"HELP", Tokens{Verb: "help"}},
		{"removesensor -3 -1", Tokens{Verb: "removesensor", Segments: []string{"3", "1"}}},
		{"newtemptarget --5", Tokens{Verb: "newtemptarget", Segments: []string{"-5"}}},
		{"addsensor -temperature humidity -0", Tokens{Verb: "addsensor", Segments: []string{"temperature humidity", "0"}}},
		{"addsensor - phsensor", Tokens{Verb: "addsensor", Segments: []string{"phsensor"}}},
		{"removesensor 3", Tokens{Verb: "removesensor", Stray: []string{"3"}}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Tokenize(tt.line), tt.line)
	}
}

func TestParse(t *testing.T) {
	t.Run("no args", func(t *testing.T) {
		cmd, err := Parse("greenhouses")
		require.NoError(t, err)
		assert.Equal(t, "greenhouses", cmd.Verb)
		assert.Empty(t, cmd.Args)
	})

	t.Run("int with optional greenhouse", func(t *testing.T) {
		cmd, err := Parse("removesensor -4")
		require.NoError(t, err)
		assert.Equal(t, 4, cmd.Arg(0).Int)
		assert.False(t, cmd.Arg(1).Set)

		cmd, err = Parse("removesensor -4 -2")
		require.NoError(t, err)
		assert.Equal(t, 4, cmd.Arg(0).Int)
		assert.True(t, cmd.Arg(1).Set)
		assert.Equal(t, 2, cmd.Arg(1).Int)
	})

	t.Run("negative float", func(t *testing.T) {
		cmd, err := Parse("newtemptarget --5.5")
		require.NoError(t, err)
		assert.InDelta(t, -5.5, cmd.Arg(0).Float, 1e-9)
	})

	t.Run("id or all", func(t *testing.T) {
		cmd, err := Parse("sensorreading -a")
		require.NoError(t, err)
		assert.True(t, cmd.Arg(0).All)

		cmd, err = Parse("appliancereading -7 -1")
		require.NoError(t, err)
		assert.False(t, cmd.Arg(0).All)
		assert.Equal(t, 7, cmd.Arg(0).Int)
		assert.Equal(t, 1, cmd.Arg(1).Int)
	})

	t.Run("kind lists", func(t *testing.T) {
		cmd, err := Parse("addsensor -temperaturesensor humidity,ph -light -3")
		require.NoError(t, err)
		assert.Equal(t, []greenhouse.SensorKind{
			greenhouse.TemperatureSensor, greenhouse.HumiditySensor, greenhouse.PHSensor, greenhouse.LightSensor,
		}, cmd.Arg(0).Sensors)
		assert.Equal(t, 3, cmd.Arg(1).Int)

		cmd, err = Parse("addappliance -lamp sprinkler")
		require.NoError(t, err)
		assert.Equal(t, []greenhouse.ApplianceKind{greenhouse.Lamp, greenhouse.Sprinkler}, cmd.Arg(0).Appliances)
	})

	t.Run("man word", func(t *testing.T) {
		cmd, err := Parse("man -AddSensor")
		require.NoError(t, err)
		assert.Equal(t, "addsensor", cmd.Arg(0).Word)
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"", ErrParse},
		{"fly -1", ErrUnknownCommand},
		{"removesensor", ErrParse},
		{"removesensor 3", ErrParse},
		{"removesensor -x", ErrParse},
		{"removesensor -1 -2 -3", ErrParse},
		{"newtemptarget -warm", ErrParse},
		{"newtemptarget -NaN", ErrParse},
		{"newtemptarget -Inf", ErrParse},
		{"newtemptarget --Inf", ErrParse},
		{"newhumiditytarget -nan", ErrParse},
		{"addsensor -0", ErrParse},
		{"addsensor -toaster", greenhouse.ErrUnknownKind},
		{"addappliance -lamp toaster", greenhouse.ErrUnknownKind},
		{"speedup", ErrParse},
		{"man", ErrParse},
	}
	for _, tt := range tests {
		_, err := Parse(tt.line)
		assert.ErrorIs(t, err, tt.want, tt.line)
	}
}

func TestParse_KeepsVerbOnError(t *testing.T) {
	cmd, err := Parse("removesensor -x")
	require.Error(t, err)
	assert.Equal(t, "removesensor", cmd.Verb)

	cmd, err = Parse("Fly")
	require.ErrorIs(t, err, ErrUnknownCommand)
	assert.Equal(t, "fly", cmd.Verb)
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"addsensor -temperature humidity -0",
		"newtemptarget --5",
		"newtemptarget -NaN",
		"sensorreading -a -1",
		"removesensor 3",
		"- - -",
		"man -",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, line string) {
		cmd, err := Parse(line)
		if err != nil {
			return
		}
		if len(cmd.Args) != len(schemas[cmd.Verb]) {
			t.Fatalf("%q: got %d args, schema has %d", line, len(cmd.Args), len(schemas[cmd.Verb]))
		}
		for i, p := range schemas[cmd.Verb] {
			if !p.Optional && !cmd.Args[i].Set {
				t.Fatalf("%q: required %s not set", line, p.Name)
			}
			if f := cmd.Args[i].Float; math.IsNaN(f) || math.IsInf(f, 0) {
				t.Fatalf("%q: %s is not finite", line, p.Name)
			}
		}
	})
}
