package server

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/greenhouse"
)

var (
	ErrParse          = errors.New("malformed command")
	ErrUnknownCommand = errors.New("unknown command")
)

// Tokens is a command line split into its verb and dash-led segments.
//
// Every field starting with '-' opens a new segment with that single dash
// removed, so "--5" is the value -5. Fields without a leading dash extend
// the current segment, which lets "-temperature humidity" name two kinds.
// Fields before the first segment are kept as Stray.
type Tokens struct {
	Verb     string
	Segments []string
	Stray    []string
}

func Tokenize(line string) Tokens {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Tokens{}
	}
	t := Tokens{Verb: strings.ToLower(fields[0])}
	for _, f := range fields[1:] {
		if strings.HasPrefix(f, "-") {
			t.Segments = append(t.Segments, f[1:])
			continue
		}
		if n := len(t.Segments); n > 0 {
			if t.Segments[n-1] == "" {
				t.Segments[n-1] = f
			} else {
				t.Segments[n-1] += " " + f
			}
			continue
		}
		t.Stray = append(t.Stray, f)
	}
	return t
}

type ParamKind int

const (
	IntParam ParamKind = iota
	FloatParam
	IDOrAllParam
	SensorKindsParam
	ApplianceKindsParam
	WordParam
)

func (k ParamKind) String() string {
	switch k {
	case IntParam:
		return "an integer"
	case FloatParam:
		return "a number"
	case IDOrAllParam:
		return "an id or 'a'"
	case SensorKindsParam:
		return "sensor types"
	case ApplianceKindsParam:
		return "appliance types"
	default:
		return "a word"
	}
}

type Param struct {
	Name     string
	Kind     ParamKind
	Optional bool
}

// schemas lists, per verb, the ordered parameters it accepts. Optional
// parameters are always trailing.
var schemas = map[string][]Param{
	"greenhouses":     nil,
	"subscribe":       nil,
	"saveserverstate": nil,
	"clockrate":       nil,
	"speedup":         {{Name: "jump", Kind: IntParam}},
	"slowdown":        {{Name: "jump", Kind: IntParam}},
	"help":            nil,
	"exit":            nil,
	"back":            nil,
	"stop":            nil,
	"newgreenhouse":   nil,
	"listgreenhouses": nil,
	"monitor":         {{Name: "greenhouse", Kind: IntParam, Optional: true}},
	"man":             {{Name: "command", Kind: WordParam}},

	"addsensor":         {{Name: "types", Kind: SensorKindsParam}, {Name: "greenhouse", Kind: IntParam, Optional: true}},
	"removesensor":      {{Name: "sensor", Kind: IntParam}, {Name: "greenhouse", Kind: IntParam, Optional: true}},
	"addappliance":      {{Name: "types", Kind: ApplianceKindsParam}, {Name: "greenhouse", Kind: IntParam, Optional: true}},
	"removeappliance":   {{Name: "appliance", Kind: IntParam}, {Name: "greenhouse", Kind: IntParam, Optional: true}},
	"sensorreading":     {{Name: "sensor", Kind: IDOrAllParam}, {Name: "greenhouse", Kind: IntParam, Optional: true}},
	"appliancereading":  {{Name: "appliance", Kind: IDOrAllParam}, {Name: "greenhouse", Kind: IntParam, Optional: true}},
	"toggleappliance":   {{Name: "appliance", Kind: IntParam}, {Name: "greenhouse", Kind: IntParam, Optional: true}},
	"newtemptarget":     {{Name: "value", Kind: FloatParam}, {Name: "greenhouse", Kind: IntParam, Optional: true}},
	"newhumiditytarget": {{Name: "value", Kind: FloatParam}, {Name: "greenhouse", Kind: IntParam, Optional: true}},
}

// Value is one parsed parameter.
type Value struct {
	Set        bool
	Int        int
	Float      float64
	All        bool
	Word       string
	Sensors    []greenhouse.SensorKind
	Appliances []greenhouse.ApplianceKind
}

type Command struct {
	Verb string
	Args []Value
}

// Arg returns the i-th parameter, or an unset Value.
func (c Command) Arg(i int) Value {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return Value{}
}

// Parse tokenizes line and checks it against the verb's schema. Errors wrap
// ErrParse, ErrUnknownCommand or greenhouse.ErrUnknownKind.
func Parse(line string) (Command, error) {
	t := Tokenize(line)
	if t.Verb == "" {
		return Command{}, fmt.Errorf("%w: empty line", ErrParse)
	}
	schema, ok := schemas[t.Verb]
	if !ok {
		return Command{Verb: t.Verb}, fmt.Errorf("%w: %q", ErrUnknownCommand, t.Verb)
	}
	cmd := Command{Verb: t.Verb, Args: make([]Value, len(schema))}
	if len(t.Stray) > 0 {
		return cmd, fmt.Errorf("%w: argument %q must start with '-'", ErrParse, t.Stray[0])
	}

	segs := t.Segments
	for i, p := range schema {
		if len(segs) == 0 {
			if p.Optional {
				continue
			}
			return cmd, fmt.Errorf("%w: missing %s (%s)", ErrParse, p.Name, p.Kind)
		}
		v, used, err := parseParam(p, segs)
		if err != nil {
			return cmd, err
		}
		cmd.Args[i] = v
		segs = segs[used:]
	}
	if len(segs) > 0 {
		return cmd, fmt.Errorf("%w: unexpected argument %q", ErrParse, segs[0])
	}
	return cmd, nil
}

// parseParam consumes one segment, or a run of segments for kind lists.
func parseParam(p Param, segs []string) (Value, int, error) {
	raw := strings.TrimSpace(segs[0])
	switch p.Kind {
	case IntParam:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Value{}, 0, fmt.Errorf("%w: %s must be %s, got %q", ErrParse, p.Name, p.Kind, raw)
		}
		return Value{Set: true, Int: n}, 1, nil

	case FloatParam:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, 0, fmt.Errorf("%w: %s must be %s, got %q", ErrParse, p.Name, p.Kind, raw)
		}
		return Value{Set: true, Float: f}, 1, nil

	case IDOrAllParam:
		if l := strings.ToLower(raw); l == "a" || l == "all" {
			return Value{Set: true, All: true}, 1, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Value{}, 0, fmt.Errorf("%w: %s must be %s, got %q", ErrParse, p.Name, p.Kind, raw)
		}
		return Value{Set: true, Int: n}, 1, nil

	case SensorKindsParam:
		v := Value{Set: true}
		used, err := consumeKinds(segs, func(word string) error {
			k, err := greenhouse.ParseSensorKind(word)
			if err == nil {
				v.Sensors = append(v.Sensors, k)
			}
			return err
		})
		return v, used, err

	case ApplianceKindsParam:
		v := Value{Set: true}
		used, err := consumeKinds(segs, func(word string) error {
			k, err := greenhouse.ParseApplianceKind(word)
			if err == nil {
				v.Appliances = append(v.Appliances, k)
			}
			return err
		})
		return v, used, err

	default:
		if raw == "" {
			return Value{}, 0, fmt.Errorf("%w: %s must be %s", ErrParse, p.Name, p.Kind)
		}
		return Value{Set: true, Word: strings.ToLower(raw)}, 1, nil
	}
}

// consumeKinds reads kind names from consecutive segments, stopping at the
// first segment that is numeric. Words may also be comma separated.
func consumeKinds(segs []string, add func(string) error) (int, error) {
	used := 0
	for _, seg := range segs {
		if _, err := strconv.Atoi(strings.TrimSpace(seg)); err == nil {
			break
		}
		words := strings.FieldsFunc(seg, func(r rune) bool { return r == ' ' || r == ',' })
		if len(words) == 0 {
			break
		}
		for _, w := range words {
			if err := add(w); err != nil {
				return used, err
			}
		}
		used++
	}
	if used == 0 {
		return 0, fmt.Errorf("%w: at least one type is required", ErrParse)
	}
	return used, nil
}
