package filters

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var (
	ErrUnknownFilterKind      = errors.New("unknown filter kind")
	ErrInvalidFilterParameter = errors.New("invalid filter parameter")
)

// ParamError describes a rejected parameter. It matches ErrInvalidFilterParameter.
type ParamError struct {
	Kind   Kind
	Param  string
	Value  string
	Reason string
}

func (e *ParamError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: parameter %q: %s", e.Kind, e.Param, e.Reason)
	}
	return fmt.Sprintf("%s: parameter %q = %q: %s", e.Kind, e.Param, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidFilterParameter }

// ParamType names the accepted value syntax of a parameter.
type ParamType string

const (
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeEnum    ParamType = "enum"
	TypeColor   ParamType = "color"
)

// ParamSpec declares one accepted parameter: its syntax, default and bounds.
type ParamSpec struct {
	Name    string    `json:"name"`
	Type    ParamType `json:"type"`
	Default string    `json:"default,omitempty"`
	Min     float64   `json:"min,omitempty"`
	Max     float64   `json:"max,omitempty"`
	Choices []string  `json:"choices,omitempty"`
}

func number(name string, def, lo, hi float64) ParamSpec {
	return ParamSpec{Name: name, Type: TypeNumber, Default: formatFloat(def), Min: lo, Max: hi}
}

func integer(name string, def, lo, hi int) ParamSpec {
	return ParamSpec{Name: name, Type: TypeInteger, Default: strconv.Itoa(def), Min: float64(lo), Max: float64(hi)}
}

func enum(name, def string, choices ...string) ParamSpec {
	return ParamSpec{Name: name, Type: TypeEnum, Default: def, Choices: choices}
}

func color(name, def string) ParamSpec {
	return ParamSpec{Name: name, Type: TypeColor, Default: def}
}

// binder coerces a loose parameter bag into typed values. The first failure
// is kept and every later lookup returns the zero value.
type binder struct {
	kind  Kind
	specs map[string]ParamSpec
	bag   map[string]string
	err   error
}

func newBinder(def *Definition, bag map[string]string) *binder {
	specs := make(map[string]ParamSpec, len(def.Params))
	for _, p := range def.Params {
		specs[p.Name] = p
	}
	return &binder{kind: def.Kind, specs: specs, bag: bag}
}

// checkKeys rejects keys the kind does not declare.
func (b *binder) checkKeys() {
	var unknown []string
	for k := range b.bag {
		if _, ok := b.specs[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		b.fail(unknown[0], b.bag[unknown[0]], "unknown parameter")
	}
}

func (b *binder) fail(param, value, reason string) {
	if b.err == nil {
		b.err = &ParamError{Kind: b.kind, Param: param, Value: value, Reason: reason}
	}
}

func (b *binder) raw(name string) (ParamSpec, string) {
	spec := b.specs[name]
	if v, ok := b.bag[name]; ok {
		return spec, strings.TrimSpace(v)
	}
	return spec, spec.Default
}

func (b *binder) floatParam(name string) float64 {
	spec, s := b.raw(name)
	if b.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		b.fail(name, s, "not a number")
		return 0
	}
	if v < spec.Min || v > spec.Max {
		b.fail(name, s, fmt.Sprintf("out of range [%s, %s]", formatFloat(spec.Min), formatFloat(spec.Max)))
		return 0
	}
	return v
}

func (b *binder) intParam(name string) int {
	spec, s := b.raw(name)
	if b.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		b.fail(name, s, "not an integer")
		return 0
	}
	if float64(v) < spec.Min || float64(v) > spec.Max {
		b.fail(name, s, fmt.Sprintf("out of range [%d, %d]", int(spec.Min), int(spec.Max)))
		return 0
	}
	return v
}

func (b *binder) choiceParam(name string) string {
	spec, s := b.raw(name)
	if b.err != nil {
		return ""
	}
	s = strings.ToLower(s)
	for _, c := range spec.Choices {
		if s == c {
			return s
		}
	}
	b.fail(name, s, "must be one of "+strings.Join(spec.Choices, ", "))
	return ""
}

func (b *binder) colorParam(name string) string {
	_, s := b.raw(name)
	if b.err != nil {
		return ""
	}
	if !timeline.IsHexColor(s) {
		b.fail(name, s, "not a hex color")
		return ""
	}
	return strings.ToUpper(strings.TrimPrefix(s, "#"))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
