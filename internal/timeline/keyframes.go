package timeline

import (
	"fmt"
	"math"
	"sort"
)

// KeyframeTolerance is the distance under which two sample times are the same.
const KeyframeTolerance = 1e-4

// Animatable text properties.
const (
	PropX        = "x"
	PropY        = "y"
	PropOpacity  = "opacity"
	PropFontSize = "font_size"
)

var animatable = map[string]bool{
	PropX:        true,
	PropY:        true,
	PropOpacity:  true,
	PropFontSize: true,
}

// Keyframe is one sample of an animated property. Time is relative to the
// segment's timeline start.
type Keyframe struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Keyframes maps a property name to its time-ordered samples.
type Keyframes map[string][]Keyframe

// IsAnimatable reports whether a property accepts keyframes.
func IsAnimatable(prop string) bool {
	return animatable[prop]
}

// Set inserts a sample, replacing one that sits within KeyframeTolerance.
func (k *Keyframes) Set(prop string, t, v float64) error {
	if !IsAnimatable(prop) {
		return fmt.Errorf("property %q is not animatable", prop)
	}
	if t < 0 || math.IsNaN(t) || math.IsNaN(v) {
		return fmt.Errorf("invalid keyframe (%v, %v)", t, v)
	}
	if *k == nil {
		*k = make(Keyframes)
	}
	samples := (*k)[prop]
	for i := range samples {
		if math.Abs(samples[i].Time-t) < KeyframeTolerance {
			samples[i].Value = v
			(*k)[prop] = samples
			return nil
		}
	}
	samples = append(samples, Keyframe{Time: t, Value: v})
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time < samples[j].Time })
	(*k)[prop] = samples
	return nil
}

// Remove deletes the sample at t and reports whether one was found.
func (k Keyframes) Remove(prop string, t float64) bool {
	samples := k[prop]
	for i := range samples {
		if math.Abs(samples[i].Time-t) < KeyframeTolerance {
			samples = append(samples[:i], samples[i+1:]...)
			if len(samples) == 0 {
				delete(k, prop)
			} else {
				k[prop] = samples
			}
			return true
		}
	}
	return false
}

// ValueAt linearly interpolates the property at t, clamping outside the
// sampled range. ok is false when the property has no samples.
func (k Keyframes) ValueAt(prop string, t float64) (float64, bool) {
	samples := k[prop]
	if len(samples) == 0 {
		return 0, false
	}
	if t <= samples[0].Time {
		return samples[0].Value, true
	}
	last := samples[len(samples)-1]
	if t >= last.Time {
		return last.Value, true
	}
	for i := 1; i < len(samples); i++ {
		a, b := samples[i-1], samples[i]
		if t <= b.Time {
			frac := (t - a.Time) / (b.Time - a.Time)
			return a.Value + frac*(b.Value-a.Value), true
		}
	}
	return last.Value, true
}

// Split cuts samples at t (segment-relative). Both halves get a sample at
// the cut holding the interpolated value, so each renders as before. The
// right half is rebased so its times stay relative to the new segment start.
func (k Keyframes) Split(t float64) (left, right Keyframes) {
	for prop, samples := range k {
		if len(samples) == 0 {
			continue
		}
		if left == nil {
			left, right = make(Keyframes), make(Keyframes)
		}
		cut, _ := k.ValueAt(prop, t)
		var l, r []Keyframe
		for _, s := range samples {
			switch {
			case s.Time < t-KeyframeTolerance:
				l = append(l, s)
			case s.Time > t+KeyframeTolerance:
				r = append(r, Keyframe{Time: s.Time - t, Value: s.Value})
			}
		}
		left[prop] = append(l, Keyframe{Time: t, Value: cut})
		right[prop] = append([]Keyframe{{Time: 0, Value: cut}}, r...)
	}
	return left, right
}

func (k Keyframes) clone() Keyframes {
	if k == nil {
		return nil
	}
	c := make(Keyframes, len(k))
	for prop, samples := range k {
		c[prop] = append([]Keyframe(nil), samples...)
	}
	return c
}
