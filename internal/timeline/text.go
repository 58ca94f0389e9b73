package timeline

import (
	"fmt"
	"regexp"
)

const (
	DefaultFontFamily = "Arial"
	DefaultFontSize   = 48
	DefaultFontColor  = "#FFFFFF"
)

type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

var hexColorRe = regexp.MustCompile(`^#?[0-9A-Fa-f]{6}$`)

// IsHexColor reports whether s is a #RRGGBB or RRGGBB color.
func IsHexColor(s string) bool {
	return hexColorRe.MatchString(s)
}

type TextStyle struct {
	FontFamily string     `json:"font_family"`
	FontSize   int        `json:"font_size"`
	FontColor  string     `json:"font_color"`
	Alignment  Alignment  `json:"alignment"`
	Background Background `json:"background"`
	Border     Border     `json:"border"`
	Shadow     Shadow     `json:"shadow"`
}

type Background struct {
	Enabled bool    `json:"enabled"`
	Color   string  `json:"color,omitempty"`
	Opacity float64 `json:"opacity"`
	Padding int     `json:"padding"`
}

type Border struct {
	Width int    `json:"width"`
	Color string `json:"color,omitempty"`
}

type Shadow struct {
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
	Blur    float64 `json:"blur"`
	Spread  float64 `json:"spread"`
	Opacity float64 `json:"opacity"`
	Color   string  `json:"color,omitempty"`
}

// DefaultTextStyle is the style a new text segment starts with.
func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontFamily: DefaultFontFamily,
		FontSize:   DefaultFontSize,
		FontColor:  DefaultFontColor,
		Alignment:  AlignCenter,
		Background: Background{Color: "#000000", Opacity: 0.5, Padding: 10},
		Border:     Border{Color: "#000000"},
		Shadow:     Shadow{Color: "#000000"},
	}
}

// Validate checks every bounded field of the style.
func (s TextStyle) Validate() error {
	if s.FontSize < 1 || s.FontSize > 500 {
		return fmt.Errorf("font_size %d out of range [1, 500]", s.FontSize)
	}
	if !IsHexColor(s.FontColor) {
		return fmt.Errorf("font_color %q is not a hex color", s.FontColor)
	}
	switch s.Alignment {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		return fmt.Errorf("alignment %q must be left, center or right", s.Alignment)
	}
	if err := checkRange("background.opacity", s.Background.Opacity, 0, 1); err != nil {
		return err
	}
	if s.Background.Padding < 0 || s.Background.Padding > 200 {
		return fmt.Errorf("background.padding %d out of range [0, 200]", s.Background.Padding)
	}
	if s.Background.Color != "" && !IsHexColor(s.Background.Color) {
		return fmt.Errorf("background.color %q is not a hex color", s.Background.Color)
	}
	if s.Border.Width < 0 || s.Border.Width > 50 {
		return fmt.Errorf("border.width %d out of range [0, 50]", s.Border.Width)
	}
	if s.Border.Color != "" && !IsHexColor(s.Border.Color) {
		return fmt.Errorf("border.color %q is not a hex color", s.Border.Color)
	}
	checks := []struct {
		name   string
		v      float64
		lo, hi float64
	}{
		{"shadow.offset_x", s.Shadow.OffsetX, -100, 100},
		{"shadow.offset_y", s.Shadow.OffsetY, -100, 100},
		{"shadow.blur", s.Shadow.Blur, 0, 100},
		{"shadow.spread", s.Shadow.Spread, 0, 50},
		{"shadow.opacity", s.Shadow.Opacity, 0, 1},
	}
	for _, c := range checks {
		if err := checkRange(c.name, c.v, c.lo, c.hi); err != nil {
			return err
		}
	}
	if s.Shadow.Color != "" && !IsHexColor(s.Shadow.Color) {
		return fmt.Errorf("shadow.color %q is not a hex color", s.Shadow.Color)
	}
	return nil
}

// HasShadow reports whether the shadow draws anything.
func (s Shadow) HasShadow() bool {
	return s.Opacity > 0 && (s.OffsetX != 0 || s.OffsetY != 0)
}

func checkRange(name string, v, lo, hi float64) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s %v out of range [%v, %v]", name, v, lo, hi)
	}
	return nil
}
