package filters

import (
	"fmt"
	"strings"
)

// Kind identifies a catalog entry.
type Kind string

const (
	Brightness   Kind = "brightness"
	Contrast     Kind = "contrast"
	Saturation   Kind = "saturation"
	Gamma        Kind = "gamma"
	Hue          Kind = "hue"
	Blur         Kind = "blur"
	Sharpen      Kind = "sharpen"
	Grayscale    Kind = "grayscale"
	Sepia        Kind = "sepia"
	Invert       Kind = "invert"
	Vignette     Kind = "vignette"
	Noise        Kind = "noise"
	Rotate       Kind = "rotate"
	Flip         Kind = "flip"
	Fade         Kind = "fade"
	Tint         Kind = "tint"
	Pixelate     Kind = "pixelate"
	ColorBalance Kind = "colorbalance"
)

// Params is a typed, validated parameter record that compiles to one
// engine filter expression.
type Params interface {
	Expression() string
}

// validator is implemented by records with constraints beyond per-field bounds.
type validator interface {
	validate() *ParamError
}

type ValueParams struct {
	name  string
	Value float64
}

func (p ValueParams) Expression() string {
	return fmt.Sprintf("eq=%s=%s", p.name, formatFloat(p.Value))
}

type HueParams struct {
	Degrees    float64
	Saturation float64
}

func (p HueParams) Expression() string {
	return fmt.Sprintf("hue=h=%s:s=%s", formatFloat(p.Degrees), formatFloat(p.Saturation))
}

type BlurParams struct {
	Radius float64
}

func (p BlurParams) Expression() string {
	return "gblur=sigma=" + formatFloat(p.Radius)
}

type SharpenParams struct {
	Amount float64
	Size   int
}

func (p SharpenParams) validate() *ParamError {
	if p.Size%2 == 0 {
		return &ParamError{Kind: Sharpen, Param: "size", Value: fmt.Sprint(p.Size), Reason: "must be odd"}
	}
	return nil
}

func (p SharpenParams) Expression() string {
	return fmt.Sprintf("unsharp=luma_msize_x=%d:luma_msize_y=%d:luma_amount=%s", p.Size, p.Size, formatFloat(p.Amount))
}

// FixedParams is the record of kinds that take no parameters.
type FixedParams struct {
	expr string
}

func (p FixedParams) Expression() string { return p.expr }

type VignetteParams struct {
	Angle float64
}

func (p VignetteParams) Expression() string {
	return "vignette=angle=" + formatFloat(p.Angle)
}

type NoiseParams struct {
	Strength int
}

func (p NoiseParams) Expression() string {
	return fmt.Sprintf("noise=alls=%d:allf=t", p.Strength)
}

type RotateParams struct {
	Degrees float64
}

func (p RotateParams) Expression() string {
	return fmt.Sprintf("rotate=%s*PI/180:fillcolor=black@0", formatFloat(p.Degrees))
}

type FlipParams struct {
	Direction string
}

func (p FlipParams) Expression() string {
	if p.Direction == "vertical" {
		return "vflip"
	}
	return "hflip"
}

type FadeParams struct {
	Type     string
	Start    float64
	Duration float64
}

func (p FadeParams) validate() *ParamError {
	if p.Duration <= 0 {
		return &ParamError{Kind: Fade, Param: "duration", Value: formatFloat(p.Duration), Reason: "must be positive"}
	}
	return nil
}

func (p FadeParams) Expression() string {
	return fmt.Sprintf("fade=t=%s:st=%s:d=%s", p.Type, formatFloat(p.Start), formatFloat(p.Duration))
}

type TintParams struct {
	Color   string
	Opacity float64
}

func (p TintParams) Expression() string {
	return fmt.Sprintf("drawbox=x=0:y=0:w=iw:h=ih:color=0x%s@%s:t=fill", p.Color, formatFloat(p.Opacity))
}

type PixelateParams struct {
	Block int
}

func (p PixelateParams) Expression() string {
	return fmt.Sprintf("scale=iw/%d:ih/%d:flags=neighbor,scale=iw*%d:ih*%d:flags=neighbor", p.Block, p.Block, p.Block, p.Block)
}

// ColorBalanceParams holds red, green and blue shifts for shadows,
// midtones and highlights.
type ColorBalanceParams struct {
	Shadows    [3]float64
	Midtones   [3]float64
	Highlights [3]float64
}

func (p ColorBalanceParams) Expression() string {
	vals := make([]string, 0, 9)
	for _, band := range [][3]float64{p.Shadows, p.Midtones, p.Highlights} {
		for _, v := range band {
			vals = append(vals, formatFloat(v))
		}
	}
	return "colorbalance=" + strings.Join(vals, ":")
}

func eqDefinition(kind Kind, desc string, spec ParamSpec) *Definition {
	return &Definition{
		Kind:        kind,
		Description: desc,
		Params:      []ParamSpec{spec},
		parse: func(b *binder) Params {
			return ValueParams{name: string(kind), Value: b.floatParam("value")}
		},
	}
}

func fixedDefinition(kind Kind, desc, expr string) *Definition {
	return &Definition{
		Kind:        kind,
		Description: desc,
		parse:       func(*binder) Params { return FixedParams{expr: expr} },
	}
}

var rgbBands = []string{"shadows", "midtones", "highlights"}

func builtinDefinitions() []*Definition {
	var balance []ParamSpec
	for _, band := range rgbBands {
		for _, ch := range []string{"r", "g", "b"} {
			balance = append(balance, number(band+"_"+ch, 0, -1, 1))
		}
	}

	return []*Definition{
		eqDefinition(Brightness, "Shift brightness", number("value", 0, -1, 1)),
		eqDefinition(Contrast, "Scale contrast", number("value", 1, -2, 2)),
		eqDefinition(Saturation, "Scale color saturation", number("value", 1, 0, 3)),
		eqDefinition(Gamma, "Apply gamma correction", number("value", 1, 0.1, 10)),
		{
			Kind:        Hue,
			Description: "Rotate hue and scale saturation",
			Params:      []ParamSpec{number("degrees", 0, -180, 180), number("saturation", 1, -10, 10)},
			parse: func(b *binder) Params {
				return HueParams{Degrees: b.floatParam("degrees"), Saturation: b.floatParam("saturation")}
			},
		},
		{
			Kind:        Blur,
			Description: "Gaussian blur",
			Params:      []ParamSpec{number("radius", 5, 0, 50)},
			parse:       func(b *binder) Params { return BlurParams{Radius: b.floatParam("radius")} },
		},
		{
			Kind:        Sharpen,
			Description: "Unsharp mask",
			Params:      []ParamSpec{number("amount", 1, -2, 5), integer("size", 5, 3, 23)},
			parse: func(b *binder) Params {
				return SharpenParams{Amount: b.floatParam("amount"), Size: b.intParam("size")}
			},
		},
		fixedDefinition(Grayscale, "Remove color", "hue=s=0"),
		fixedDefinition(Sepia, "Sepia tone", "colorchannelmixer=.393:.769:.189:0:.349:.686:.168:0:.272:.534:.131"),
		fixedDefinition(Invert, "Invert colors", "negate"),
		{
			Kind:        Vignette,
			Description: "Darken the frame edges",
			Params:      []ParamSpec{number("angle", 0.6283, 0, 1.5707)},
			parse:       func(b *binder) Params { return VignetteParams{Angle: b.floatParam("angle")} },
		},
		{
			Kind:        Noise,
			Description: "Add temporal noise",
			Params:      []ParamSpec{integer("strength", 20, 0, 100)},
			parse:       func(b *binder) Params { return NoiseParams{Strength: b.intParam("strength")} },
		},
		{
			Kind:        Rotate,
			Description: "Rotate the frame",
			Params:      []ParamSpec{number("degrees", 0, -360, 360)},
			parse:       func(b *binder) Params { return RotateParams{Degrees: b.floatParam("degrees")} },
		},
		{
			Kind:        Flip,
			Description: "Mirror the frame",
			Params:      []ParamSpec{enum("direction", "horizontal", "horizontal", "vertical")},
			parse:       func(b *binder) Params { return FlipParams{Direction: b.choiceParam("direction")} },
		},
		{
			Kind:        Fade,
			Description: "Fade from or to black",
			Params: []ParamSpec{
				enum("type", "in", "in", "out"),
				number("start", 0, 0, 86400),
				number("duration", 1, 0, 60),
			},
			parse: func(b *binder) Params {
				return FadeParams{Type: b.choiceParam("type"), Start: b.floatParam("start"), Duration: b.floatParam("duration")}
			},
		},
		{
			Kind:        Tint,
			Description: "Overlay a translucent color",
			Params:      []ParamSpec{color("color", "#FF8800"), number("opacity", 0.3, 0, 1)},
			parse: func(b *binder) Params {
				return TintParams{Color: b.colorParam("color"), Opacity: b.floatParam("opacity")}
			},
		},
		{
			Kind:        Pixelate,
			Description: "Mosaic the frame",
			Params:      []ParamSpec{integer("block", 10, 2, 128)},
			parse:       func(b *binder) Params { return PixelateParams{Block: b.intParam("block")} },
		},
		{
			Kind:        ColorBalance,
			Description: "Shift color per tonal band",
			Params:      balance,
			parse: func(b *binder) Params {
				var p ColorBalanceParams
				bands := []*[3]float64{&p.Shadows, &p.Midtones, &p.Highlights}
				for i, band := range rgbBands {
					for j, ch := range []string{"r", "g", "b"} {
						bands[i][j] = b.floatParam(band + "_" + ch)
					}
				}
				return p
			},
		},
	}
}
