// Package fonts maps a text style's font family to a font file the engine
// can load.
package fonts

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const probeTimeout = 3 * time.Second

// Resolver resolves family names through an alias table, then fc-match,
// then a platform default. Resolve never fails.
type Resolver struct {
	aliases  map[string]string
	fallback string
	fcMatch  string // empty disables the fontconfig probe
	logger   *slog.Logger

	mu    sync.Mutex
	cache map[string]string
}

// Config configures a Resolver.
type Config struct {
	Aliases     map[string]string // family -> font file
	DefaultFont string            // empty = platform default
	Logger      *slog.Logger
}

// NewResolver builds a resolver. fc-match is used when it is on PATH.
func NewResolver(cfg Config) *Resolver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := &Resolver{
		aliases:  make(map[string]string),
		fallback: cfg.DefaultFont,
		logger:   cfg.Logger,
		cache:    make(map[string]string),
	}
	if r.fallback == "" {
		r.fallback = platformDefault()
	}
	for family, file := range builtinAliases() {
		r.aliases[r.key(family)] = file
	}
	for family, file := range cfg.Aliases {
		r.aliases[r.key(family)] = file
	}
	if p, err := exec.LookPath("fc-match"); err == nil {
		r.fcMatch = p
	}
	return r
}

// Default returns the font used when nothing else matches.
func (r *Resolver) Default() string {
	return r.fallback
}

// Resolve returns a font file for family.
func (r *Resolver) Resolve(ctx context.Context, family string) string {
	k := r.key(family)
	if k == "" {
		return r.fallback
	}

	r.mu.Lock()
	if f, ok := r.cache[k]; ok {
		r.mu.Unlock()
		return f
	}
	r.mu.Unlock()

	file := r.lookup(ctx, family, k)

	r.mu.Lock()
	r.cache[k] = file
	r.mu.Unlock()
	return file
}

func (r *Resolver) lookup(ctx context.Context, family, k string) string {
	if f, ok := r.aliases[k]; ok && fileExists(f) {
		return f
	}
	if r.fcMatch != "" {
		if f := r.probe(ctx, family); f != "" {
			return f
		}
	}
	r.logger.Debug("font family not found, using default", "family", family, "font", r.fallback)
	return r.fallback
}

func (r *Resolver) probe(ctx context.Context, family string) string {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	query := cases.Title(language.Und).String(strings.TrimSpace(family))
	out, err := exec.CommandContext(ctx, r.fcMatch, "-f", "%{file}", query).Output()
	if err != nil {
		r.logger.Debug("fc-match failed", "family", family, "error", err)
		return ""
	}
	f := strings.TrimSpace(string(out))
	if f == "" || !fileExists(f) {
		return ""
	}
	return f
}

func (r *Resolver) key(family string) string {
	return cases.Fold().String(strings.Join(strings.Fields(family), " "))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func builtinAliases() map[string]string {
	switch runtime.GOOS {
	case "darwin":
		return map[string]string{
			"Arial":           "/System/Library/Fonts/Supplemental/Arial.ttf",
			"Helvetica":       "/System/Library/Fonts/Helvetica.ttc",
			"Times New Roman": "/System/Library/Fonts/Supplemental/Times New Roman.ttf",
			"Courier New":     "/System/Library/Fonts/Supplemental/Courier New.ttf",
			"Georgia":         "/System/Library/Fonts/Supplemental/Georgia.ttf",
		}
	case "windows":
		return map[string]string{
			"Arial":           `C:\Windows\Fonts\arial.ttf`,
			"Times New Roman": `C:\Windows\Fonts\times.ttf`,
			"Courier New":     `C:\Windows\Fonts\cour.ttf`,
			"Georgia":         `C:\Windows\Fonts\georgia.ttf`,
			"Verdana":         `C:\Windows\Fonts\verdana.ttf`,
		}
	default:
		return map[string]string{
			"Arial":           "/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"Helvetica":       "/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
			"Times New Roman": "/usr/share/fonts/truetype/liberation/LiberationSerif-Regular.ttf",
			"Courier New":     "/usr/share/fonts/truetype/liberation/LiberationMono-Regular.ttf",
			"DejaVu Sans":     "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		}
	}
}

func platformDefault() string {
	switch runtime.GOOS {
	case "darwin":
		return "/System/Library/Fonts/Helvetica.ttc"
	case "windows":
		return `C:\Windows\Fonts\arial.ttf`
	default:
		return "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
	}
}
