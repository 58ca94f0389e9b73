// Package filters is the catalog of effects that can be attached to a
// segment. Each kind parses a loose parameter bag into a typed record and
// compiles it into an ffmpeg filter expression.
package filters

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// Definition is one catalog entry.
type Definition struct {
	Kind        Kind        `json:"kind"`
	Description string      `json:"description"`
	Params      []ParamSpec `json:"params"`

	parse func(b *binder) Params
}

// Catalog is an immutable registry of filter kinds.
type Catalog struct {
	defs map[Kind]*Definition
	now  func() time.Time
}

// NewCatalog returns the catalog of built-in kinds.
func NewCatalog() *Catalog {
	c := &Catalog{defs: make(map[Kind]*Definition), now: time.Now}
	for _, d := range builtinDefinitions() {
		c.defs[d.Kind] = d
	}
	return c
}

// Lookup returns the definition of a kind.
func (c *Catalog) Lookup(kind string) (*Definition, error) {
	d, ok := c.defs[Kind(strings.ToLower(strings.TrimSpace(kind)))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFilterKind, kind)
	}
	return d, nil
}

// List returns every definition ordered by kind.
func (c *Catalog) List() []*Definition {
	out := make([]*Definition, 0, len(c.defs))
	for _, d := range c.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Parse coerces a parameter bag into the kind's typed record.
func (c *Catalog) Parse(kind string, bag map[string]string) (Params, error) {
	d, err := c.Lookup(kind)
	if err != nil {
		return nil, err
	}
	b := newBinder(d, bag)
	b.checkKeys()
	p := d.parse(b)
	if b.err != nil {
		return nil, b.err
	}
	if v, ok := p.(validator); ok {
		if perr := v.validate(); perr != nil {
			return nil, perr
		}
	}
	return p, nil
}

// Apply validates a request and returns a new application with a fresh id.
// The catalog itself is never modified.
func (c *Catalog) Apply(kind string, bag map[string]string) (timeline.AppliedFilter, error) {
	p, err := c.Parse(kind, bag)
	if err != nil {
		return timeline.AppliedFilter{}, err
	}
	d, _ := c.Lookup(kind)
	params := make(map[string]string, len(bag))
	for k, v := range bag {
		params[k] = v
	}
	return timeline.AppliedFilter{
		ID:         uuid.NewString(),
		Type:       string(d.Kind),
		Params:     params,
		Expression: p.Expression(),
		AppliedAt:  c.now().UTC(),
	}, nil
}
