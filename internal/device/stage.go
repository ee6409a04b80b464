package device

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// FuncID identifies an instrumented function in tune notes.
type FuncID struct {
	Name     string
	Qualname string
	Module   string
}

// ParseFuncID splits a qualified name like "main.baz" at its last dot.
func ParseFuncID(qualname string) FuncID {
	id := FuncID{Name: qualname, Qualname: qualname}
	if i := strings.LastIndex(qualname, "."); i >= 0 {
		id.Module = qualname[:i]
		id.Name = qualname[i+1:]
	}
	return id
}

// Notes returns {name, qualname, module}.
func (f FuncID) Notes() ir.IRObject {
	return ir.IRObject{
		"name":     ir.IRString(f.Name),
		"qualname": ir.IRString(f.Qualname),
		"module":   ir.IRString(f.Module),
	}
}

// FuncIDFromNotes reads a FuncID back from a "function" notes object.
func FuncIDFromNotes(fn ir.IRObject) FuncID {
	return FuncID{
		Name:     fn.String("name"),
		Qualname: fn.String("qualname"),
		Module:   fn.String("module"),
	}
}

// Entrypoint builds the body of an instrumented routine bound to the host
// driving it.
type Entrypoint func(h Host) Func

// Catalog maps qualified names to entrypoints so a recorded entry tune can
// find the routine to run again.
type Catalog struct {
	entries map[string]Entrypoint
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]Entrypoint)}
}

// Register adds an entrypoint. Registering a name twice is a config error.
func (c *Catalog) Register(qualname string, ep Entrypoint) error {
	if _, dup := c.entries[qualname]; dup {
		return tape.ConfigError("entrypoint %q already registered", qualname)
	}
	c.entries[qualname] = ep
	return nil
}

// Lookup returns the entrypoint registered under qualname.
func (c *Catalog) Lookup(qualname string) (Entrypoint, bool) {
	if c == nil {
		return nil, false
	}
	ep, ok := c.entries[qualname]
	return ep, ok
}

// Names returns the registered names, sorted.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.entries))
	for n := range c.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Stage is the state a playback accumulates while replaying a recording's
// header: who recorded it, with which arguments, and the live host bound
// once the header has been read.
type Stage struct {
	RecorderName string
	Args         []string
	Host         Host
	Entrypoints  *Catalog
	Logger       *slog.Logger
}

// Playable is implemented by devices that have an action to perform when
// their tune is replayed.
type Playable interface {
	Playback(ctx context.Context, tune *tape.Tune, stage *Stage) error
}
