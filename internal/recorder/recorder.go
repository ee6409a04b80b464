// Package recorder orchestrates a recording: it owns the cassette, acts as
// the host every device submits through, and hands out the lifecycle
// markers and wrapper factories bound to itself.
package recorder

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jcejohnson/rekorder/internal/cassette"
	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/method"
	"github.com/jcejohnson/rekorder/internal/repository"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// Options configure a Recorder.
type Options struct {
	// Mode defaults to record. Validate is entered through BeginValidation.
	Mode   tape.Mode
	Output string
	Input  string
	// Args is recorded into header as the command line. Nil records os.Args.
	Args        []string
	Clock       tape.Clock
	Logger      *slog.Logger
	Snapshotter repository.Snapshotter
}

// Recorder is the host devices record through.
type Recorder struct {
	name     string
	mode     tape.Mode
	cassette *cassette.Cassette
	args     []string
	clock    tape.Clock
	logger   *slog.Logger
	snap     repository.Snapshotter
	decoders *tape.Registry
}

// New creates a recorder. In record mode it opens the cassette and records
// its own identity and the command line into header.
func New(name string, opts Options) (*Recorder, error) {
	if name == "" {
		return nil, tape.ConfigError("recorder: a name is required")
	}
	r := &Recorder{
		name:   name,
		mode:   opts.Mode,
		args:   opts.Args,
		clock:  opts.Clock,
		logger: opts.Logger,
		snap:   opts.Snapshotter,
	}
	if r.mode == tape.ModeUnset {
		r.mode = tape.ModeRecord
	}
	if r.clock == nil {
		r.clock = tape.SystemClock
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.snap == nil {
		r.snap = repository.Git{}
	}
	if r.args == nil {
		r.args = os.Args
	}
	decoders, err := Builtins(r.snap)
	if err != nil {
		return nil, err
	}
	r.decoders = decoders

	switch r.mode {
	case tape.ModeRecord:
		c, err := cassette.New(cassette.Options{
			Mode:   tape.ModeRecord,
			Input:  opts.Input,
			Output: opts.Output,
			Clock:  r.clock,
			Logger: r.logger,
		})
		if err != nil {
			return nil, err
		}
		r.cassette = c
		if err := newIdentity(r).record(); err != nil {
			return nil, err
		}
		if err := newCliState(r).record(); err != nil {
			return nil, err
		}
		r.logger.Debug("recorder started", "name", name, "output", opts.Output)
	case tape.ModePlayback, tape.ModeDescribe:
	case tape.ModeValidate:
		return nil, tape.ConfigError("recorder %q: validate mode is entered through BeginValidation", name)
	default:
		return nil, tape.ConfigError("recorder %q: unknown mode %s", name, r.mode)
	}
	return r, nil
}

// Name implements device.Host.
func (r *Recorder) Name() string { return r.name }

// Mode implements device.Host. It follows the cassette once one exists.
func (r *Recorder) Mode() tape.Mode {
	if r.cassette != nil {
		return r.cassette.Mode()
	}
	return r.mode
}

// Record forwards t to the cassette. Legality and validation are the
// cassette's job.
func (r *Recorder) Record(t *tape.Tune) error {
	if r.cassette == nil {
		return tape.ConfigError("recorder %q: nothing to record to in %s mode", r.name, r.mode)
	}
	return r.cassette.Record(t)
}

// Tracks implements device.Host.
func (r *Recorder) Tracks() *tape.TrackManager {
	if r.cassette == nil {
		return nil
	}
	return r.cassette.Tracks()
}

// PeekExpected implements device.Host.
func (r *Recorder) PeekExpected() *tape.Tune {
	if r.cassette == nil {
		return nil
	}
	return r.cassette.PeekExpected()
}

// Now implements device.Host.
func (r *Recorder) Now() time.Time { return r.clock() }

// Logger implements device.Host.
func (r *Recorder) Logger() *slog.Logger { return r.logger }

// Args returns the command line recorded into header.
func (r *Recorder) Args() []string { return r.args }

// Cassette returns the recording medium, nil outside record and validate.
func (r *Recorder) Cassette() *cassette.Cassette { return r.cassette }

// Begin returns a fresh entry marker.
func (r *Recorder) Begin() *Begin { return &Begin{Base: device.Bind(BeginType, r), rec: r} }

// End returns a fresh exit marker.
func (r *Recorder) End() *End { return &End{Base: device.Bind(EndType, r), rec: r} }

// Wrap marks fn as the instrumented routine: Begin(End(fn)).
func (r *Recorder) Wrap(name string, fn device.Func) device.Func {
	return r.Begin().Wrap(name, r.End().Wrap(name, fn))
}

// Method returns the wrapper factory bound to r.
func (r *Recorder) Method() method.Factory {
	return method.Factory{Host: r, Snap: r.snap, Decoders: r.decoders}
}

// RepositoryManager returns a fresh at-most-once repository manager.
func (r *Recorder) RepositoryManager() (*repository.Manager, error) {
	return repository.NewManager(device.Options{Host: r}, r.snap)
}

// BeginValidation switches r, and every device inheriting its mode, to
// validate mode against expected.
func (r *Recorder) BeginValidation(expected *tape.TrackManager) error {
	if r.cassette == nil {
		return tape.ConfigError("recorder %q: validation needs a recording cassette", r.name)
	}
	if err := r.cassette.BeginValidation(expected); err != nil {
		return err
	}
	r.logger.Debug("validation started", "name", r.name)
	return nil
}

// Registry resolves recorders by name. Get is idempotent: a name maps to
// one recorder for the lifetime of the registry.
type Registry struct {
	mu        sync.Mutex
	recorders map[string]*Recorder
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{recorders: make(map[string]*Recorder)}
}

// Get returns the recorder registered under name, creating it with opts
// on first use. opts is ignored when the recorder already exists.
func (g *Registry) Get(name string, opts Options) (*Recorder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.recorders[name]; ok {
		return r, nil
	}
	r, err := New(name, opts)
	if err != nil {
		return nil, err
	}
	g.recorders[name] = r
	return r, nil
}

// Lookup returns the recorder registered under name.
func (g *Registry) Lookup(name string) (*Recorder, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.recorders[name]
	return r, ok
}
