package tape

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jcejohnson/rekorder/internal/ir"
)

// Seed is everything a constructor gets to rebuild a device from disk.
type Seed struct {
	Ref       TypeRef
	Mode      Mode
	Notes     ir.IRObject
	When      When
	Timestamp Timestamp
}

// Constructor builds the playback instance of a device from its seed.
type Constructor func(Seed) (Device, error)

// Registry maps type tags to constructors. It is populated once at
// process start and then only read.
type Registry struct {
	ctors map[TypeRef]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[TypeRef]Constructor)}
}

// Register adds a constructor. Registering a tag twice is a config error.
func (r *Registry) Register(ref TypeRef, ctor Constructor) error {
	if _, dup := r.ctors[ref]; dup {
		return ConfigError("type %s already registered", ref)
	}
	r.ctors[ref] = ctor
	return nil
}

// Known returns the registered tags, sorted.
func (r *Registry) Known() []TypeRef {
	refs := make([]TypeRef, 0, len(r.ctors))
	for ref := range r.ctors {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].String() < refs[j].String() })
	return refs
}

// Check reports a config error when tunes of d could not be rebuilt from
// disk. A composite never records itself, so its parts are checked
// instead.
func (r *Registry) Check(d Device) error {
	if c, ok := d.(Composite); ok {
		for _, part := range c.Parts() {
			if err := r.Check(part); err != nil {
				return err
			}
		}
		return nil
	}
	ref := Resolve(d).Type()
	if _, ok := r.ctors[ref]; !ok {
		return ConfigError("no decoder registered for %s (known: %v)", ref, r.Known())
	}
	return nil
}

// Build resolves seed.Ref and constructs the device. Unknown tags yield
// an Opaque device so a recording from a richer program can still be
// described.
func (r *Registry) Build(seed Seed) (Device, error) {
	ctor, ok := r.ctors[seed.Ref]
	if !ok {
		return NewOpaque(seed.Ref, seed.Mode), nil
	}
	d, err := ctor(seed)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", seed.Ref, err)
	}
	return d, nil
}

type rawTune struct {
	Device    TypeRef     `json:"device"`
	Notes     ir.IRObject `json:"notes"`
	Timestamp Timestamp   `json:"timestamp"`
	When      When        `json:"when"`
}

type rawTrack struct {
	Index     int        `json:"index"`
	Subtracks []rawTrack `json:"subtracks"`
	Title     string     `json:"title"`
	Tunes     []rawTune  `json:"tunes"`
}

// Decode rebuilds a TrackManager from its persisted form. Every tune's
// device is reconstructed through the registry in the given mode. The
// cursor of the result sits at header and read cursors are rewound.
func (r *Registry) Decode(data []byte, mode Mode) (*TrackManager, error) {
	var raw []rawTrack
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	if len(raw) != len(Titles) {
		return nil, fmt.Errorf("decode recording: want %d tracks, got %d", len(Titles), len(raw))
	}

	m := NewTrackManager()
	for i, rt := range raw {
		if rt.Title != Titles[i] {
			return nil, fmt.Errorf("decode recording: track %d is %q, want %q", i, rt.Title, Titles[i])
		}
		if err := r.fill(m.tracks[i], rt, mode); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (r *Registry) fill(track *Track, rt rawTrack, mode Mode) error {
	for j, raw := range rt.Tunes {
		tune, err := r.decodeTune(raw, mode)
		if err != nil {
			return fmt.Errorf("track %q tune %d: %w", track.Title, j, err)
		}
		track.Append(tune)
	}
	for _, rs := range rt.Subtracks {
		sub := &Track{Index: SubtrackIndex, Title: rs.Title, parent: track}
		if err := r.fill(sub, rs, mode); err != nil {
			return err
		}
		track.Subtracks = append(track.Subtracks, sub)
	}
	return nil
}

func (r *Registry) decodeTune(raw rawTune, mode Mode) (*Tune, error) {
	if raw.Device.IsZero() {
		return nil, fmt.Errorf("missing device identity")
	}
	notes := raw.Notes
	if notes == nil {
		notes = ir.IRObject{}
	}
	d, err := r.Build(Seed{
		Ref:       raw.Device,
		Mode:      mode,
		Notes:     notes,
		When:      raw.When,
		Timestamp: raw.Timestamp,
	})
	if err != nil {
		return nil, err
	}
	return &Tune{Device: d, Notes: notes, When: raw.When, Timestamp: raw.Timestamp}, nil
}
