// Package cassette is the recording medium: the single gate through which
// tunes reach a TrackManager and the file behind it.
package cassette

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// TypeRef identifies cassette configuration tunes.
var TypeRef = tape.TypeRef{Module: "rekorder.cassette", Class: "Cassette"}

// Options configure a Cassette.
type Options struct {
	Mode     tape.Mode
	Input    string
	Output   string
	Registry *tape.Registry
	Clock    tape.Clock
	Logger   *slog.Logger
}

// Cassette owns a TrackManager and persists it.
//
// In record mode every accepted tune is appended and the whole manager is
// rewritten to Output. After BeginValidation the same happens, and then
// each tune of the entry, recording and exit phases is compared against
// the next tune of the same phase in the expectation.
type Cassette struct {
	mode     tape.Mode
	input    string
	output   string
	tracks   *tape.TrackManager
	expected *tape.TrackManager
	clock    tape.Clock
	logger   *slog.Logger
}

// New creates a cassette.
//
// Record mode requires Output and immediately records the cassette's own
// configuration tune into header. Playback and describe modes load Input
// when given; without Input the cassette is an inert self-description.
// Validate mode cannot be requested directly; see BeginValidation.
func New(opts Options) (*Cassette, error) {
	c := &Cassette{
		mode:   opts.Mode,
		input:  opts.Input,
		output: opts.Output,
		clock:  opts.Clock,
		logger: opts.Logger,
	}
	if c.clock == nil {
		c.clock = tape.SystemClock
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	switch opts.Mode {
	case tape.ModeRecord:
		if opts.Output == "" {
			return nil, tape.ConfigError("cassette: record mode requires an output path")
		}
		c.tracks = tape.NewTrackManager()
		tune := tape.NewTune(c, c.configNotes(), tape.NA, tape.NewTimestamp(c.clock()))
		if err := c.Record(tune); err != nil {
			return nil, err
		}
	case tape.ModePlayback, tape.ModeDescribe:
		if opts.Input == "" {
			return c, nil
		}
		if opts.Registry == nil {
			return nil, tape.ConfigError("cassette: loading %s requires a decoder registry", opts.Input)
		}
		tracks, err := Load(opts.Input, opts.Registry, opts.Mode)
		if err != nil {
			return nil, err
		}
		c.tracks = tracks
	case tape.ModeValidate:
		return nil, tape.ConfigError("cassette: validate mode is entered through BeginValidation")
	default:
		return nil, tape.ConfigError("cassette: a mode is required")
	}
	return c, nil
}

// Load reads and reconstructs a recording.
func Load(path string, reg *tape.Registry, mode tape.Mode) (*tape.TrackManager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	tracks, err := reg.Decode(data, mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tracks, nil
}

func (c *Cassette) configNotes() ir.IRObject {
	return ir.IRObject{
		"input":  ir.IRString(c.input),
		"output": ir.IRString(c.output),
	}
}

// Tracks returns the live manager. Nil for an inert cassette.
func (c *Cassette) Tracks() *tape.TrackManager { return c.tracks }

// Expected returns the expectation set by BeginValidation, or nil.
func (c *Cassette) Expected() *tape.TrackManager { return c.expected }

// Now reads the cassette's clock.
func (c *Cassette) Now() time.Time { return c.clock() }

// Input returns the playback source path.
func (c *Cassette) Input() string { return c.input }

// Output returns the record destination path.
func (c *Cassette) Output() string { return c.output }

// Record is the single write gate.
func (c *Cassette) Record(t *tape.Tune) error {
	if !c.mode.Recording() || c.tracks == nil {
		return tape.ConfigError("cassette: cannot record in %s mode", c.mode)
	}

	phase := c.tracks.Phase()
	current := c.tracks.Current()
	if !t.Device.Recordable(phase) {
		return tape.LegalityError(current.Title, t.Type(), "%s is not recordable in %s", t.Type(), phase)
	}
	c.tracks.Append(t)
	if err := c.persist(); err != nil {
		current.Retract(t)
		return err
	}
	c.logger.Debug("tune recorded", "track", current.Title, "device", t.Type().String(), "when", t.When.String())

	if c.mode == tape.ModeValidate {
		return c.validate(phase, t)
	}
	return nil
}

// compared lists the phases checked against the expectation. Header and
// trailer tunes are replayed, not compared.
var compared = map[string]bool{
	tape.TrackEntry:     true,
	tape.TrackRecording: true,
	tape.TrackExit:      true,
}

func (c *Cassette) validate(phase string, actual *tape.Tune) error {
	if !compared[phase] || c.tracks.InSubtrack() {
		return nil
	}
	expected := c.expected.Track(phase).Next()
	if expected == nil {
		return tape.ValidationError(phase, nil, actual, "unexpected tune in %s", phase)
	}
	if !tape.Matches(expected, actual) {
		return tape.ValidationError(phase, expected, actual, "tune does not match the recording")
	}
	return nil
}

// recordingPerm is the mode of a written recording. os.CreateTemp creates
// owner-only files.
const recordingPerm = 0o644

// persist rewrites the whole recording. The document is written to a
// temporary file in the same directory and renamed over Output so the
// file on disk is always complete.
func (c *Cassette) persist() error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.tracks); err != nil {
		return fmt.Errorf("encode recording: %w", err)
	}
	data := buf.Bytes()

	dir := filepath.Dir(c.output)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.output)+".*")
	if err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write recording: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	if err := os.Chmod(tmp.Name(), recordingPerm); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.output); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	return nil
}

// BeginValidation switches a recording cassette into validate mode against
// expected. Live tunes keep being appended and persisted.
func (c *Cassette) BeginValidation(expected *tape.TrackManager) error {
	if c.mode != tape.ModeRecord {
		return tape.ConfigError("cassette: validation starts from record mode, not %s", c.mode)
	}
	if expected == nil {
		return tape.ConfigError("cassette: validation needs an expected recording")
	}
	expected.ResetReads()
	c.expected = expected
	c.mode = tape.ModeValidate
	return nil
}

// PeekExpected returns the next expected tune of the current phase, or nil
// outside validate mode.
func (c *Cassette) PeekExpected() *tape.Tune {
	if c.mode != tape.ModeValidate || c.tracks.InSubtrack() {
		return nil
	}
	phase := c.tracks.Phase()
	if !compared[phase] {
		return nil
	}
	return c.expected.Track(phase).Peek()
}

// Unconsumed returns expected tunes of the compared phases that no live
// tune matched.
func (c *Cassette) Unconsumed() []*tape.Tune {
	if c.expected == nil {
		return nil
	}
	var out []*tape.Tune
	for _, title := range []string{tape.TrackEntry, tape.TrackRecording, tape.TrackExit} {
		out = append(out, c.expected.Track(title).Remaining()...)
	}
	return out
}

// Type implements tape.Device.
func (c *Cassette) Type() tape.TypeRef { return TypeRef }

// Mode implements tape.Device.
func (c *Cassette) Mode() tape.Mode { return c.mode }

// Recordable implements tape.Device; configuration belongs in header.
func (c *Cassette) Recordable(track string) bool { return track == tape.TrackHeader }

// Describe implements tape.Device.
func (c *Cassette) Describe(t *tape.Tune) string {
	return fmt.Sprintf("Cassette input=%q output=%q", t.Notes.String("input"), t.Notes.String("output"))
}

// Playback does nothing: a replayed cassette tune only tells the player
// where the original was written.
func (c *Cassette) Playback(_ context.Context, _ *tape.Tune, _ *device.Stage) error {
	return nil
}

// FromSeed rebuilds the inert self-description of a recorded cassette.
func FromSeed(seed tape.Seed) (tape.Device, error) {
	return &Cassette{
		mode:   seed.Mode,
		input:  seed.Notes.String("input"),
		output: seed.Notes.String("output"),
		clock:  tape.SystemClock,
		logger: slog.Default(),
	}, nil
}

// Register adds the cassette constructor to reg.
func Register(reg *tape.Registry) error {
	return reg.Register(TypeRef, FromSeed)
}
