// Package player describes recordings and replays them.
//
// Playback re-runs the recorded routine under a fresh recorder writing to
// a new output and checks every live tune against the recording:
//
//  1. header tunes are replayed: they name the recorder to bind and the
//     command line to hand it;
//  2. the recorder is bound and switched to validate mode;
//  3. the single entry tune is replayed, which runs the routine again;
//  4. the routine must have driven the recording to trailer, and every
//     expected entry, recording and exit tune must have been matched;
//  5. trailer tunes are replayed and recorded into the output.
package player

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jcejohnson/rekorder/internal/cassette"
	"github.com/jcejohnson/rekorder/internal/device"
	"github.com/jcejohnson/rekorder/internal/recorder"
	"github.com/jcejohnson/rekorder/internal/repository"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// Options configure a Player.
type Options struct {
	Input  string
	Output string
	// Decoders rebuild devices from disk. Nil selects the builtins.
	Decoders *tape.Registry
	// Recorders receives the recorder named in the header. A recorder can
	// serve a single playback, so a shared registry must not already hold
	// that name. Nil gives every playback its own registry.
	Recorders   *recorder.Registry
	Entrypoints *device.Catalog
	Snapshotter repository.Snapshotter
	Clock       tape.Clock
	Logger      *slog.Logger
}

// Player drives one recording.
type Player struct {
	opts   Options
	logger *slog.Logger
}

// New creates a player. Input is always required.
func New(opts Options) (*Player, error) {
	if opts.Input == "" {
		return nil, tape.ConfigError("player: an input recording is required")
	}
	if opts.Decoders == nil {
		reg, err := recorder.Builtins(opts.Snapshotter)
		if err != nil {
			return nil, err
		}
		opts.Decoders = reg
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{opts: opts, logger: logger}, nil
}

// Load reads the recording in mode.
func (p *Player) Load(mode tape.Mode) (*tape.TrackManager, error) {
	c, err := cassette.New(cassette.Options{
		Mode:     mode,
		Input:    p.opts.Input,
		Registry: p.opts.Decoders,
		Logger:   p.logger,
	})
	if err != nil {
		return nil, err
	}
	return c.Tracks(), nil
}

// Describe writes every track of the recording with one line per tune.
// It never replays anything.
func (p *Player) Describe(w io.Writer) error {
	tracks, err := p.Load(tape.ModeDescribe)
	if err != nil {
		return err
	}
	for _, track := range tracks.Tracks() {
		fmt.Fprintln(w, track.Title)
		if len(track.Tunes) == 0 && len(track.Subtracks) == 0 {
			fmt.Fprintln(w, "  None")
			continue
		}
		describeTrack(w, track, 1)
	}
	return nil
}

func describeTrack(w io.Writer, track *tape.Track, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, tune := range track.Tunes {
		fmt.Fprintf(w, "%s%s\n", indent, tune.Describe())
	}
	for _, sub := range track.Subtracks {
		fmt.Fprintf(w, "%s(%s)\n", indent, sub.Title)
		describeTrack(w, sub, depth+1)
	}
}

// Summary is the outcome of a successful playback.
type Summary struct {
	Recorder string   `json:"recorder"`
	Args     []string `json:"args"`
	Entry    string   `json:"entry"`
	Tunes    int      `json:"tunes"`
	Output   string   `json:"output"`
}

// Playback replays the recording into Output, validating as it goes.
func (p *Player) Playback(ctx context.Context) (*Summary, error) {
	if p.opts.Output == "" {
		return nil, tape.ConfigError("player: playback requires an output path")
	}
	expected, err := p.Load(tape.ModePlayback)
	if err != nil {
		return nil, err
	}

	stage := &device.Stage{Entrypoints: p.opts.Entrypoints, Logger: p.logger}
	header := expected.Track(tape.TrackHeader)
	if err := checkHeader(header); err != nil {
		return nil, err
	}
	if err := p.replay(ctx, header, stage); err != nil {
		return nil, err
	}

	recorders := p.opts.Recorders
	if recorders == nil {
		recorders = recorder.NewRegistry()
	}
	if _, bound := recorders.Lookup(stage.RecorderName); bound {
		return nil, tape.ConfigError("player: recorder %q already served a run; each playback needs its own", stage.RecorderName)
	}
	rec, err := recorders.Get(stage.RecorderName, recorder.Options{
		Mode:        tape.ModeRecord,
		Input:       p.opts.Input,
		Output:      p.opts.Output,
		Args:        stage.Args,
		Clock:       p.opts.Clock,
		Logger:      p.logger,
		Snapshotter: p.opts.Snapshotter,
	})
	if err != nil {
		return nil, err
	}
	stage.Host = rec
	if err := rec.BeginValidation(expected); err != nil {
		return nil, err
	}

	entry := expected.Track(tape.TrackEntry)
	if len(entry.Tunes) != 1 {
		return nil, tape.ValidationError(tape.TrackEntry, nil, nil,
			"expected exactly one entry tune, found %d", len(entry.Tunes))
	}
	begin := entry.Tunes[0]
	playable, ok := tape.Resolve(begin.Device).(device.Playable)
	if !ok {
		return nil, tape.ValidationError(tape.TrackEntry, begin, nil, "entry tune %s cannot be replayed", begin.Type())
	}
	if err := runEntry(ctx, playable, begin, stage); err != nil {
		return nil, err
	}

	if phase := rec.Tracks().Phase(); phase != tape.TrackTrailer {
		return nil, tape.ValidationError(phase, nil, nil,
			"the routine ended in %s; a completed recording ends in %s", phase, tape.TrackTrailer)
	}
	for _, title := range []string{tape.TrackEntry, tape.TrackRecording, tape.TrackExit} {
		if left := expected.Track(title).Remaining(); len(left) > 0 {
			return nil, tape.ValidationError(title, left[0], nil,
				"%d recorded tunes were never produced", len(left))
		}
	}

	trailer := expected.Track(tape.TrackTrailer)
	if err := p.replay(ctx, trailer, stage); err != nil {
		return nil, err
	}
	for _, tune := range trailer.Tunes {
		if !tune.Device.Recordable(tape.TrackTrailer) {
			p.logger.Debug("not re-recording trailer tune", "device", tune.Type().String())
			continue
		}
		again := tape.NewTune(tune.Device, tune.Notes, tune.When, tape.NewTimestamp(rec.Now()))
		if err := rec.Record(again); err != nil {
			return nil, fmt.Errorf("re-record trailer: %w", err)
		}
	}

	return &Summary{
		Recorder: rec.Name(),
		Args:     stage.Args,
		Entry:    begin.Describe(),
		Tunes:    rec.Tracks().Len(),
		Output:   p.opts.Output,
	}, nil
}

// runEntry replays the entry tune. A panic escaping the routine is
// returned as an error.
func runEntry(ctx context.Context, playable device.Playable, begin *tape.Tune, stage *device.Stage) (err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if perr, ok := p.(error); ok {
			err = fmt.Errorf("routine panicked: %w", perr)
			return
		}
		err = fmt.Errorf("routine panicked: %v", p)
	}()
	return playable.Playback(ctx, begin, stage)
}

// checkHeader verifies the configuration tunes a playable recording
// carries: one cassette, one recorder identity, at most one command line.
func checkHeader(header *tape.Track) error {
	counts := make(map[tape.TypeRef]int)
	for _, tune := range header.Tunes {
		counts[tune.Type()]++
	}
	for _, want := range []struct {
		ref      tape.TypeRef
		min, max int
	}{
		{cassette.TypeRef, 1, 1},
		{recorder.IdentityType, 1, 1},
		{recorder.CliStateType, 0, 1},
	} {
		if n := counts[want.ref]; n < want.min || n > want.max {
			return tape.ValidationError(tape.TrackHeader, nil, nil,
				"header holds %d %s tunes, want %d..%d", n, want.ref, want.min, want.max)
		}
	}
	return nil
}

func (p *Player) replay(ctx context.Context, track *tape.Track, stage *device.Stage) error {
	for _, tune := range track.Tunes {
		playable, ok := tape.Resolve(tune.Device).(device.Playable)
		if !ok {
			p.logger.Debug("nothing to replay", "track", track.Title, "device", tune.Type().String())
			continue
		}
		if err := playable.Playback(ctx, tune, stage); err != nil {
			return fmt.Errorf("replay %s tune %s: %w", track.Title, tune.Type(), err)
		}
	}
	return nil
}
