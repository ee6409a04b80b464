package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcejohnson/rekorder/internal/recorder"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// IndexRecording adds the recording loaded from path to the index.
// Returns the indexed row and whether it was inserted.
//
// Recordings are deduplicated by digest: indexing the same content again,
// from any path, returns the existing row and inserted=false. The
// recording row and all of its tunes are written in one transaction.
func (s *Store) IndexRecording(ctx context.Context, path string, tracks *tape.TrackManager) (rec Recording, inserted bool, err error) {
	rows, err := flatten(tracks)
	if err != nil {
		return Recording{}, false, fmt.Errorf("index recording: %w", err)
	}
	digest, err := recordingDigest(rows)
	if err != nil {
		return Recording{}, false, fmt.Errorf("index recording: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Recording{}, false, fmt.Errorf("index recording: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	existing, err := scanRecording(tx.QueryRowContext(ctx, selectRecording+` WHERE digest = ?`, digest))
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return Recording{}, false, fmt.Errorf("index recording: select existing: %w", err)
	}

	id, err := s.newID()
	if err != nil {
		return Recording{}, false, fmt.Errorf("index recording: new id: %w", err)
	}
	seq, err := nextSeq(ctx, tx, "recordings")
	if err != nil {
		return Recording{}, false, fmt.Errorf("index recording: %w", err)
	}
	rec = Recording{
		ID:       id,
		Digest:   digest,
		Path:     path,
		Recorder: recorderName(tracks),
		Entry:    entryName(tracks),
		Tunes:    len(rows),
		Seq:      seq,
	}
	if len(rows) > 0 {
		rec.Started = rows[0].Time
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recordings
		(id, digest, path, recorder, entry, tune_count, started, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(digest) DO NOTHING
	`,
		rec.ID,
		rec.Digest,
		rec.Path,
		rec.Recorder,
		rec.Entry,
		rec.Tunes,
		rec.Started,
		rec.Seq,
	)
	if err != nil {
		return Recording{}, false, fmt.Errorf("index recording: insert: %w", err)
	}

	for _, row := range rows {
		notes, err := marshalNotes(row.Notes)
		if err != nil {
			return Recording{}, false, fmt.Errorf("index recording: tune %d: %w", row.Seq, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tunes
			(recording_id, seq, track, subtrack, device, qualifier, notes, fingerprint, time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(recording_id, seq) DO NOTHING
		`,
			rec.ID,
			row.Seq,
			row.Track,
			row.Subtrack,
			row.Device,
			row.When,
			notes,
			row.Fingerprint,
			row.Time,
		)
		if err != nil {
			return Recording{}, false, fmt.Errorf("index recording: insert tune %d: %w", row.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Recording{}, false, fmt.Errorf("index recording: commit: %w", err)
	}

	return rec, true, nil
}

// WritePlayback appends a playback run to the history of its recording.
// ID and Seq are assigned by the store and returned.
//
// Note: The recording referenced by RecordingID must exist (foreign key constraint).
func (s *Store) WritePlayback(ctx context.Context, pb Playback) (Playback, error) {
	switch pb.Outcome {
	case OutcomePassed, OutcomeDiverged, OutcomeFailed:
	default:
		return Playback{}, fmt.Errorf("write playback: unknown outcome %q", pb.Outcome)
	}

	id, err := s.newID()
	if err != nil {
		return Playback{}, fmt.Errorf("write playback: new id: %w", err)
	}
	pb.ID = id

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Playback{}, fmt.Errorf("write playback: begin tx: %w", err)
	}
	defer tx.Rollback()

	if pb.Seq, err = nextSeq(ctx, tx, "playbacks"); err != nil {
		return Playback{}, fmt.Errorf("write playback: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO playbacks
		(id, recording_id, seq, output, outcome, message)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		pb.ID,
		pb.RecordingID,
		pb.Seq,
		pb.Output,
		string(pb.Outcome),
		pb.Message,
	)
	if err != nil {
		return Playback{}, fmt.Errorf("write playback: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Playback{}, fmt.Errorf("write playback: commit: %w", err)
	}
	return pb, nil
}

// recorderName is the name carried by the header's recorder identity.
func recorderName(tracks *tape.TrackManager) string {
	for _, tune := range tracks.Track(tape.TrackHeader).Tunes {
		if tune.Type() == recorder.IdentityType {
			return tune.Notes.String("name")
		}
	}
	return ""
}

// entryName is the qualified name of the routine begun in entry.
func entryName(tracks *tape.TrackManager) string {
	entry := tracks.Track(tape.TrackEntry).Tunes
	if len(entry) == 0 {
		return ""
	}
	return entry[0].Notes.Object("function").String("qualname")
}
