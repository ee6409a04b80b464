package store

import (
	"context"
	"database/sql"
	"fmt"
)

const selectRecording = `
	SELECT id, digest, path, recorder, entry, tune_count, started, seq
	FROM recordings`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (Recording, error) {
	var r Recording
	err := row.Scan(&r.ID, &r.Digest, &r.Path, &r.Recorder, &r.Entry, &r.Tunes, &r.Started, &r.Seq)
	if err != nil {
		return Recording{}, err
	}
	return r, nil
}

// ReadRecording retrieves a single recording by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRecording(ctx context.Context, id string) (Recording, error) {
	return scanRecording(s.db.QueryRowContext(ctx, selectRecording+` WHERE id = ?`, id))
}

// ListRecordings returns every indexed recording in the order it was
// indexed.
//
// Returns an empty slice (not nil) if the index is empty.
func (s *Store) ListRecordings(ctx context.Context) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx, selectRecording+`
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query recordings: %w", err)
	}
	defer rows.Close()

	recordings := []Recording{}
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		recordings = append(recordings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recordings: %w", err)
	}
	return recordings, nil
}

// ReadTunes returns the tunes of a recording in document order.
//
// Returns an empty slice (not nil) if the recording has no tunes.
func (s *Store) ReadTunes(ctx context.Context, recordingID string) ([]TuneRow, error) {
	return s.queryTunes(ctx, `
		SELECT recording_id, seq, track, subtrack, device, qualifier, notes, fingerprint, time
		FROM tunes
		WHERE recording_id = ?
		ORDER BY seq ASC
	`, recordingID)
}

// FindTunes returns every indexed tune captured by device, across all
// recordings, ordered by recording then position.
func (s *Store) FindTunes(ctx context.Context, device string) ([]TuneRow, error) {
	return s.queryTunes(ctx, `
		SELECT t.recording_id, t.seq, t.track, t.subtrack, t.device, t.qualifier, t.notes, t.fingerprint, t.time
		FROM tunes t
		JOIN recordings r ON t.recording_id = r.id
		WHERE t.device = ?
		ORDER BY r.seq ASC, t.seq ASC
	`, device)
}

func (s *Store) queryTunes(ctx context.Context, query string, args ...any) ([]TuneRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tunes: %w", err)
	}
	defer rows.Close()

	tunes := []TuneRow{}
	for rows.Next() {
		var t TuneRow
		var notes string
		if err := rows.Scan(&t.RecordingID, &t.Seq, &t.Track, &t.Subtrack, &t.Device, &t.When, &notes, &t.Fingerprint, &t.Time); err != nil {
			return nil, fmt.Errorf("scan tune: %w", err)
		}
		if t.Notes, err = unmarshalNotes(notes); err != nil {
			return nil, fmt.Errorf("tune %s/%d: %w", t.RecordingID, t.Seq, err)
		}
		tunes = append(tunes, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tunes: %w", err)
	}
	return tunes, nil
}

// ReadHistory returns the playback runs of a recording, oldest first. An
// empty recordingID returns the runs of every recording.
//
// Returns an empty slice (not nil) if there is no history.
func (s *Store) ReadHistory(ctx context.Context, recordingID string) ([]Playback, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if recordingID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, recording_id, seq, output, outcome, message
			FROM playbacks
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, recording_id, seq, output, outcome, message
			FROM playbacks
			WHERE recording_id = ?
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, recordingID)
	}
	if err != nil {
		return nil, fmt.Errorf("query playbacks: %w", err)
	}
	defer rows.Close()

	history := []Playback{}
	for rows.Next() {
		var pb Playback
		var outcome string
		if err := rows.Scan(&pb.ID, &pb.RecordingID, &pb.Seq, &pb.Output, &outcome, &pb.Message); err != nil {
			return nil, fmt.Errorf("scan playback: %w", err)
		}
		pb.Outcome = Outcome(outcome)
		history = append(history, pb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playbacks: %w", err)
	}
	return history, nil
}
