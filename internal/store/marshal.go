package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jcejohnson/rekorder/internal/ir"
	"github.com/jcejohnson/rekorder/internal/tape"
)

// marshalNotes converts notes to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalNotes(notes ir.IRObject) (string, error) {
	if notes == nil {
		notes = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(notes)
	if err != nil {
		return "", fmt.Errorf("marshal notes: %w", err)
	}
	return string(data), nil
}

// unmarshalNotes parses canonical JSON TEXT to IRObject.
// Uses ir.IRObject.UnmarshalJSON which keeps integers apart from floats.
func unmarshalNotes(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal notes: %w", err)
	}
	return obj, nil
}

// flatten lists every tune of tracks in document order: each track's own
// tunes, then its sub-tracks depth first. Seq starts at 1.
func flatten(tracks *tape.TrackManager) ([]TuneRow, error) {
	var rows []TuneRow
	var walk func(track *tape.Track, path []string) error
	walk = func(track *tape.Track, path []string) error {
		for _, tune := range track.Tunes {
			fp, err := tune.Fingerprint()
			if err != nil {
				return fmt.Errorf("fingerprint %s tune: %w", track.Title, err)
			}
			rows = append(rows, TuneRow{
				Seq:         int64(len(rows) + 1),
				Track:       track.Phase(),
				Subtrack:    strings.Join(path, "/"),
				Device:      tune.Type().String(),
				When:        tune.When.String(),
				Notes:       tune.Notes,
				Fingerprint: fp,
				Time:        tune.Timestamp.Time,
			})
		}
		for _, sub := range track.Subtracks {
			if err := walk(sub, append(path, sub.Title)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, track := range tracks.Tracks() {
		if err := walk(track, nil); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// recordingDigest identifies a recording by the ordered fingerprints of
// its tunes. Timestamps do not take part, so two captures of the same run
// share a digest.
func recordingDigest(rows []TuneRow) (string, error) {
	entries := make(ir.IRArray, len(rows))
	for i, row := range rows {
		entries[i] = ir.IRObject{
			"track":       ir.IRString(row.Track),
			"subtrack":    ir.IRString(row.Subtrack),
			"fingerprint": ir.IRString(row.Fingerprint),
		}
	}
	return ir.Digest(ir.DomainRecording, entries)
}
