package store

import (
	"time"

	"github.com/jcejohnson/rekorder/internal/ir"
)

// Recording is one indexed recording file.
type Recording struct {
	ID       string `json:"id"`
	Digest   string `json:"digest"`
	Path     string `json:"path"`
	Recorder string `json:"recorder"`
	// Entry is the qualified name of the recorded routine, empty when the
	// recording never reached its entry track.
	Entry string `json:"entry"`
	Tunes int    `json:"tunes"`
	// Started is the capture time of the first tune in seconds.
	Started float64 `json:"started"`
	Seq     int64   `json:"seq"`
}

// StartedAt converts Started to a time.Time.
func (r Recording) StartedAt() time.Time {
	sec := int64(r.Started)
	return time.Unix(sec, int64((r.Started-float64(sec))*1e9))
}

// TuneRow is one tune of an indexed recording.
type TuneRow struct {
	RecordingID string `json:"recording_id"`
	Seq         int64  `json:"seq"`
	Track       string `json:"track"`
	// Subtrack is the slash-separated path below Track, empty for tunes of
	// the track itself.
	Subtrack    string      `json:"subtrack,omitempty"`
	Device      string      `json:"device"`
	When        string      `json:"when"`
	Notes       ir.IRObject `json:"notes"`
	Fingerprint string      `json:"fingerprint"`
	Time        float64     `json:"time"`
}

// Outcome classifies a playback run.
type Outcome string

const (
	OutcomePassed   Outcome = "passed"
	OutcomeDiverged Outcome = "diverged"
	OutcomeFailed   Outcome = "failed"
)

// Playback is one recorded playback run of an indexed recording.
type Playback struct {
	ID          string  `json:"id"`
	RecordingID string  `json:"recording_id"`
	Seq         int64   `json:"seq"`
	Output      string  `json:"output"`
	Outcome     Outcome `json:"outcome"`
	Message     string  `json:"message,omitempty"`
}
