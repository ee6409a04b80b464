// Package tape holds the event log shared by every other package: tunes,
// tracks, the phase state machine that owns them, the decoder registry
// used to rebuild typed devices from disk, and the typed errors the engine
// raises.
//
// A recording is five tracks visited in a fixed order:
//
//	header -> entry -> recording -> exit -> trailer
//
// The TrackManager cursor only moves forward, one track at a time. A
// sub-track may be pushed beneath the current track (the "mock" region of
// a mocked call) and must be concluded before the cursor moves again.
//
// Tunes are immutable once appended. Their notes are deep-copied on
// construction so callers can keep mutating the values they passed in.
package tape
