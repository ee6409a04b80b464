// Package device is the capability model every tune producer builds on.
//
// A device is constructed with an explicit mode, a Host to inherit one
// from, or both (in which case they must agree). Devices bound to a Host
// follow the host's mode live, so switching a recorder into validate mode
// switches everything bound to it.
//
// Devices never touch storage. Record and validate paths submit tunes
// through Host.Record; the host's cassette polices legality, persists and,
// in validate mode, compares against the expectation.
package device
