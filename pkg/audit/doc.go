// Package audit records configuration access events.
//
// Every resolution that reaches past the value cache produces one Event
// carrying the requesting actor, the key, its classification tier, the
// sanitized value, the resolution source tier, and a success flag. Events
// are delivered through an Emitter; delivery failures are logged and
// swallowed so that audit emission can never fail a configuration read.
//
// Sinks: database table (DBEmitter), Redis stream (RedisEmitter),
// structured log (LogEmitter), fan-out (MultiEmitter).
package audit
