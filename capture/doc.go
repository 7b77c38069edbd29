// Package capture decides whether raw message content may be attached to
// telemetry.
//
// Every content category defaults to deny. Configuration enables capture
// per category; a caller-supplied Override forces the decision for a single
// call and takes precedence over configuration. Registered redactors run
// before any content leaves the policy; a redactor failure means the
// content is not captured at all.
package capture
