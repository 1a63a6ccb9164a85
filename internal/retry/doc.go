// Package retry provides clock-driven retry with capped exponential
// backoff.
//
// Every delay goes through an injectable Clock so that tests can run
// without real sleeps and so that no hidden global timers exist. The
// search and evaluation clients each hold their own Policy instance:
// the two external services have independent quota windows, and one
// service's backoff must never throttle calls to the other.
package retry
