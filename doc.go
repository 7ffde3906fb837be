// Package sessionpool implements a session pool for a remote
// transactional database service: it amortizes session creation cost,
// caps concurrent session usage per database, keeps a warm reserve of
// idle sessions split between read-only and pre-begun read/write
// sessions, refreshes and evicts idle sessions on a schedule, and
// provides graceful shutdown.
//
// The pool never talks to the service directly. It is driven entirely
// through the ServiceClient, Clock and Logger interfaces supplied at
// construction, so it can be exercised deterministically against a fake
// client and a virtual clock in tests.
package sessionpool
