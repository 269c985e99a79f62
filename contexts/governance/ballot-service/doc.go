// Package ballotservice implements the deadline-bound ballot engine
// inside the governance context.
//
// The module owns proposal lifecycle (create, derive open/closed from the
// deadline, report results), the voter credit ledger (grant, debit on
// vote), and the vote transaction binding the two. Downstream event
// production runs through outbox-backed workers. Business rules live in
// application/domain layers; infrastructure stays behind ports and
// adapters.
package ballotservice
