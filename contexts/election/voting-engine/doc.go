// Package votingengine runs a single-election ballot inside the election
// context.
//
// It owns the eligible student list, voter registration and sessions, the
// one-ballot-per-voter rule, admin bootstrap and role changes, and the
// plurality tally. Every local change is mirrored best-effort to a secondary
// store, and a full sync reconciles the two in voter, candidate, student,
// ballot order. Business rules live in the application and domain layers;
// storage, hashing, tokens and the secondary store sit behind ports.
package votingengine
