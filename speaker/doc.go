// Package speaker resolves diarization labels on transcript segments to
// people.
//
// A segment's identity is derived at read time from three signals, strongest
// first: an explicit person on the segment, a meeting-scoped alias for the
// segment's label, and finally the raw label itself. Resolver computes that
// chain without writing anything.
//
// Service holds the mutating operations operators use to curate identities:
// AssignAlias, RelabelSegments, AssignPersonSegments and SplitSegment, plus
// fingerprint maintenance. Each runs inside one Store transaction.
// AssignPersonSegments reuses a person's existing label in the meeting so
// one person is never split across several labels.
//
// Suggester matches the per-label centroids from a meeting's diarization
// hints against the stored voice fingerprints and ranks candidates for
// review.
package speaker
