// Package diarization holds the value types produced by the upstream
// diarization pipeline: speaker labels, per-meeting hints (label centroids,
// sample ranges, precomputed matches) and the transcript fixture format used
// for ingestion.
//
// Labels are inconsistent across pipeline versions ("SPEAKER_01",
// "Speaker_1", "speaker_1"). LabelCandidates expands a label into the forms
// a store lookup should probe, and LabelKey gives the canonical form used
// for equality.
package diarization
