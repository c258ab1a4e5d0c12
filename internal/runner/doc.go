// Package runner drives the comparison batch.
//
// Each work unit moves through exactly one transition:
//
//	Pending -> Skipped    already recorded in the result table
//	Pending -> Succeeded  model responded; verdict parsed and recorded
//	Pending -> Failed     client error; recorded with an error-marked text
//
// Failures are recorded and counted, never fatal: the batch finishes the
// remaining units regardless. Results flush after every unit, so the run can
// be interrupted and resumed at any point. A file lock next to the results
// table keeps two concurrent runs from interleaving writes, and a fixed
// pacing delay after each issued request keeps the batch inside external
// rate limits.
package runner
