// Package results persists comparison outcomes to a CSV table and tracks
// which work units are already done.
//
// The table is the program's single durable artifact. Every Append rewrites
// it atomically (temp file + rename), so a crash can lose at most the
// in-flight record and never corrupts flushed rows. Load tolerates a
// missing or corrupt table by starting from empty state with a warning,
// which keeps resume behaviour predictable: worst case, work is redone, not
// lost.
//
// Failed work units are recorded too, with an error-marked result text, so
// resume skips them by default. Load's retryFailures flag drops those rows
// instead, making re-attempt of permanent failures an explicit policy.
package results
