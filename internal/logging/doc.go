// Package logging assembles the structured slog loggers used across herpid.
//
// It owns the console and JSON handlers, centralizes level parsing, and
// exposes WithComponent so batch components tag their lines uniformly. The
// package also provides a no-op logger for tests.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits lines with the same shape.
package logging
