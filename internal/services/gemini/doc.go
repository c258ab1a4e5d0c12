// Package gemini provides the Gemini generateContent client used for
// reference/candidate image comparison.
//
// # Request Shape
//
// Identify sends one multimodal request per work unit: the reference image,
// the candidate image, and the fixed verification prompt with the reference
// description interpolated. The response's raw text is returned unparsed;
// verdict extraction lives in internal/verdict.
//
// # Retry Behaviour
//
// Transient transport failures (HTTP 408/429/5xx, network timeouts,
// connection errors) are retried with exponential backoff: three attempts by
// default, starting at 2s and capped at 10s, honoring Retry-After when the
// server sends one. Content errors, API application errors, and empty
// responses are permanent and surface immediately. Context cancellation
// aborts retries.
//
// # Errors
//
// Failures are typed (StatusError, EmptyResponseError, media.ContentError)
// rather than string sentinels, so callers can classify outcomes without
// substring matching.
package gemini
