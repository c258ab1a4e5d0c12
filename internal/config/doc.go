// Package config loads, normalizes, and validates herpid's TOML
// configuration.
//
// Load resolves the config path (explicit flag, ~/.config/herpid/config.toml,
// or ./herpid.toml), decodes it over repository defaults, expands all path
// fields, and validates ranges. Credentials are validated separately via
// ValidateCredentials so read-only commands work without an API key.
//
// The embedded sample_config.toml is written by `herpid config init` and
// doubles as the reference documentation for every setting.
package config
