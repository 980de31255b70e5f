// Package procsvc provides embedded assets for the procsvc service wrapper.
//
// The root package exists solely to embed [procsvc.default.toml] via
// [DefaultConfigTOML]. cmd/procsvc writes it to the data directory on
// first run.
package procsvc

import _ "embed"

// DefaultConfigTOML holds the raw bytes of procsvc.default.toml, embedded at
// build time.
//
//go:embed procsvc.default.toml
var DefaultConfigTOML []byte
