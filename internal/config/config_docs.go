package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated procsvc.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "log.level") to
// their [FieldDoc] entries.
var ConfigDocs = map[string]FieldDoc{
	// ── Service ──────────────────────────────────────────────────
	"service.name_prefix": {
		Comment: "Prefix of the generated service name. A random number is appended\nand the full name is printed on stdout at startup.",
	},

	// ── Supervisor ───────────────────────────────────────────────
	"supervisor.poll_interval_ms": {
		Comment: "Pause between child liveness checks, in milliseconds.\n0 checks continuously and keeps one CPU core busy.",
		Alternatives: []string{
			`poll_interval_ms = 0`,
		},
	},
	"supervisor.allow": {
		Comment: "Glob patterns (** supported) the resolved target path must match.\nAn empty list allows any target. A target outside the list ends the run\nwith exit code 4.",
		Alternatives: []string{
			`allow = ["C:/Program Files/Sombra/**"]`,
		},
	},

	// ── Control ──────────────────────────────────────────────────
	"control.pipe": {
		Comment: "Open a local control endpoint named after the service\n(\\\\.\\pipe\\<name> on Windows, <tmp>/<name>.sock elsewhere).\nprocsvcctl uses it to stop or interrogate the service.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log.level": {
		Comment: "Minimum log level. Options: \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate procsvc.log once it reaches this size.",
	},
	"log.watch": {
		Comment: "Reload log.level when this file changes, without restarting the service.",
	},
}
