// Package main implements the genconfig tool that writes procsvc.default.toml
// from config.DefaultConfig().
//
// It is invoked by go generate via the directive in internal/config/config.go.
package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/procsvc/internal/config"
)

func main() {
	result, err := render(config.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		os.Exit(1)
	}

	// go generate runs from the package directory (internal/config/).
	// ../../ reaches the repo root where configdata.go embeds the file.
	outPath := "../../procsvc.default.toml"
	if err := os.WriteFile(outPath, []byte(result), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outPath, err)
		os.Exit(1)
	}
	fmt.Printf("wrote procsvc.default.toml\n")
}

// render encodes cfg as TOML and annotates it with [config.ConfigDocs].
func render(cfg *config.Config) (string, error) {
	var raw bytes.Buffer
	if err := toml.NewEncoder(&raw).Encode(cfg); err != nil {
		return "", err
	}

	lines := strings.Split(raw.String(), "\n")
	var out []string

	out = append(out,
		"# ///////////////////////////////////////////////",
		"# Procsvc Configuration",
		"# ///////////////////////////////////////////////",
		"",
	)

	// Current TOML section path for field lookup
	var sectionStack []string
	// Doc keys already emitted, so omitted fields can be injected
	emittedKeys := map[string]bool{}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		// Spacing is managed here, not by the encoder
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "[") && !strings.HasPrefix(trimmed, "[[") {
			injectOmitted(&out, sectionStack, emittedKeys)

			section := strings.Trim(trimmed, "[] ")
			sectionStack = parseSectionPath(section)

			out = append(out, "")
			out = append(out, fmt.Sprintf("# ///// %s /////", sectionName(section)))
			out = append(out, "")

			if doc, ok := config.ConfigDocs[section]; ok && doc.Comment != "" {
				out = appendComment(out, doc.Comment)
			}
			out = append(out, trimmed)
			continue
		}

		if !strings.Contains(trimmed, "=") || strings.HasPrefix(trimmed, "#") {
			out = append(out, trimmed)
			continue
		}

		key := strings.TrimSpace(strings.SplitN(trimmed, "=", 2)[0])
		fullPath := key
		if len(sectionStack) > 0 {
			fullPath = strings.Join(sectionStack, ".") + "." + key
		}
		emittedKeys[fullPath] = true

		doc, ok := config.ConfigDocs[fullPath]
		if !ok {
			out = append(out, trimmed)
			continue
		}
		if doc.Comment != "" {
			out = appendComment(out, doc.Comment)
		}
		out = append(out, trimmed)
		for _, alt := range doc.Alternatives {
			out = append(out, "# "+alt)
		}
	}

	injectOmitted(&out, sectionStack, emittedKeys)

	result := strings.Join(out, "\n")
	return strings.TrimRight(result, "\n") + "\n", nil
}

// appendComment appends each line of comment prefixed with "# ".
func appendComment(out []string, comment string) []string {
	for _, cl := range strings.Split(comment, "\n") {
		out = append(out, "# "+cl)
	}
	return out
}

// injectOmitted appends commented-out entries for [config.ConfigDocs] keys that
// belong to the current section but were not emitted by the TOML encoder, such as
// a nil slice. Keys are sorted for deterministic ordering.
func injectOmitted(out *[]string, sectionStack []string, emitted map[string]bool) {
	if len(sectionStack) == 0 {
		return
	}
	prefix := strings.Join(sectionStack, ".") + "."

	// Collect omitted keys and sort for deterministic output
	var omitted []string
	for path := range config.ConfigDocs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		rest := strings.TrimPrefix(path, prefix)
		if strings.Contains(rest, ".") {
			continue
		}
		if emitted[path] {
			continue
		}
		omitted = append(omitted, path)
	}
	sort.Strings(omitted)

	for _, path := range omitted {
		doc := config.ConfigDocs[path]
		*out = append(*out, "")
		if doc.Comment != "" {
			*out = appendComment(*out, doc.Comment)
		}
		for _, alt := range doc.Alternatives {
			*out = append(*out, "# "+alt)
		}
		emitted[path] = true
	}
}

// parseSectionPath splits a dotted TOML section header (e.g. "log.rotate")
// into its path segments (["log", "rotate"]).
func parseSectionPath(section string) []string {
	return strings.Split(section, ".")
}

// sectionName returns a human-readable display name for a TOML section header
// by capitalizing its last dotted segment. "log.rotate" yields "Rotate".
func sectionName(section string) string {
	parts := strings.Split(section, ".")
	last := parts[len(parts)-1]
	if len(last) == 0 {
		return ""
	}
	return strings.ToUpper(last[:1]) + last[1:]
}
