package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"daemonenv/internal/env"
)

func quoteForSh(v string) string {
	if v == "" {
		return "''"
	}
	if !strings.ContainsAny(v, " \t\n'\"\\$`#;&|<>()*?[]{}~") {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

func quoteForPowerShell(v string) string {
	if v == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// filterEntries keeps entries allowed by onlyList and not in excludeList.
// If onlyList is empty, all names are considered allowed before exclusion.
func filterEntries(entries []env.Entry, onlyList, excludeList []string) []env.Entry {
	onlySet := make(map[string]struct{})
	excludeSet := make(map[string]struct{})

	for _, k := range onlyList {
		k = strings.TrimSpace(k)
		if k != "" {
			onlySet[k] = struct{}{}
		}
	}
	for _, k := range excludeList {
		k = strings.TrimSpace(k)
		if k != "" {
			excludeSet[k] = struct{}{}
		}
	}

	out := make([]env.Entry, 0, len(entries))
	for _, e := range entries {
		if len(onlySet) > 0 {
			if _, ok := onlySet[e.Name]; !ok {
				continue
			}
		}
		if _, ex := excludeSet[e.Name]; ex {
			continue
		}
		out = append(out, e)
	}
	return out
}

func toMap(entries []env.Entry) map[string]string {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		m[e.Name] = e.Value
	}
	return m
}

// printEntries writes entries in one of the supported output formats.
func printEntries(w io.Writer, entries []env.Entry, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "env":
		for _, e := range entries {
			fmt.Fprintf(w, "%s=%s\n", e.Name, quoteForSh(e.Value))
		}
	case "sh":
		for _, e := range entries {
			fmt.Fprintf(w, "export %s=%s\n", e.Name, quoteForSh(e.Value))
		}
	case "pwsh":
		for _, e := range entries {
			fmt.Fprintf(w, "$Env:%s = %s\n", e.Name, quoteForPowerShell(e.Value))
		}
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(toMap(entries)); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
	case "yaml":
		return writeYAML(w, toMap(entries))
	case "raw":
		for _, e := range entries {
			fmt.Fprintln(w, e.String())
		}
	default:
		return fmt.Errorf("invalid --format value: %s (allowed: env, sh, pwsh, json, yaml, raw)", format)
	}
	return nil
}

// printReport writes an inspect report as text, json or yaml.
func printReport(w io.Writer, v any, text func(io.Writer), format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		text(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return writeYAML(w, v)
	default:
		return fmt.Errorf("invalid --format value: %s (allowed: text, json, yaml)", format)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode yaml: %w", err)
	}
	return enc.Close()
}
