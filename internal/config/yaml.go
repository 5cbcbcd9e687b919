// Package config provides a YAML configuration loader for kong so that
// issuance runs can be described in a file instead of flags.
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// YAML is a kong.ConfigurationLoader. Keys match flag names, with dashes or
// underscores, optionally nested under the command name:
//
//	ca-name: Test CA
//	services:
//	  - a.example.com
//	  - "*.b.example.com"
//	issue:
//	  output-directory: out
func YAML(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode YAML config: %w", err)
	}

	var f kong.ResolverFunc = func(context *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
		raw, ok := lookup(values, parent, flag.Name)
		if !ok {
			return nil, nil
		}
		return flatten(raw, flag.Tag.Sep), nil
	}

	return f, nil
}

// lookup finds name in the command's section first, then at the top level.
func lookup(values map[string]any, parent *kong.Path, name string) (any, bool) {
	if parent != nil && parent.Command != nil {
		if section, ok := values[parent.Command.Name].(map[string]any); ok {
			if raw, ok := find(section, name); ok {
				return raw, true
			}
		}
	}
	return find(values, name)
}

func find(values map[string]any, name string) (any, bool) {
	for _, key := range []string{name, strings.ReplaceAll(name, "-", "_")} {
		if raw, ok := values[key]; ok {
			return raw, true
		}
	}
	return nil, false
}

// flatten turns YAML sequences into the separator-joined form kong parses
// for slice flags. Scalars are returned as strings.
func flatten(raw any, sep rune) any {
	list, ok := raw.([]any)
	if !ok {
		return fmt.Sprint(raw)
	}

	if sep == 0 || sep == -1 {
		sep = ','
	}

	parts := make([]string, 0, len(list))
	for _, item := range list {
		parts = append(parts, fmt.Sprint(item))
	}
	return strings.Join(parts, string(sep))
}
