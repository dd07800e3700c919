// Package config resolves the flat key/value settings a connection pool is
// built from. A Source may read a properties, YAML or TOML file, pick the
// file through an environment variable, or serve an in-memory map.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/magiconair/properties"
	"gopkg.in/yaml.v3"
)

// Source resolves a configuration mapping.
type Source interface {
	Resolve() (map[string]string, error)
	String() string
}

// Error reports a source that could not be resolved.
type Error struct {
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type fileSource struct {
	path string
}

// File returns a Source reading path. The decoder is chosen by extension:
// .yaml/.yml, .toml, anything else is parsed as a Java-style properties file.
func File(path string) Source {
	return fileSource{path: path}
}

func (f fileSource) String() string {
	return f.path
}

func (f fileSource) Resolve() (map[string]string, error) {
	if f.path == "" {
		return nil, &Error{Source: "file", Err: fmt.Errorf("empty path")}
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, &Error{Source: f.path, Err: err}
	}

	var values map[string]string
	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		values, err = decodeYAML(data)
	case ".toml":
		values, err = decodeTOML(data)
	default:
		values, err = decodeProperties(data)
	}
	if err != nil {
		return nil, &Error{Source: f.path, Err: err}
	}
	return values, nil
}

type envSource struct {
	name     string
	fallback string
}

// Env returns a Source reading the file named by the environment variable
// name, or fallback when the variable is unset or empty.
func Env(name, fallback string) Source {
	return envSource{name: name, fallback: fallback}
}

func (e envSource) path() string {
	if p := os.Getenv(e.name); p != "" {
		return p
	}
	return e.fallback
}

func (e envSource) String() string {
	return "$" + e.name + "=" + e.path()
}

func (e envSource) Resolve() (map[string]string, error) {
	p := e.path()
	if p == "" {
		return nil, &Error{Source: "$" + e.name, Err: fmt.Errorf("variable not set and no fallback path")}
	}
	return File(p).Resolve()
}

// Map is an in-memory Source. Resolve returns a copy.
type Map map[string]string

func (m Map) String() string {
	return "map"
}

func (m Map) Resolve() (map[string]string, error) {
	if m == nil {
		return nil, &Error{Source: "map", Err: fmt.Errorf("nil map")}
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

// Keys returns the sorted keys of values.
func Keys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func decodeProperties(data []byte) (map[string]string, error) {
	p, err := properties.Load(data, properties.UTF8)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}

func decodeYAML(data []byte) (map[string]string, error) {
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

func decodeTOML(data []byte) (map[string]string, error) {
	var tree map[string]interface{}
	if _, err := toml.Decode(string(data), &tree); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flatten("", tree, out)
	return out, nil
}

// flatten joins nested keys with '.' so that
//
//	jdbc:
//	  url: x
//
// becomes "jdbc.url" = "x".
func flatten(prefix string, node interface{}, out map[string]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flatten(join(prefix, k), child, out)
		}
	case map[interface{}]interface{}:
		for k, child := range v {
			flatten(join(prefix, fmt.Sprint(k)), child, out)
		}
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
