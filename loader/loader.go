// Package loader reads show and show pool definitions from YAML, TOML and JSON
// files.
//
// A show file has two optional top-level sections:
//
//	shows:
//	  attract:
//	    - duration: 500ms
//	      lights: {l_shoot_again: "(color)"}
//	    - duration: 1.5
//	show_pools:
//	  rotation:
//	    type: random_force_all
//	    shows: [attract|2, flash]
//
// Every key of a step other than duration becomes the step payload. Durations
// are Go duration strings or numbers of seconds; a missing duration is one second.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/showcontrol/show"
)

// DefaultStepDuration is used for steps that do not name a duration.
const DefaultStepDuration = time.Second

// Format is a show file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedShowFile, path)
	}
}

// File holds the shows and pools read from one source, sorted by name.
type File struct {
	Shows []*show.Definition
	Pools []*show.Pool
}

// Register adds every show, then every pool, to reg. It stops at the first
// error, which includes duplicate names.
func (f *File) Register(reg *show.Registry) error {
	for _, def := range f.Shows {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	for _, pool := range f.Pools {
		if err := reg.RegisterPool(pool); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads and parses a show file.
func LoadFile(path string, opts ...show.PoolOption) (*File, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read show file: %w", err)
	}
	f, err := Parse(data, format, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes show file content in the given format.
func Parse(data []byte, format Format, opts ...show.PoolOption) (*File, error) {
	var raw map[string]any
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatTOML:
		err = toml.Unmarshal(data, &raw)
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedShowFile, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidShowFile, err)
	}
	return build(raw, opts)
}

func build(raw map[string]any, opts []show.PoolOption) (*File, error) {
	f := &File{}

	shows, err := section(raw, "shows")
	if err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(shows) {
		def, err := parseShow(name, shows[name])
		if err != nil {
			return nil, err
		}
		f.Shows = append(f.Shows, def)
	}

	pools, err := section(raw, "show_pools")
	if err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(pools) {
		pool, err := parsePool(name, pools[name], opts)
		if err != nil {
			return nil, err
		}
		f.Pools = append(f.Pools, pool)
	}
	return f, nil
}

func section(raw map[string]any, key string) (map[string]any, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a mapping, got %T", ErrInvalidShowFile, key, v)
	}
	return m, nil
}

func parseShow(name string, v any) (*show.Definition, error) {
	entries, err := list(v)
	if err != nil {
		return nil, fmt.Errorf("%w: show %q: %w", ErrInvalidShowFile, name, err)
	}

	steps := make([]show.Step, 0, len(entries))
	for i, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: show %q step %d must be a mapping, got %T", ErrInvalidStep, name, i+1, entry)
		}
		step, err := parseStep(fields)
		if err != nil {
			return nil, fmt.Errorf("show %q step %d: %w", name, i+1, err)
		}
		steps = append(steps, step)
	}
	return show.NewDefinition(name, steps)
}

func parseStep(fields map[string]any) (show.Step, error) {
	step := show.Step{Duration: DefaultStepDuration}
	payload := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "duration" {
			d, err := ParseDuration(v)
			if err != nil {
				return show.Step{}, err
			}
			step.Duration = d
			continue
		}
		payload[k] = v
	}
	if len(payload) > 0 {
		step.Payload = payload
	}
	return step, nil
}

// ParseDuration accepts a Go duration string ("250ms", "1m30s") or a number of
// seconds, given as a number or a numeric string.
func ParseDuration(v any) (time.Duration, error) {
	var seconds float64
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case int:
		seconds = float64(t)
	case int64:
		seconds = float64(t)
	case uint64:
		seconds = float64(t)
	case float64:
		seconds = t
	case string:
		s := strings.TrimSpace(t)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, t)
		}
		seconds = f
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidDuration, v)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func parsePool(name string, v any, opts []show.PoolOption) (*show.Pool, error) {
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: show pool %q must be a mapping, got %T", ErrInvalidShowFile, name, v)
	}

	policy := show.PoolSequential
	if t, ok := fields["type"]; ok {
		s, ok := t.(string)
		if !ok {
			return nil, fmt.Errorf("%w: show pool %q type must be a string", ErrInvalidShowFile, name)
		}
		policy = poolPolicy(s)
	}

	entries, err := list(fields["shows"])
	if err != nil {
		return nil, fmt.Errorf("%w: show pool %q shows: %w", ErrInvalidShowFile, name, err)
	}
	members := make([]show.PoolMember, 0, len(entries))
	for _, entry := range entries {
		s, ok := entry.(string)
		if !ok {
			return nil, fmt.Errorf("%w: show pool %q member must be a string, got %T", ErrInvalidShowFile, name, entry)
		}
		m, err := show.ParsePoolMember(s)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return show.NewPool(name, policy, members, opts...)
}

// poolPolicy maps the pool type names used in show files to a policy.
func poolPolicy(s string) show.PoolPolicy {
	switch s {
	case "sequence":
		return show.PoolSequential
	default:
		return show.PoolPolicy(s)
	}
}

// list normalizes the sequence shapes produced by the decoders.
func list(v any) ([]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []any:
		return t, nil
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out, nil
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list, got %T", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
