package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingKey is matched by every MissingKeyError.
var ErrMissingKey = errors.New("required configuration key missing")

// MissingKeyError lists required keys that resolved to nothing.
type MissingKeyError struct {
	Keys []string
}

func (e *MissingKeyError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

func (e *MissingKeyError) Is(target error) bool { return target == ErrMissingKey }

// SourceOptions controls where a Source reads values from.
type SourceOptions struct {
	EnvFile    string // explicit dotenv file; skips the search below
	ConfigFile string // optional YAML file of flat KEY: value pairs
	Dir        string // directory searched for dotenv files (default: cwd)
	Logger     *slog.Logger
}

// Source is a layered key-value lookup. Process environment wins over dotenv
// files, which win over the YAML config file. Empty values count as unset.
type Source struct {
	env         func(string) (string, bool)
	dotenv      map[string]string
	file        map[string]string
	envFile     string
	environment string
	logger      *slog.Logger
}

// NewSource resolves dotenv and YAML files and returns a ready Source.
//
// Without an explicit EnvFile the first existing file among .env.<ENVIRONMENT>,
// .env.local (local environment only) and .env is read. ENVIRONMENT defaults
// to "local".
func NewSource(opts SourceOptions) (*Source, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Source{
		env:    os.LookupEnv,
		dotenv: map[string]string{},
		file:   map[string]string{},
		logger: logger,
	}

	if opts.ConfigFile != "" {
		values, err := readYAMLFile(ExpandPath(opts.ConfigFile))
		if err != nil {
			return nil, err
		}
		s.file = values
	}

	if opts.EnvFile != "" {
		values, err := godotenv.Read(opts.EnvFile)
		if err != nil {
			return nil, fmt.Errorf("cannot read env file %s: %w", opts.EnvFile, err)
		}
		s.dotenv = values
		s.envFile = opts.EnvFile
		s.environment = s.Get("ENVIRONMENT", "unknown")
		logger.Info("loaded env file", "path", opts.EnvFile)
		return s, nil
	}

	s.environment = s.Get("ENVIRONMENT", "local")
	for _, candidate := range envFileCandidates(s.environment) {
		path := filepath.Join(opts.Dir, candidate)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read env file %s: %w", path, err)
		}
		s.dotenv = values
		s.envFile = path
		logger.Info("loaded env file", "path", path, "environment", s.environment)
		break
	}
	return s, nil
}

// NewMapSource returns a Source backed only by the given values.
func NewMapSource(values map[string]string) *Source {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Source{
		env:         func(string) (string, bool) { return "", false },
		dotenv:      copied,
		file:        map[string]string{},
		environment: copied["ENVIRONMENT"],
		logger:      slog.Default(),
	}
}

func envFileCandidates(environment string) []string {
	candidates := []string{".env." + environment}
	if environment == "local" && candidates[0] != ".env.local" {
		candidates = append(candidates, ".env.local")
	}
	return append(candidates, ".env")
}

// Environment returns the resolved ENVIRONMENT name.
func (s *Source) Environment() string { return s.environment }

// EnvFile returns the dotenv file that was loaded, if any.
func (s *Source) EnvFile() string { return s.envFile }

// Lookup returns the trimmed value for key and whether it was set.
func (s *Source) Lookup(key string) (string, bool) {
	if v, ok := s.env(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v, true
		}
	}
	if v := strings.TrimSpace(s.dotenv[key]); v != "" {
		return v, true
	}
	if v := strings.TrimSpace(s.file[key]); v != "" {
		return v, true
	}
	return "", false
}

// Get returns the value for key or def when unset.
func (s *Source) Get(key, def string) string {
	if v, ok := s.Lookup(key); ok {
		return v
	}
	return def
}

// Required returns the value for key or a MissingKeyError.
func (s *Source) Required(key string) (string, error) {
	v, ok := s.Lookup(key)
	if !ok {
		return "", &MissingKeyError{Keys: []string{key}}
	}
	return v, nil
}

// MissingRequired reports every key in keys that is unset, or nil.
func (s *Source) MissingRequired(keys ...string) error {
	var missing []string
	for _, k := range keys {
		if _, ok := s.Lookup(k); !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingKeyError{Keys: missing}
}

// Bool accepts true/1/yes/on (any case) as true.
func (s *Source) Bool(key string, def bool) bool {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

// Int falls back to def, with a warning, when the value is not an integer.
func (s *Source) Int(key string, def int) int {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		s.logger.Warn("config value is not an integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// Int64 is Int for byte sizes and other large values.
func (s *Source) Int64(key string, def int64) int64 {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		s.logger.Warn("config value is not an integer, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

// Float falls back to def, with a warning, on parse failure.
func (s *Source) Float(key string, def float64) float64 {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		s.logger.Warn("config value is not a number, using default", "key", key, "value", v, "default", def)
		return def
	}
	return f
}

// Duration parses Go duration strings ("30s", "1m").
func (s *Source) Duration(key string, def time.Duration) time.Duration {
	v, ok := s.Lookup(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		s.logger.Warn("config value is not a duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// Keys returns every key known from dotenv and YAML files, sorted.
func (s *Source) Keys() []string {
	seen := make(map[string]bool, len(s.dotenv)+len(s.file))
	for k := range s.dotenv {
		seen[k] = true
	}
	for k := range s.file {
		seen[k] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func readYAMLFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	data = []byte(ExpandEnvVars(string(data)))

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case map[string]any, []any:
			return nil, fmt.Errorf("config file %s: key %s must be a scalar", path, k)
		default:
			values[k] = fmt.Sprint(val)
		}
	}
	return values, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
