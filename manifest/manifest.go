// Package manifest handles nkom.toml host configuration.
package manifest

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/noriko-engine/nkom-runtime/errors"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "nkom.toml"

// Manifest represents an nkom.toml host configuration.
type Manifest struct {
	Runtime   Runtime    `toml:"runtime"`
	Providers []Provider `toml:"provider"`

	// Dir is the directory containing the nkom.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the class runtime and its logging.
type Runtime struct {
	// LogLevel is a zap level name (debug, info, warn, error). Empty means
	// no logging.
	LogLevel string `toml:"log-level"`

	// Capacity bounds the class registry. 0 means unbounded.
	Capacity int `toml:"capacity"`
}

// Provider names one guest module to install at startup.
type Provider struct {
	// Path to the .wasm file, relative to the manifest directory unless
	// absolute.
	Path string `toml:"path"`

	// Name labels the provider in logs and listings. Defaults to the file
	// name without its extension.
	Name string `toml:"name"`

	// MemoryLimitPages caps guest memory in 64KB pages. 0 means the engine
	// default.
	MemoryLimitPages uint32 `toml:"memory-limit-pages"`
}

// Load parses an nkom.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseManifest, errors.KindInvalidInput).
			Cause(err).
			Detail("cannot read %s", path).
			Build()
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, errors.New(errors.PhaseManifest, errors.KindInvalidInput).
			Cause(err).
			Detail("parse error in %s", path).
			Build()
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, errors.New(errors.PhaseManifest, errors.KindInvalidInput).
			Cause(err).
			Detail("cannot resolve path %s", dir).
			Build()
	}

	// Defaults before validation so derived names join the duplicate check.
	for i := range m.Providers {
		if m.Providers[i].Name == "" {
			m.Providers[i].Name = deriveName(m.Providers[i].Path)
		}
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an nkom.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ResolvePath resolves a provider's path against the manifest directory.
func (m *Manifest) ResolvePath(p Provider) string {
	if filepath.IsAbs(p.Path) {
		return p.Path
	}
	return filepath.Join(m.Dir, p.Path)
}

// validate checks the whole manifest and reports every problem at once.
func (m *Manifest) validate() error {
	var errs error

	if m.Runtime.Capacity < 0 {
		errs = multierr.Append(errs, errors.New(errors.PhaseManifest, errors.KindInvalidInput).
			Detail("runtime capacity %d is negative", m.Runtime.Capacity).
			Build())
	}
	if m.Runtime.LogLevel != "" {
		if _, err := zapcore.ParseLevel(m.Runtime.LogLevel); err != nil {
			errs = multierr.Append(errs, errors.New(errors.PhaseManifest, errors.KindInvalidInput).
				Cause(err).
				Detail("unknown log level %q", m.Runtime.LogLevel).
				Build())
		}
	}

	seen := make(map[string]int)
	for i, p := range m.Providers {
		if p.Path == "" {
			errs = multierr.Append(errs, errors.New(errors.PhaseManifest, errors.KindInvalidInput).
				Detail("provider %d has no path", i).
				Build())
			continue
		}
		if prev, dup := seen[p.Name]; dup {
			errs = multierr.Append(errs, errors.New(errors.PhaseManifest, errors.KindInvalidInput).
				Detail("providers %d and %d share the name %q", prev, i, p.Name).
				Build())
			continue
		}
		seen[p.Name] = i
	}

	return errs
}

// BuildLogger constructs a console logger at the configured level. The empty
// level yields a no-op logger.
func (r Runtime) BuildLogger() (*zap.Logger, error) {
	if r.LogLevel == "" {
		return zap.NewNop(), nil
	}
	level, err := zapcore.ParseLevel(r.LogLevel)
	if err != nil {
		return nil, errors.New(errors.PhaseManifest, errors.KindInvalidInput).
			Cause(err).
			Detail("unknown log level %q", r.LogLevel).
			Build()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func deriveName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
