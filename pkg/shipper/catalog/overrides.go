package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"github.com/tournevent/courierhub/pkg/shipper"
)

// Override is the operator-entered record for one carrier. Empty fields
// leave the catalog default in place.
type Override struct {
	Code        shipper.Code      `mapstructure:"code"`
	Endpoint    string            `mapstructure:"endpoint"`
	Mode        shipper.Mode      `mapstructure:"mode"`
	Credentials map[string]string `mapstructure:"credentials"`
	Enabled     *bool             `mapstructure:"enabled"`
	Primary     bool              `mapstructure:"is_primary"`
	TokenTTL    time.Duration     `mapstructure:"token_ttl"`
}

// OverrideSource looks up the override for a carrier. A missing record is
// reported with ok=false, not an error.
type OverrideSource interface {
	Override(ctx context.Context, code shipper.Code) (Override, bool, error)
}

// StaticOverrides is an in-memory OverrideSource.
type StaticOverrides struct {
	mu        sync.RWMutex
	overrides map[shipper.Code]Override
}

// NewStaticOverrides indexes overrides by code.
func NewStaticOverrides(overrides ...Override) *StaticOverrides {
	s := &StaticOverrides{overrides: make(map[shipper.Code]Override, len(overrides))}
	for _, o := range overrides {
		s.overrides[o.Code] = o
	}
	return s
}

// Override implements OverrideSource.
func (s *StaticOverrides) Override(_ context.Context, code shipper.Code) (Override, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[code]
	return o, ok, nil
}

// Set replaces the override for o.Code.
func (s *StaticOverrides) Set(o Override) {
	s.mu.Lock()
	s.overrides[o.Code] = o
	s.mu.Unlock()
}

// FileOverrides reads overrides from a YAML or JSON file. The file is re-read
// on every lookup so an operator edit applies to the next call.
type FileOverrides struct {
	path string
}

// NewFileOverrides returns a source backed by path. The file may not exist yet.
func NewFileOverrides(path string) *FileOverrides {
	return &FileOverrides{path: path}
}

// Override implements OverrideSource.
func (f *FileOverrides) Override(_ context.Context, code shipper.Code) (Override, bool, error) {
	all, err := f.load()
	if err != nil {
		return Override{}, false, err
	}
	o, ok := all[code]
	return o, ok, nil
}

// All returns every override in the file keyed by code.
func (f *FileOverrides) All() (map[shipper.Code]Override, error) {
	return f.load()
}

func (f *FileOverrides) load() (map[shipper.Code]Override, error) {
	v := viper.New()
	v.SetConfigFile(f.path)
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading overrides %s: %w", f.path, err)
	}

	var list []Override
	if err := v.UnmarshalKey("carriers", &list); err != nil {
		return nil, fmt.Errorf("decoding overrides %s: %w", f.path, err)
	}

	out := make(map[shipper.Code]Override, len(list))
	for _, o := range list {
		o.Code = shipper.Code(strings.ToLower(strings.TrimSpace(string(o.Code))))
		o.Mode = shipper.Mode(strings.ToLower(strings.TrimSpace(string(o.Mode))))
		out[o.Code] = o
	}
	return out, nil
}

var (
	_ OverrideSource = (*StaticOverrides)(nil)
	_ OverrideSource = (*FileOverrides)(nil)
)
