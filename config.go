package kproc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/kproc/internal/envexpr"
	"github.com/viant/kproc/policy"
	"gopkg.in/yaml.v3"
)

// Config is the serialisable kernel configuration. Zero-valued sections
// are replaced by DefaultConfig values when loaded with LoadConfig.
type Config struct {
	Table      TableConfig      `json:"table" yaml:"table"`
	CPUs       int              `json:"cpus" yaml:"cpus"`
	Policy     policy.Config    `json:"policy" yaml:"policy"`
	Memory     MemoryConfig     `json:"memory" yaml:"memory"`
	Timer      TimerConfig      `json:"timer" yaml:"timer"`
	Events     EventsConfig     `json:"events" yaml:"events"`
	Accounting AccountingConfig `json:"accounting" yaml:"accounting"`
}

// TableConfig sizes the process table.
type TableConfig struct {
	Slots     int `json:"slots" yaml:"slots"`
	OpenFiles int `json:"openFiles" yaml:"openFiles"`
}

// MemoryConfig sizes the physical page pool.
type MemoryConfig struct {
	Pages int `json:"pages" yaml:"pages"`
}

// TimerConfig controls the tick source. A zero interval leaves ticking to
// explicit Service.Tick calls.
type TimerConfig struct {
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// EventsConfig controls lifecycle event delivery.
type EventsConfig struct {
	Buffer int  `json:"buffer" yaml:"buffer"`
	Log    bool `json:"log" yaml:"log"`
}

// AccountingConfig selects where reaped process records are kept. An empty
// URL keeps them in memory.
type AccountingConfig struct {
	URL string `json:"url" yaml:"url"`
}

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() *Config {
	return &Config{
		Table:  TableConfig{Slots: 64, OpenFiles: 16},
		CPUs:   1,
		Policy: policy.DefaultConfig(),
		Memory: MemoryConfig{Pages: 1024},
		Timer:  TimerConfig{Interval: 10 * time.Millisecond},
		Events: EventsConfig{Buffer: 1024},
	}
}

// Validate returns the aggregated configuration errors or nil.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config was nil")
	}
	var errs []error
	if c.Table.Slots <= 0 {
		errs = append(errs, fmt.Errorf("table.slots must be > 0"))
	}
	if c.Table.OpenFiles <= 0 {
		errs = append(errs, fmt.Errorf("table.openFiles must be > 0"))
	}
	if c.CPUs <= 0 {
		errs = append(errs, fmt.Errorf("cpus must be > 0"))
	}
	if c.Memory.Pages <= 0 {
		errs = append(errs, fmt.Errorf("memory.pages must be > 0"))
	}
	if c.Timer.Interval < 0 {
		errs = append(errs, fmt.Errorf("timer.interval must be >= 0"))
	}
	if c.Events.Buffer <= 0 {
		errs = append(errs, fmt.Errorf("events.buffer must be > 0"))
	}
	if err := c.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("policy: %w", err))
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML configuration from any afs URL over the defaults
// and validates it. ${env.KEY} references are replaced with environment
// values before decoding.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal([]byte(envexpr.ExpandEnv(string(data))), ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}
