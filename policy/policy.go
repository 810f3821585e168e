package policy

import (
	"fmt"
	"strings"

	"github.com/viant/kproc/proc"
)

const (
	RoundRobinName = "rr"
	FCFSName       = "fcfs"
	PBSName        = "pbs"
	MLFQName       = "mlfq"
)

// Config selects and tunes a scheduling policy.
type Config struct {
	Name string     `json:"name" yaml:"name"`
	PBS  PBSConfig  `json:"pbs" yaml:"pbs"`
	MLFQ MLFQConfig `json:"mlfq" yaml:"mlfq"`
}

// PBSConfig tunes the priority based scheduler.
type PBSConfig struct {
	DefaultPriority int `json:"defaultPriority" yaml:"defaultPriority"`
}

// MLFQConfig tunes the multi-level feedback queue. Aging[i] is how many
// ticks a Runnable process may wait at level i before moving up; Quanta[i]
// is how many ticks it may run at level i before moving down.
type MLFQConfig struct {
	Aging  []uint64 `json:"aging" yaml:"aging"`
	Quanta []uint64 `json:"quanta" yaml:"quanta"`
}

// DefaultConfig returns a round-robin configuration with every policy's
// defaults filled in.
func DefaultConfig() Config {
	return Config{
		Name: RoundRobinName,
		PBS:  PBSConfig{DefaultPriority: DefaultPriority},
		MLFQ: MLFQConfig{
			Aging:  append([]uint64(nil), defaultAging[:]...),
			Quanta: append([]uint64(nil), defaultQuanta[:]...),
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.normalizedName() {
	case RoundRobinName, FCFSName:
	case PBSName:
		if c.PBS.DefaultPriority < MinPriority || c.PBS.DefaultPriority > MaxPriority {
			return fmt.Errorf("invalid pbs default priority: %v", c.PBS.DefaultPriority)
		}
	case MLFQName:
		if len(c.MLFQ.Aging) != Levels {
			return fmt.Errorf("expected %v mlfq aging thresholds, but had %v", Levels, len(c.MLFQ.Aging))
		}
		if len(c.MLFQ.Quanta) != Levels {
			return fmt.Errorf("expected %v mlfq quanta, but had %v", Levels, len(c.MLFQ.Quanta))
		}
		for i, quantum := range c.MLFQ.Quanta {
			if quantum == 0 {
				return fmt.Errorf("mlfq quantum of level %v was zero", i)
			}
		}
	default:
		return fmt.Errorf("unsupported policy: %v", c.Name)
	}
	return nil
}

func (c *Config) normalizedName() string {
	switch name := strings.ToLower(strings.TrimSpace(c.Name)); name {
	case "", "default", "roundrobin", "round-robin":
		return RoundRobinName
	default:
		return name
	}
}

// New creates the policy named by config.
func New(config Config) (proc.Policy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.normalizedName() {
	case FCFSName:
		return NewFCFS(), nil
	case PBSName:
		return NewPBS(config.PBS.DefaultPriority), nil
	case MLFQName:
		return NewMLFQ(config.MLFQ.Aging, config.MLFQ.Quanta), nil
	default:
		return NewRoundRobin(), nil
	}
}
