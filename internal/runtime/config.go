package runtime

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/born-ml/hetero/internal/parallel"
	"github.com/born-ml/hetero/internal/tensor"
	"github.com/born-ml/hetero/internal/workload"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvBackends = "HETERO_BACKENDS"
	EnvParallel = "HETERO_PARALLEL"
	// EnvLayoutPrefix is followed by the upper-case backend name, e.g.
	// HETERO_LAYOUT_CPUACC=reversed>=3.
	EnvLayoutPrefix = "HETERO_LAYOUT_"
)

// Config controls how a Network is built and executed.
type Config struct {
	// Backends lists the backends a network may use. Empty allows every
	// registered and available backend. The Reference backend is always
	// allowed: unassigned layers run on it.
	Backends []tensor.BackendID

	// Parallel controls host-side loops and the worker limit of
	// ExecuteParallel.
	Parallel parallel.Config

	// Layouts overrides the native dimension order of a backend.
	Layouts map[tensor.BackendID]tensor.DimOrder
}

// DefaultConfig allows every available backend with their default layouts.
func DefaultConfig() Config {
	return Config{Parallel: parallel.DefaultConfig()}
}

// ConfigFromEnv starts from DefaultConfig and applies environment overrides.
func ConfigFromEnv() (Config, error) {
	return configFrom(os.Getenv)
}

func configFrom(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()

	if v := getenv(EnvBackends); v != "" {
		for _, name := range strings.Split(v, ",") {
			id, err := tensor.ParseBackendID(name)
			if err != nil {
				return Config{}, fmt.Errorf("%s: %w", EnvBackends, err)
			}
			cfg.Backends = append(cfg.Backends, id)
		}
	}

	if v := getenv(EnvParallel); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvParallel, err)
		}
		if !on {
			cfg.Parallel = parallel.Sequential()
		}
	}

	for _, id := range tensor.AllBackends {
		v := getenv(EnvLayoutPrefix + strings.ToUpper(id.String()))
		if v == "" {
			continue
		}
		order, err := tensor.ParseDimOrder(v)
		if err != nil {
			return Config{}, fmt.Errorf("%s%s: %w", EnvLayoutPrefix, strings.ToUpper(id.String()), err)
		}
		if cfg.Layouts == nil {
			cfg.Layouts = make(map[tensor.BackendID]tensor.DimOrder)
		}
		cfg.Layouts[id] = order
	}
	return cfg, nil
}

// allows reports whether b may be used.
func (c Config) allows(b tensor.BackendID) bool {
	if b == tensor.CPURef || len(c.Backends) == 0 {
		return true
	}
	for _, id := range c.Backends {
		if id == b {
			return true
		}
	}
	return false
}

// backendConfig returns the constructor configuration of b.
func (c Config) backendConfig(b tensor.BackendID) workload.BackendConfig {
	bc := workload.BackendConfig{Parallel: c.Parallel}
	if order, ok := c.Layouts[b]; ok {
		bc.Order = &order
	}
	return bc
}
