package analysis

import (
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pingcap/errors"
)

// ErrInvalidConfig is the cause of every Config validation failure.
var ErrInvalidConfig = errors.New("invalid analysis config")

const (
	defaultWorkers      = 2
	defaultQueueSize    = 16
	defaultWakeInterval = 250 * time.Millisecond

	defaultInteractionSearchSteps = 100000
)

// VariantConfig tunes the search of one variant.
type VariantConfig struct {
	// AcceptFirstTour stops the search at the first complete tour, trading
	// optimality for bounded latency.
	AcceptFirstTour bool `toml:"accept-first-tour"`
	// MaxSearchSteps bounds the number of search steps; 0 means unbounded.
	// When the budget runs out the best tour found so far stands.
	MaxSearchSteps int        `toml:"max-search-steps"`
	Costs          PriceTable `toml:"costs"`
}

// Config configures an Analysor.
type Config struct {
	// Workers is the number of background analysis workers.
	Workers int `toml:"workers"`
	// QueueSize is the capacity of the pending job queue.
	QueueSize int `toml:"queue-size"`
	// WakeInterval is how often a blocked consumer re-checks for a result
	// even without a notification.
	WakeInterval time.Duration `toml:"wake-interval"`

	Render      VariantConfig `toml:"render"`
	Interaction VariantConfig `toml:"interaction"`
}

// DefaultConfig returns the default configuration. Render accepts the first
// complete tour; interaction searches for the optimal order within a
// step budget.
func DefaultConfig() *Config {
	return &Config{
		Workers:      defaultWorkers,
		QueueSize:    defaultQueueSize,
		WakeInterval: defaultWakeInterval,
		Render: VariantConfig{
			AcceptFirstTour: true,
			Costs:           DefaultPriceTable(),
		},
		Interaction: VariantConfig{
			MaxSearchSteps: defaultInteractionSearchSteps,
			Costs:          DefaultPriceTable(),
		},
	}
}

// Variant returns the configuration of v.
func (c *Config) Variant(v Variant) VariantConfig {
	if v == Interaction {
		return c.Interaction
	}
	return c.Render
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return errors.Annotatef(ErrInvalidConfig, "workers must be positive, got %d", c.Workers)
	}
	if c.QueueSize <= 0 {
		return errors.Annotatef(ErrInvalidConfig, "queue-size must be positive, got %d", c.QueueSize)
	}
	if c.WakeInterval <= 0 {
		return errors.Annotatef(ErrInvalidConfig, "wake-interval must be positive, got %s", c.WakeInterval)
	}
	for _, v := range []Variant{Render, Interaction} {
		vc := c.Variant(v)
		if vc.MaxSearchSteps < 0 {
			return errors.Annotatef(ErrInvalidConfig, "%s max-search-steps must not be negative, got %d", v, vc.MaxSearchSteps)
		}
		t := vc.Costs
		for _, cost := range []int32{t.UpTransform, t.DownTransform, t.Blend, t.DepthTest, t.Program, t.Texture, t.Overwrite} {
			if cost < 0 || cost >= ZPenalty {
				return errors.Annotatef(ErrInvalidConfig, "%s costs must be in [0, %d), got %d", v, ZPenalty, cost)
			}
		}
	}
	return nil
}

// DecodeConfig parses a TOML document on top of the defaults.
// Unknown keys are rejected.
func DecodeConfig(data string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, errors.Annotate(err, "decode analysis config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Annotatef(ErrInvalidConfig, "unknown keys %v", undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}

// LoadConfig reads a TOML file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Annotatef(err, "load analysis config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Annotatef(ErrInvalidConfig, "unknown keys %v in %s", undecoded, path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return cfg, nil
}
