package ranknear

import (
	"fmt"
	"math"
	"os"
	"runtime"

	"github.com/pbanos/ranknear/pool"
	yaml "gopkg.in/yaml.v2"
)

// DefaultRadius is the neighbor search radius in metres used when none is configured
const DefaultRadius = 200.0

/*
Logger is the interface the dataset preparation logs through.
*/
type Logger interface {
	Logf(string, ...interface{})
}

type discardLogger struct{}

func (discardLogger) Logf(string, ...interface{}) {}

/*
Config holds the parameters of a dataset preparation.

Radius is the neighbor search radius in metres, the same for every pass.
Workers is the number of concurrent workers of each pass. TargetCategory
is the category competitiveness and quality are computed for; when empty
each point uses its own category. ProgressStep is the number of points
between progress lines when progress is logged.

The zero value of any field means its default: DefaultRadius, one worker
per CPU, a logger that discards everything and progress logged through
Logger every 10000 points.
*/
type Config struct {
	Radius         float64       `yaml:"radius"`
	Workers        int           `yaml:"workers"`
	TargetCategory string        `yaml:"target_category"`
	ProgressStep   int           `yaml:"progress_step"`
	Logger         Logger        `yaml:"-"`
	Reporter       pool.Reporter `yaml:"-"`
}

/*
ReadConfigFile takes the path to a YAML file and returns the Config in it
or an error if it cannot be read or parsed.
*/
func ReadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	config := &Config{}
	if err = yaml.UnmarshalStrict(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return config, nil
}

// Validate returns an error describing the first invalid value in the config
func (c *Config) Validate() error {
	if c.Radius < 0 || math.IsNaN(c.Radius) || math.IsInf(c.Radius, 0) {
		return fmt.Errorf("invalid radius %g: must be a finite non-negative number", c.Radius)
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid workers %d: %w", c.Workers, pool.ErrNoWorkers)
	}
	if c.ProgressStep < 0 {
		return fmt.Errorf("invalid progress step %d: must not be negative", c.ProgressStep)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Radius == 0 {
		c.Radius = DefaultRadius
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ProgressStep == 0 {
		c.ProgressStep = 10000
	}
	if c.Logger == nil {
		c.Logger = discardLogger{}
	}
	if c.Reporter == nil {
		c.Reporter = pool.LogReporter(c.Logger, c.ProgressStep)
	}
	return c
}
