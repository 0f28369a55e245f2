package engine

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/tidemill-labs/backtrack/pkg/errors"
)

// Config is the engine configuration, parsed from YAML by Initialize.
type Config struct {
	StartingCash float64                    `yaml:"starting_cash" json:"starting_cash" jsonschema:"title=Starting Cash,description=Cash balance at the start of the run in account currency,minimum=0"`
	StartTime    optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional inclusive start of the simulated date range"`
	EndTime      optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional inclusive end of the simulated date range"`
}

// EmptyConfig returns the zero configuration.
func EmptyConfig() Config {
	return Config{
		StartingCash: 0,
		StartTime:    optional.None[time.Time](),
		EndTime:      optional.None[time.Time](),
	}
}

// UnmarshalYAML implements custom unmarshaling for Config.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plainConfig struct {
		StartingCash float64    `yaml:"starting_cash"`
		StartTime    *time.Time `yaml:"start_time"`
		EndTime      *time.Time `yaml:"end_time"`
	}

	var config plainConfig
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.StartingCash = config.StartingCash

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if c.StartingCash <= 0 {
		return errors.Newf(errors.ErrCodeInvalidCash, "starting_cash must be positive, got %f", c.StartingCash)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() {
		start := c.StartTime.Unwrap()
		if c.EndTime.Unwrap().Before(start) {
			return errors.New(errors.ErrCodeInvalidDateRange, "end_time is before start_time")
		}
	}

	return nil
}

// GenerateSchema generates a JSON schema for the engine configuration.
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-config"
	schema.Description = "Configuration schema for the backtest engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON returns the configuration schema as a JSON string.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to marshal config schema", err)
	}

	return string(data), nil
}
