package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/jpopelka/dist-git-to-source-git/pkg/schedule"
)

const (
	EnvPrefix  = "D2S"
	ConfigName = "d2s"
)

// ScheduleConfig is the viper-loaded schedule file: the recurring specs
// the scheduler registers, plus the readiness defaults for check-ready.
type ScheduleConfig struct {
	Schedules []schedule.Spec `mapstructure:"schedules"`
	Readiness ReadinessConfig `mapstructure:"readiness"`

	v *viper.Viper
}

// ReadinessConfig holds defaults for the readiness check.
type ReadinessConfig struct {
	Selector      string `mapstructure:"selector"`
	ExpectedPhase string `mapstructure:"expectedPhase"`
	Attempts      int    `mapstructure:"attempts"`
	IntervalSecs  int    `mapstructure:"intervalSeconds"`
}

// LoadScheduleConfig creates a ScheduleConfig with its own viper
// instance (no global state). With an empty cfgFile it looks for
// d2s.yaml in the working directory.
func LoadScheduleConfig(cfgFile string) (*ScheduleConfig, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		for _, name := range []string{ConfigName + ".yaml", ConfigName + ".yml"} {
			if _, err := os.Stat(name); err == nil {
				v.SetConfigFile(name)
				if err := v.ReadInConfig(); err == nil {
					break
				}
			}
		}
	}

	setDefaults(v)

	var cfg ScheduleConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	for i := range cfg.Schedules {
		if err := cfg.Schedules[i].Validate(); err != nil {
			return nil, err
		}
	}

	cfg.v = v
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("readiness.selector", "name=dist2src-updater")
	v.SetDefault("readiness.expectedPhase", "Running")
	v.SetDefault("readiness.attempts", 1)
	v.SetDefault("readiness.intervalSeconds", 10)
}

// Viper returns the underlying viper instance, for CLI flag binding.
func (c *ScheduleConfig) Viper() *viper.Viper {
	return c.v
}

// ConfigFileUsed returns the config file that was used (if any).
func (c *ScheduleConfig) ConfigFileUsed() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}
