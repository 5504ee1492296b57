// Package config loads charmbus configuration from defaults, an optional
// config file, and CHARMBUS_* environment variables, in that order.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Log struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Relations holds the relation names the interface libraries bind to.
type Relations struct {
	SLO          string `yaml:"slo" mapstructure:"slo"`
	Certificates string `yaml:"certificates" mapstructure:"certificates"`
	AuthRelay    string `yaml:"auth_relay" mapstructure:"auth_relay"`
	Packages     string `yaml:"packages" mapstructure:"packages"`
}

// Renewal configures the certificate renewal safety net.
type Renewal struct {
	Schedule  string        `yaml:"schedule" mapstructure:"schedule"`
	Threshold time.Duration `yaml:"threshold" mapstructure:"threshold"`
}

// Pack configures artifact building.
type Pack struct {
	Tool      string   `yaml:"tool" mapstructure:"tool"`
	OutputDir string   `yaml:"output_dir" mapstructure:"output_dir"`
	Substrate string   `yaml:"substrate" mapstructure:"substrate"`
	Tags      []string `yaml:"tags" mapstructure:"tags"`
}

type Config struct {
	// DataDir holds the relation and secret stores
	DataDir   string    `yaml:"data_dir" mapstructure:"data_dir"`
	Log       Log       `yaml:"log" mapstructure:"log"`
	Relations Relations `yaml:"relations" mapstructure:"relations"`
	Renewal   Renewal   `yaml:"renewal" mapstructure:"renewal"`
	Pack      Pack      `yaml:"pack" mapstructure:"pack"`
}

func Default() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Log:     Log{Level: "info", Format: "text"},
		Relations: Relations{
			SLO:          "slos",
			Certificates: "certificates",
			AuthRelay:    "spoe-auth",
			Packages:     "packages",
		},
		Renewal: Renewal{Schedule: "@hourly", Threshold: 24 * time.Hour},
		Pack:    Pack{Tool: "charmcraft", OutputDir: "."},
	}
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		return "./data"
	}
	return filepath.Join(home, ".charmbus")
}

// Load reads configuration from the given file, or from the default
// locations when path is empty. A missing config file is not an error;
// defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("charmbus")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/charmbus/")
	}
	v.SetEnvPrefix("CHARMBUS")
	v.AutomaticEnv()

	cfg := Default()
	if err := v.ReadInConfig(); err == nil {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
