package main

import (
	"strings"

	"github.com/spf13/viper"
)

// config holds the settings that aren't already plain cobra flags: things a
// user would reasonably want to set once in a config file or environment
// variable rather than type on every invocation.
type config struct {
	LogLevel string `mapstructure:"log_level"`
}

// loadConfig layers defaults, an optional config file (./dcpuctl.yaml or
// $HOME/dcpuctl.yaml), and DCPUCTL_-prefixed environment variables, in that
// order of increasing precedence.
func loadConfig() (config, error) {
	v := viper.New()
	v.SetDefault("log_level", "info")

	v.SetConfigName("dcpuctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")

	v.SetEnvPrefix("dcpuctl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config{}, err
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}
