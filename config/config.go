// Package config centralizes runtime configuration. Values come from
// environment variables with the WANDER_ prefix, falling back to defaults
// that match local development.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// AppName doubles as the Postgres schema name the app operates in.
const AppName = "wander"

type Config struct {
	Port            string
	Dev             bool
	MQMode          string
	Store           string
	ReaperInterval  time.Duration
	ReaperBootDelay time.Duration
	PhotoDir        string
}

// Load reads configuration from the environment. Every key has a default,
// so Load never fails.
func Load() *Config {
	v := viper.New()
	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("dev", true)
	v.SetDefault("mq_mode", "go_chan")
	v.SetDefault("store", "pg")
	v.SetDefault("reaper_interval", 24*time.Hour)
	v.SetDefault("reaper_boot_delay", time.Minute)
	v.SetDefault("photo_dir", "./photos")

	return &Config{
		Port:            v.GetString("port"),
		Dev:             v.GetBool("dev"),
		MQMode:          v.GetString("mq_mode"),
		Store:           v.GetString("store"),
		ReaperInterval:  v.GetDuration("reaper_interval"),
		ReaperBootDelay: v.GetDuration("reaper_boot_delay"),
		PhotoDir:        v.GetString("photo_dir"),
	}
}
