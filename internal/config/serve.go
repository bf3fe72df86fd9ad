package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/liftedinit/mhchain/internal/pow"
)

type ServeConfig struct {
	Host             string
	Port             uint
	Difficulty       string
	NodeID           string
	Peers            []string
	ResolveInterval  time.Duration
	PeerTimeout      time.Duration
	MaxConcurrency   uint
	Restore          bool
	EnablePrometheus bool
	PrometheusAddr   string
}

func (c ServeConfig) Validate() error {
	if c.Port == 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if _, err := pow.New(c.Difficulty); err != nil {
		return err
	}
	if c.ResolveInterval < 0 {
		return fmt.Errorf("resolve interval cannot be negative")
	}
	if c.PeerTimeout <= 0 {
		return fmt.Errorf("peer timeout must be positive")
	}
	if c.MaxConcurrency == 0 {
		return fmt.Errorf("max concurrency must be at least 1")
	}
	if c.EnablePrometheus && c.PrometheusAddr == "" {
		return fmt.Errorf("missing Prometheus address")
	}
	return nil
}

// Addr is the listen address of the HTTP API.
func (c ServeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func LoadServeConfigFromCLI() ServeConfig {
	return ServeConfig{
		Host:             viper.GetString("host"),
		Port:             viper.GetUint("port"),
		Difficulty:       viper.GetString("difficulty"),
		NodeID:           viper.GetString("node-id"),
		Peers:            viper.GetStringSlice("peers"),
		ResolveInterval:  viper.GetDuration("resolve-interval"),
		PeerTimeout:      viper.GetDuration("peer-timeout"),
		MaxConcurrency:   viper.GetUint("max-concurrency"),
		Restore:          viper.GetBool("restore"),
		EnablePrometheus: viper.GetBool("enable-prometheus"),
		PrometheusAddr:   viper.GetString("prometheus-addr"),
	}
}
