package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/liftedinit/mhchain/internal/pow"
)

type MineConfig struct {
	Blocks     uint
	Difficulty string
	NodeID     string
}

func (c MineConfig) Validate() error {
	if c.Blocks == 0 {
		return fmt.Errorf("number of blocks must be at least 1")
	}
	if _, err := pow.New(c.Difficulty); err != nil {
		return err
	}
	return nil
}

func LoadMineConfigFromCLI() MineConfig {
	return MineConfig{
		Blocks:     viper.GetUint("blocks"),
		Difficulty: viper.GetString("difficulty"),
		NodeID:     viper.GetString("node-id"),
	}
}
