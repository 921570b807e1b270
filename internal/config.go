package internal

import (
	"fmt"

	"github.com/spf13/viper"
)

// NovaSqlConfig is the on-disk deployment configuration, loaded from a YAML
// file via viper. Storage.File names the directory holding the single
// database file (internal/engine.DataFileName lives inside it).
type NovaSqlConfig struct {
	Storage struct {
		File           string `mapstructure:"file"`
		PageSize       int    `mapstructure:"page_size"`
		BufferPoolSize int    `mapstructure:"buffer_pool_size"`
	} `mapstructure:"storage"`
	Server struct {
		Port  int  `mapstructure:"port"`
		Debug bool `mapstructure:"debug"`
	} `mapstructure:"server"`
}

func LoadConfig(path string) (*NovaSqlConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg NovaSqlConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
