// Package config holds dinectl's per-context CLI configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	AppName        = "dinectl"
	ConfigFileName = "config"
	ConfigFileType = "yaml"
)

// Context represents a single CLI context: one venue's server plus the local
// credential store for it.
type Context struct {
	Name           string `mapstructure:"name"`
	ServerEndpoint string `mapstructure:"server_endpoint"`
	TableCode      string `mapstructure:"table_code,omitempty"`
	VenueID        string `mapstructure:"venue_id,omitempty"`
	StorePath      string `mapstructure:"store_path,omitempty"` // credential db, defaults next to the config
}

// CLIConfig holds the overall CLI configuration.
type CLIConfig struct {
	CurrentContext string              `mapstructure:"current_context"`
	Contexts       map[string]*Context `mapstructure:"contexts"`
}

var GlobalConfig *CLIConfig
var CfgFile string // Path to the config file used

// InitConfig initializes Viper to read configuration.
// It's called by the root command's PersistentPreRunE.
func InitConfig() error {
	if CfgFile != "" {
		viper.SetConfigFile(CfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		configPath := filepath.Join(home, "."+AppName) // $HOME/.dinectl

		viper.AddConfigPath(configPath)
		viper.SetConfigName(ConfigFileName)
		viper.SetConfigType(ConfigFileType)

		if err := os.MkdirAll(configPath, 0o700); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", configPath, err)
		}
		CfgFile = filepath.Join(configPath, ConfigFileName+"."+ConfigFileType)
	}

	viper.AutomaticEnv()

	GlobalConfig = &CLIConfig{Contexts: make(map[string]*Context)}

	if err := viper.ReadInConfig(); err == nil {
		CfgFile = viper.ConfigFileUsed()
	} else {
		// A missing config file is fine; it gets created on set-context.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
	}

	if err := viper.Unmarshal(GlobalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if GlobalConfig.Contexts == nil {
		GlobalConfig.Contexts = make(map[string]*Context)
	}

	return nil
}

// SaveConfig saves the current GlobalConfig to the config file.
func SaveConfig() error {
	if CfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		CfgFile = filepath.Join(home, "."+AppName, ConfigFileName+"."+ConfigFileType)
	}

	configDir := filepath.Dir(CfgFile)
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	settings := map[string]interface{}{
		"current_context": GlobalConfig.CurrentContext,
		"contexts":        GlobalConfig.Contexts,
	}
	if err := viper.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("failed to merge config map for saving: %w", err)
	}

	if err := viper.WriteConfigAs(CfgFile); err != nil {
		return fmt.Errorf("failed to save config to %s: %w", CfgFile, err)
	}
	return nil
}

// GetCurrentContext returns the currently active context configuration.
func GetCurrentContext() (*Context, error) {
	if GlobalConfig == nil || GlobalConfig.Contexts == nil {
		return nil, errors.New("config not initialized properly")
	}
	if GlobalConfig.CurrentContext == "" {
		return nil, errors.New("no current context set. Use 'dinectl config use-context <name>' or 'dinectl config set-context ...'")
	}
	ctx, exists := GlobalConfig.Contexts[GlobalConfig.CurrentContext]
	if !exists {
		return nil, fmt.Errorf("current context '%s' not found in configuration", GlobalConfig.CurrentContext)
	}
	return ctx, nil
}

// DefaultStorePath places the credential db next to the CLI config.
func (c *Context) DefaultStorePath() string {
	if c.StorePath != "" {
		return c.StorePath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "."+AppName, c.Name+".db")
	}
	return filepath.Join(home, "."+AppName, c.Name+".db")
}
