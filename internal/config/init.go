package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvConfigFile names a config file that overrides the default lookup.
const EnvConfigFile = "DAEMONENV_CONFIG_FILE"

const DefaultEnvFile = "/etc/daemonenv/environment"

// Settings is the resolved configuration.
type Settings struct {
	EnvFile string         `mapstructure:"env_file" yaml:"env_file"`
	Log     LogSettings    `mapstructure:"log" yaml:"log"`
	Daemon  DaemonSettings `mapstructure:"daemon" yaml:"daemon"`
}

type LogSettings struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

type DaemonSettings struct {
	// Lock is the single-instance lock file name, created in the temp dir.
	Lock string `mapstructure:"lock" yaml:"lock"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env_file", DefaultEnvFile)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("daemon.lock", "daemonenv.lock")
}

// InitConfig reads config.yaml next to the executable, or the file named by
// DAEMONENV_CONFIG_FILE, into the global viper instance. DAEMONENV_* variables
// override file values. A missing config file is not an error.
//
// It must run before the environment is bootstrapped: bootstrapping erases
// the variables read here.
func InitConfig() error {
	return initConfig(viper.GetViper())
}

func initConfig(v *viper.Viper) error {
	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if exePath, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(exePath))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix("DAEMONENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileNotFoundError viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil {
		if errors.As(err, &configFileNotFoundError) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load returns the settings held by the global viper instance.
func Load() (*Settings, error) {
	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &s, nil
}

// WriteDefault writes a config file holding only the defaults.
func WriteDefault(path string) error {
	v := viper.New()
	setDefaults(v)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}
