package config

import (
	"errors"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
	"recaptcha-service/internal/util"
)

// Config provides configuration for the reCAPTCHA service
type Config struct {
	loaded bool
	Addr   string `yaml:"addr" envconfig:"addr"`

	// Recaptcha is passed to captcha.NewConfigFromMap
	Recaptcha map[string]interface{} `yaml:"recaptcha" ignored:"true"`

	// RecaptchaSiteKey and RecaptchaSecret override recaptcha.public_key and recaptcha.private_key
	RecaptchaSiteKey string `yaml:"-" envconfig:"recaptcha_site_key"`
	RecaptchaSecret  string `yaml:"-" envconfig:"recaptcha_secret"`

	// Locale enables translated error messages when set
	Locale          string `yaml:"locale" envconfig:"locale"`
	TranslationsDir string `yaml:"translationsDir" envconfig:"translations_dir"`

	Metrics struct {
		Disable bool `yaml:"disable"`
	} `yaml:"metrics"`

	Log struct {
		Level             string `yaml:"level"`
		DisableAccessLogs bool   `yaml:"disableAccessLogs" split_words:"true"`
	} `yaml:"log"`
}

var config Config

// DefaultConfig returns the configuration used when no file overrides it
func DefaultConfig() Config {
	cfg := Config{
		Addr: ":5000",
		Recaptcha: map[string]interface{}{
			"public_key":  "",
			"private_key": "",
			"input_key":   "g-recaptcha-response",
		},
	}
	cfg.Log.Level = "info"

	return cfg
}

// Instance returns a singleton instance
// If the config hasn't been loaded, it will be loaded
func Instance() Config {
	if !config.loaded {
		if err := Load(); err != nil {
			panic(err)
		}
	}

	return config
}

// Load will load the configuration
// A missing config file is not an error, defaults and the environment are used instead
func Load() error {
	cfg := DefaultConfig()

	configFile := util.Getenv("RS_CONFIG_FILE", "config.yaml")
	file, err := os.Open(configFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if file != nil {
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(&cfg); err != nil {
			return err
		}
	}

	if err := envconfig.Process("rs", &cfg); err != nil {
		return err
	}

	cfg.loaded = true
	config = cfg
	return nil
}

// RecaptchaSettings returns a copy of the recaptcha subtree with the
// environment overrides applied
func (c Config) RecaptchaSettings() map[string]interface{} {
	settings := make(map[string]interface{}, len(c.Recaptcha)+2)
	for k, v := range c.Recaptcha {
		settings[k] = v
	}

	if c.RecaptchaSiteKey != "" {
		delete(settings, "publicKey")
		settings["public_key"] = c.RecaptchaSiteKey
	}

	if c.RecaptchaSecret != "" {
		delete(settings, "privateKey")
		settings["private_key"] = c.RecaptchaSecret
	}

	return settings
}
