package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
	"recaptcha-service/internal/config"
)

var loaded = flag.Bool("loaded", false, "print the configuration after applying config.yaml and the environment")

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if *loaded {
		if err := config.Load(); err != nil {
			logrus.WithError(err).Fatal("could not load configuration")
		}

		cfg = config.Instance()
		cfg.Recaptcha = cfg.RecaptchaSettings()
		delete(cfg.Recaptcha, "privateKey")

		// never print the secret
		if secret, _ := cfg.Recaptcha["private_key"].(string); secret != "" {
			cfg.Recaptcha["private_key"] = "********"
		}
	}

	if err := yaml.NewEncoder(os.Stdout).Encode(cfg); err != nil {
		logrus.WithError(err).Fatal("could not encode configuration")
	}
}
