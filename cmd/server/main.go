package main

import (
	"flag"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"recaptcha-service/internal/config"
	"recaptcha-service/internal/mux"
	"recaptcha-service/internal/provider"
)

const readTimeout = time.Second * 5
const writeTimeout = time.Second * 15

// Version is the server version
var Version = "v0.0.0-dev"

var addr = flag.String("addr", "", "the listen address, overrides the configuration")

func main() {
	flag.Parse()
	setupLogger()

	cfg := config.Instance()

	var opts []provider.Option
	if !cfg.Metrics.Disable {
		opts = append(opts, provider.WithRegisterer(prometheus.DefaultRegisterer))
	}

	// fail fast
	p := provider.New(cfg, opts...)
	c, err := p.Captcha()
	if err != nil {
		logrus.WithError(err).Fatal("could not load recaptcha")
	}

	if c.Config().PrivateKey() == "" {
		logrus.Fatal("missing recaptcha secret in configuration")
	}

	if _, err := c.Client(); err != nil {
		logrus.WithError(err).Fatal("could not create recaptcha client")
	}

	corsHandler := cors.New(cors.Options{
		AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "X-Request-ID"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		ExposedHeaders: []string{"X-Request-ID"},
	})

	listenAddr := cfg.Addr
	if *addr != "" {
		listenAddr = *addr
	}

	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      loggingHandler(corsHandler.Handler(mux.NewMux(Version, c))),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	logrus.WithFields(logrus.Fields{
		"addr":    srv.Addr,
		"version": c.Config().Version(),
	}).Info("listening")
	logrus.Fatal(srv.ListenAndServe())
}

func loggingHandler(next http.Handler) http.Handler {
	if config.Instance().Log.DisableAccessLogs {
		return next
	}

	return handlers.CombinedLoggingHandler(os.Stdout, next)
}

func setupLogger() {
	if lvl := config.Instance().Log.Level; lvl != "" {
		level, err := logrus.ParseLevel(lvl)
		if err != nil {
			logrus.WithError(err).Fatal("could not parse level")
		}

		logrus.SetLevel(level)
	}

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}
