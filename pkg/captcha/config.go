package captcha

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// DefaultInputKey is the form field the reCAPTCHA widget posts its token in
const DefaultInputKey = "g-recaptcha-response"

// supported vendor client modes
const (
	VersionV2 = "v2"
	VersionV3 = "v3"
)

// Config holds the reCAPTCHA keys and the optional expectations checked by the
// vendor client. It is immutable: the With* methods return a modified copy.
type Config struct {
	publicKey  string
	privateKey string
	inputKey   string
	version    string

	action         string
	hostname       string
	apkPackageName string

	scoreThreshold    float64
	hasScoreThreshold bool
	challengeTimeout  time.Duration
}

// NewConfig returns a config with the given keys
// An empty inputKey falls back to DefaultInputKey
func NewConfig(publicKey, privateKey, inputKey string) Config {
	if inputKey == "" {
		inputKey = DefaultInputKey
	}

	return Config{
		publicKey:  publicKey,
		privateKey: privateKey,
		inputKey:   inputKey,
		version:    VersionV2,
	}
}

// configKeys maps every accepted spelling to its canonical snake_case name.
// camelCase spellings are listed after snake_case ones so they win when both are present.
var configKeys = []struct{ name, canonical string }{
	{"public_key", "public_key"},
	{"private_key", "private_key"},
	{"input_key", "input_key"},
	{"apk_package_name", "apk_package_name"},
	{"score_threshold", "score_threshold"},
	{"challenge_timeout", "challenge_timeout"},
	{"action", "action"},
	{"hostname", "hostname"},
	{"version", "version"},
	{"publicKey", "public_key"},
	{"privateKey", "private_key"},
	{"inputKey", "input_key"},
	{"apkPackageName", "apk_package_name"},
	{"scoreThreshold", "score_threshold"},
	{"challengeTimeout", "challenge_timeout"},
}

// NewConfigFromMap builds a config from a loosely-typed structure, such as a
// decoded YAML or JSON subtree. Both snake_case and camelCase keys are
// accepted and unknown keys are ignored.
func NewConfigFromMap(data map[string]interface{}) (Config, error) {
	cfg := NewConfig("", "", "")

	for _, k := range configKeys {
		val, ok := data[k.name]
		if !ok || val == nil {
			continue
		}

		var err error
		if cfg, err = cfg.set(k.canonical, val); err != nil {
			if errors.Is(err, ErrInvalidArgument) {
				return Config{}, fmt.Errorf("%s: %w", k.name, err)
			}

			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidArgument, k.name, err)
		}
	}

	return cfg, nil
}

func (c Config) set(key string, val interface{}) (Config, error) {
	if key == "score_threshold" {
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return c, err
		}

		return c.WithScoreThresholdE(f)
	}

	if key == "challenge_timeout" {
		seconds, err := cast.ToIntE(val)
		if err != nil {
			return c, err
		}

		if seconds < 0 {
			return c, fmt.Errorf("must not be negative, got %d", seconds)
		}

		return c.WithChallengeTimeout(time.Duration(seconds) * time.Second), nil
	}

	s, err := cast.ToStringE(val)
	if err != nil {
		return c, err
	}

	switch key {
	case "public_key":
		return c.WithPublicKey(s), nil
	case "private_key":
		return c.WithPrivateKey(s), nil
	case "input_key":
		return c.WithInputKey(s), nil
	case "apk_package_name":
		return c.WithApkPackageName(s), nil
	case "action":
		return c.WithAction(s), nil
	case "hostname":
		return c.WithHostname(s), nil
	case "version":
		return c.WithVersionE(s)
	}

	return c, nil
}

// Get returns a setting by its snake_case or camelCase name
// The boolean is false for unknown or unset optional settings
func (c Config) Get(key string) (interface{}, bool) {
	canonical := ""
	for _, k := range configKeys {
		if k.name == key {
			canonical = k.canonical
			break
		}
	}

	switch canonical {
	case "public_key":
		return c.publicKey, true
	case "private_key":
		return c.privateKey, true
	case "input_key":
		return c.InputKey(), true
	case "version":
		return c.Version(), true
	case "apk_package_name":
		return c.apkPackageName, c.apkPackageName != ""
	case "action":
		return c.action, c.action != ""
	case "hostname":
		return c.hostname, c.hostname != ""
	case "score_threshold":
		return c.scoreThreshold, c.hasScoreThreshold
	case "challenge_timeout":
		return int(c.challengeTimeout / time.Second), c.challengeTimeout > 0
	}

	return nil, false
}

// PublicKey is the site key embedded in the widget markup
func (c Config) PublicKey() string {
	return c.publicKey
}

// PrivateKey is the secret key used to authenticate verification calls
func (c Config) PrivateKey() string {
	return c.privateKey
}

// InputKey is the request field holding the verification token
func (c Config) InputKey() string {
	if c.inputKey == "" {
		return DefaultInputKey
	}

	return c.inputKey
}

// Version returns the vendor client mode, v2 or v3
func (c Config) Version() string {
	if c.version == "" {
		return VersionV2
	}

	return c.version
}

// Action is the expected v3 action, empty when unchecked
func (c Config) Action() string {
	return c.action
}

// Hostname is the expected site hostname, empty when unchecked
func (c Config) Hostname() string {
	return c.hostname
}

// ApkPackageName is the expected Android package, empty when unchecked
func (c Config) ApkPackageName() string {
	return c.apkPackageName
}

// ScoreThreshold returns the minimum v3 score and whether one was set
func (c Config) ScoreThreshold() (float64, bool) {
	return c.scoreThreshold, c.hasScoreThreshold
}

// ChallengeTimeout is the maximum age of a solved challenge, zero when unchecked
func (c Config) ChallengeTimeout() time.Duration {
	return c.challengeTimeout
}

// WithPublicKey returns a copy with a different site key
func (c Config) WithPublicKey(key string) Config {
	c.publicKey = key
	return c
}

// WithPrivateKey returns a copy with a different secret key
func (c Config) WithPrivateKey(key string) Config {
	c.privateKey = key
	return c
}

// WithInputKey returns a copy with a different input key
// An empty key resets it to DefaultInputKey
func (c Config) WithInputKey(key string) Config {
	if key == "" {
		key = DefaultInputKey
	}

	c.inputKey = key
	return c
}

// WithAction returns a copy expecting a different action
func (c Config) WithAction(action string) Config {
	c.action = action
	return c
}

// WithHostname returns a copy expecting a different hostname
func (c Config) WithHostname(hostname string) Config {
	c.hostname = hostname
	return c
}

// WithApkPackageName returns a copy expecting a different Android package
func (c Config) WithApkPackageName(name string) Config {
	c.apkPackageName = name
	return c
}

// WithScoreThreshold returns a copy with a score threshold
// It panics if threshold is outside of [0, 1], see WithScoreThresholdE
func (c Config) WithScoreThreshold(threshold float64) Config {
	cfg, err := c.WithScoreThresholdE(threshold)
	if err != nil {
		panic(err)
	}

	return cfg
}

// WithScoreThresholdE is like WithScoreThreshold but returns an error on an invalid threshold
func (c Config) WithScoreThresholdE(threshold float64) (Config, error) {
	if threshold < 0 || threshold > 1 {
		return c, fmt.Errorf("%w: score threshold must be between 0 and 1, got %v", ErrInvalidArgument, threshold)
	}

	c.scoreThreshold = threshold
	c.hasScoreThreshold = true
	return c, nil
}

// WithChallengeTimeout returns a copy with a different challenge timeout
func (c Config) WithChallengeTimeout(timeout time.Duration) Config {
	c.challengeTimeout = timeout
	return c
}

// WithVersion returns a copy using a different vendor client mode
// It panics on anything other than VersionV2 or VersionV3, see WithVersionE
func (c Config) WithVersion(version string) Config {
	cfg, err := c.WithVersionE(version)
	if err != nil {
		panic(err)
	}

	return cfg
}

// WithVersionE is like WithVersion but returns an error on an unknown version
func (c Config) WithVersionE(version string) (Config, error) {
	switch version {
	case "", VersionV2:
		c.version = VersionV2
	case VersionV3:
		c.version = VersionV3
	default:
		return c, fmt.Errorf("%w: unknown reCAPTCHA version %q", ErrInvalidArgument, version)
	}

	return c, nil
}
