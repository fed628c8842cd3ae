package captcha

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_defaults(t *testing.T) {
	a := assert.New(t)

	cfg := NewConfig("", "", "")
	a.Equal("", cfg.PublicKey())
	a.Equal("", cfg.PrivateKey())
	a.Equal(DefaultInputKey, cfg.InputKey())
	a.Equal(VersionV2, cfg.Version())

	_, ok := cfg.ScoreThreshold()
	a.False(ok)
	a.Equal(time.Duration(0), cfg.ChallengeTimeout())

	var zero Config
	a.Equal(DefaultInputKey, zero.InputKey())
	a.Equal(VersionV2, zero.Version())
}

func TestNewConfigFromMap(t *testing.T) {
	snake := map[string]interface{}{
		"public_key":  "{site-key}",
		"private_key": "{secret-key}",
		"input_key":   "{input-key}",
	}

	camel := map[string]interface{}{
		"publicKey":  "{site-key}",
		"privateKey": "{secret-key}",
		"inputKey":   "{input-key}",
	}

	for name, data := range map[string]map[string]interface{}{"snake_case": snake, "camelCase": camel} {
		t.Run(name, func(t *testing.T) {
			a := assert.New(t)
			cfg, err := NewConfigFromMap(data)
			a.NoError(err)
			a.Equal("{site-key}", cfg.PublicKey())
			a.Equal("{secret-key}", cfg.PrivateKey())
			a.Equal("{input-key}", cfg.InputKey())
		})
	}
}

func TestNewConfigFromMap_optional(t *testing.T) {
	a := assert.New(t)

	cfg, err := NewConfigFromMap(map[string]interface{}{
		"public_key":        "SK",
		"hostname":          "example.com",
		"apkPackageName":    "com.example.app",
		"action":            "login",
		"score_threshold":   "0.7",
		"challengeTimeout":  30,
		"version":           "v3",
		"something_unknown": []string{"ignored"},
	})
	a.NoError(err)
	a.Equal("SK", cfg.PublicKey())
	a.Equal(DefaultInputKey, cfg.InputKey())
	a.Equal("example.com", cfg.Hostname())
	a.Equal("com.example.app", cfg.ApkPackageName())
	a.Equal("login", cfg.Action())
	a.Equal(VersionV3, cfg.Version())
	a.Equal(30*time.Second, cfg.ChallengeTimeout())

	threshold, ok := cfg.ScoreThreshold()
	a.True(ok)
	a.Equal(0.7, threshold)
}

func TestNewConfigFromMap_camelCaseWins(t *testing.T) {
	cfg, err := NewConfigFromMap(map[string]interface{}{
		"public_key": "snake",
		"publicKey":  "camel",
	})
	assert.NoError(t, err)
	assert.Equal(t, "camel", cfg.PublicKey())
}

func TestNewConfigFromMap_errors(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"public key is a map":    {"public_key": map[string]string{"a": "b"}},
		"threshold out of range": {"score_threshold": 1.5},
		"threshold not a number": {"score_threshold": "high"},
		"negative timeout":       {"challenge_timeout": -1},
		"unknown version":        {"version": "v4"},
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewConfigFromMap(data)
			assert.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidArgument))
		})
	}
}

func TestConfig_With(t *testing.T) {
	a := assert.New(t)
	cfg := NewConfig("XXX", "YYY", "ZZZ")

	newPublicKey := cfg.WithPublicKey("AAA")
	a.Equal("XXX", cfg.PublicKey())
	a.Equal("AAA", newPublicKey.PublicKey())
	a.Equal(cfg.PrivateKey(), newPublicKey.PrivateKey())
	a.Equal(cfg.InputKey(), newPublicKey.InputKey())

	newPrivateKey := cfg.WithPrivateKey("BBB")
	a.Equal("YYY", cfg.PrivateKey())
	a.Equal("BBB", newPrivateKey.PrivateKey())
	a.Equal(cfg.PublicKey(), newPrivateKey.PublicKey())

	newInputKey := cfg.WithInputKey("CCC")
	a.Equal("ZZZ", cfg.InputKey())
	a.Equal("CCC", newInputKey.InputKey())
	a.Equal(DefaultInputKey, cfg.WithInputKey("").InputKey())

	withThreshold := cfg.WithScoreThreshold(0.3)
	_, ok := cfg.ScoreThreshold()
	a.False(ok)
	threshold, ok := withThreshold.ScoreThreshold()
	a.True(ok)
	a.Equal(0.3, threshold)

	a.Panics(func() { cfg.WithScoreThreshold(-0.1) })
	a.Panics(func() { cfg.WithVersion("v1") })
	a.Equal(VersionV3, cfg.WithVersion(VersionV3).Version())
	a.Equal(VersionV2, cfg.Version())
}

func TestConfig_Get(t *testing.T) {
	a := assert.New(t)
	cfg := NewConfig("SK", "PK", "").WithHostname("example.com")

	val, ok := cfg.Get("public_key")
	a.True(ok)
	a.Equal("SK", val)

	val, ok = cfg.Get("privateKey")
	a.True(ok)
	a.Equal("PK", val)

	val, ok = cfg.Get("input_key")
	a.True(ok)
	a.Equal(DefaultInputKey, val)

	val, ok = cfg.Get("hostname")
	a.True(ok)
	a.Equal("example.com", val)

	_, ok = cfg.Get("action")
	a.False(ok)

	_, ok = cfg.Get("nope")
	a.False(ok)
}
