package captcha

import (
	"context"
	"strings"
	"time"

	grecaptcha "github.com/ezzarghili/recaptcha-go"
)

// ExpectationFailedCode is reported when the token was valid but did not meet
// the configured hostname, package, action, score or age expectations
const ExpectationFailedCode = "expectation-failed"

// vendorTimeout is handed to the vendor client, this package never times out a call itself
const vendorTimeout = 10 * time.Second

// Response is the outcome of a single verification call
type Response struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"errorCodes"`

	// Reason is the vendor's description of a failure
	Reason string `json:"reason,omitempty"`
}

// Client performs the remote verification call
type Client interface {
	// Verify checks the token once. Transport problems are returned as an
	// error, a rejected token is an unsuccessful Response.
	Verify(ctx context.Context, token, remoteIP string) (*Response, error)
}

// ClientFactory creates a Client for a config
type ClientFactory func(cfg Config) (Client, error)

type recaptchaClient struct {
	captcha grecaptcha.ReCAPTCHA
	options grecaptcha.VerifyOption
}

// NewReCAPTCHAClient is the default ClientFactory, backed by recaptcha-go
func NewReCAPTCHAClient(cfg Config) (Client, error) {
	version := grecaptcha.V2
	if cfg.Version() == VersionV3 {
		version = grecaptcha.V3
	}

	captcha, err := grecaptcha.NewReCAPTCHA(cfg.PrivateKey(), version, vendorTimeout)
	if err != nil {
		return nil, err
	}

	opts := grecaptcha.VerifyOption{
		Hostname:       cfg.Hostname(),
		ApkPackageName: cfg.ApkPackageName(),
		Action:         cfg.Action(),
		ResponseTime:   cfg.ChallengeTimeout(),
	}

	if threshold, ok := cfg.ScoreThreshold(); ok {
		opts.Threshold = float32(threshold)
	}

	return &recaptchaClient{
		captcha: captcha,
		options: opts,
	}, nil
}

// messages returned by recaptcha-go, which reports everything as a plain error
const (
	vendorRemoteCodesPrefix = "remote error codes: "
	vendorInvalidSolution   = "invalid challenge solution"
)

// prefixes of recaptcha-go errors caused by the round-trip itself
var vendorTransportPrefixes = []string{
	"error posting",
	"couldn't read",
	"invalid response body json",
}

func (r *recaptchaClient) Verify(ctx context.Context, token, remoteIP string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := r.options
	opts.RemoteIP = remoteIP

	err := r.captcha.VerifyWithOptions(token, opts)
	if err == nil {
		return &Response{Success: true, ErrorCodes: []string{}}, nil
	}

	codes, transport := vendorErrorCodes(err.Error())
	if transport {
		return nil, err
	}

	return &Response{
		Success:    false,
		ErrorCodes: codes,
		Reason:     err.Error(),
	}, nil
}

// vendorErrorCodes turns a recaptcha-go error message into error codes
// transport is true when the remote API could not be reached or understood.
func vendorErrorCodes(msg string) (codes []string, transport bool) {
	for _, prefix := range vendorTransportPrefixes {
		if strings.HasPrefix(msg, prefix) {
			return nil, true
		}
	}

	switch {
	case strings.HasPrefix(msg, vendorRemoteCodesPrefix):
		list := strings.TrimPrefix(msg, vendorRemoteCodesPrefix)
		list = strings.TrimSuffix(strings.TrimPrefix(list, "["), "]")
		if codes = strings.Fields(list); len(codes) > 0 {
			return codes, false
		}
	case msg == vendorInvalidSolution:
		return []string{CodeInvalidInputResponse}, false
	}

	return []string{ExpectationFailedCode}, false
}
