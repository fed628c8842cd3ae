// Package captcha wraps Google's reCAPTCHA verification API.
//
// Captcha is the core wrapper. HTMLAware, HTTPAware and Instrumented decorate
// any Interface with widget rendering, request extraction and metrics, and
// forward every other call to the wrapped value.
package captcha

import (
	"context"
	"fmt"
	"sync"
)

// Interface is implemented by Captcha and by every decorator
type Interface interface {
	// Verify checks a token with the remote API and records the response
	Verify(ctx context.Context, token, remoteIP string) (bool, error)

	// VerifyResponse is like Verify but returns the response of this call,
	// unaffected by verifications running concurrently on the same value
	VerifyResponse(ctx context.Context, token, remoteIP string) (*Response, error)

	// Config returns the reCAPTCHA settings
	Config() Config

	// Client returns the verification client, creating it on first use
	Client() (Client, error)

	// LastResponse returns the response of the last verification
	LastResponse() (*Response, error)

	// LastErrorCodes returns the error codes of the last verification
	LastErrorCodes() ([]string, error)

	// LastErrorMessages returns the messages for LastErrorCodes
	LastErrorMessages() (ErrorMessages, error)

	// ErrorMessages resolves every code
	ErrorMessages(codes []string) ErrorMessages

	// ErrorMessage resolves a single code
	ErrorMessage(code string) string
}

// Captcha is the core reCAPTCHA wrapper
// The last response is shared by every caller of the same instance
type Captcha struct {
	config    Config
	resolver  MessageResolver
	newClient ClientFactory

	clientMu sync.Mutex
	client   Client

	mu           sync.Mutex
	lastResponse *Response
}

// Option configures a Captcha
type Option func(c *Captcha)

// WithClient uses a ready-made client instead of building one lazily
func WithClient(client Client) Option {
	return func(c *Captcha) {
		c.client = client
	}
}

// WithClientFactory changes how the client is built on first use
func WithClientFactory(factory ClientFactory) Option {
	return func(c *Captcha) {
		if factory != nil {
			c.newClient = factory
		}
	}
}

// WithMessageResolver changes how error codes are turned into messages
func WithMessageResolver(resolver MessageResolver) Option {
	return func(c *Captcha) {
		if resolver != nil {
			c.resolver = resolver
		}
	}
}

// New returns a new Captcha
func New(cfg Config, opts ...Option) *Captcha {
	c := &Captcha{
		config:    cfg,
		resolver:  EnglishMessages{},
		newClient: NewReCAPTCHAClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewLocalized returns a Captcha whose error messages go through tr
func NewLocalized(tr Translator, cfg Config, opts ...Option) *Captcha {
	opts = append(opts, WithMessageResolver(LocalizedMessages{Translator: tr}))
	return New(cfg, opts...)
}

// Config returns the reCAPTCHA settings
func (c *Captcha) Config() Config {
	return c.config
}

// Client returns the verification client, creating it on first use
func (c *Captcha) Client() (Client, error) {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()

	if c.client == nil {
		client, err := c.newClient(c.config)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrClientSetup, err)
		}

		c.client = client
	}

	return c.client, nil
}

// Verify performs exactly one remote call and replaces the last response
// A transport error from the client is returned as-is and clears the last response
func (c *Captcha) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	resp, err := c.VerifyResponse(ctx, token, remoteIP)
	if err != nil {
		return false, err
	}

	return resp.Success, nil
}

// VerifyResponse is Verify returning the whole response
func (c *Captcha) VerifyResponse(ctx context.Context, token, remoteIP string) (*Response, error) {
	client, err := c.Client()
	if err != nil {
		return nil, err
	}

	resp, err := client.Verify(ctx, token, remoteIP)
	if err != nil {
		resp = nil
	}

	c.mu.Lock()
	c.lastResponse = resp
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return resp, nil
}

// LastResponse returns ErrUntested until a verification completed
func (c *Captcha) LastResponse() (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lastResponse == nil {
		return nil, ErrUntested
	}

	return c.lastResponse, nil
}

// LastErrorCodes is empty when the last verification succeeded
// The slice is a copy and can be changed freely.
func (c *Captcha) LastErrorCodes() ([]string, error) {
	resp, err := c.LastResponse()
	if err != nil {
		return nil, err
	}

	return append([]string{}, resp.ErrorCodes...), nil
}

// LastErrorMessages resolves LastErrorCodes
func (c *Captcha) LastErrorMessages() (ErrorMessages, error) {
	codes, err := c.LastErrorCodes()
	if err != nil {
		return nil, err
	}

	return c.ErrorMessages(codes), nil
}

// ErrorMessages resolves every code, keyed by code in first-seen order
func (c *Captcha) ErrorMessages(codes []string) ErrorMessages {
	return resolveAll(c.resolver, codes)
}

// ErrorMessage resolves a single code
func (c *Captcha) ErrorMessage(code string) string {
	return c.resolver.Resolve(code)
}

// WidgetHTML renders the widget container, see HTMLAware.WidgetHTML
func (c *Captcha) WidgetHTML(attrs ...Attr) string {
	return widgetHTML(c.config, attrs, true)
}

// UnescapedWidgetHTML renders the widget container without escaping attribute values
//
// Deprecated: attribute values are interpolated verbatim, use WidgetHTML.
func (c *Captcha) UnescapedWidgetHTML(attrs ...Attr) string {
	return widgetHTML(c.config, attrs, false)
}

// JSURI returns the URL of the reCAPTCHA script, see HTMLAware.JSURI
func (c *Captcha) JSURI(query ...Param) string {
	return jsURI(query)
}

// JSHTML returns the script tag, see HTMLAware.JSHTML
func (c *Captcha) JSHTML(query ...Param) string {
	return jsHTML(query)
}

// Display renders the script tag and the widget, see HTMLAware.Display
func (c *Captcha) Display(opts ...DisplayOption) string {
	return display(c.config, opts)
}
