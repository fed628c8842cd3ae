// Package provider builds the reCAPTCHA services from the application configuration
package provider

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"recaptcha-service/internal/config"
	"recaptcha-service/pkg/captcha"
)

// Provider creates the captcha config and the decorated captcha once, on first use
type Provider struct {
	appConfig     config.Config
	translator    captcha.Translator
	registerer    prometheus.Registerer
	clientFactory captcha.ClientFactory

	configOnce sync.Once
	config     captcha.Config
	configErr  error

	captchaOnce sync.Once
	captcha     captcha.Interface
	captchaErr  error
}

// Option configures a Provider
type Option func(p *Provider)

// WithTranslator localizes error messages with tr
func WithTranslator(tr captcha.Translator) Option {
	return func(p *Provider) {
		p.translator = tr
	}
}

// WithRegisterer records verification metrics with reg
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(p *Provider) {
		p.registerer = reg
	}
}

// WithClientFactory changes how the verification client is built
func WithClientFactory(factory captcha.ClientFactory) Option {
	return func(p *Provider) {
		p.clientFactory = factory
	}
}

// New returns a new Provider
func New(appConfig config.Config, opts ...Option) *Provider {
	p := &Provider{
		appConfig: appConfig,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Config returns the captcha config built from the recaptcha settings
func (p *Provider) Config() (captcha.Config, error) {
	p.configOnce.Do(func() {
		p.config, p.configErr = captcha.NewConfigFromMap(p.appConfig.RecaptchaSettings())
	})

	return p.config, p.configErr
}

// Captcha returns the captcha, localized when a translator is available,
// instrumented when a registerer is set, and always HTTP and HTML aware.
func (p *Provider) Captcha() (captcha.Interface, error) {
	p.captchaOnce.Do(func() {
		p.captcha, p.captchaErr = p.build()
	})

	return p.captcha, p.captchaErr
}

func (p *Provider) build() (captcha.Interface, error) {
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}

	tr, err := p.getTranslator()
	if err != nil {
		return nil, err
	}

	var opts []captcha.Option
	if p.clientFactory != nil {
		opts = append(opts, captcha.WithClientFactory(p.clientFactory))
	}

	var c captcha.Interface
	if tr != nil {
		c = captcha.NewLocalized(tr, cfg, opts...)
	} else {
		c = captcha.New(cfg, opts...)
	}

	if p.registerer != nil {
		c = captcha.NewInstrumented(c, p.registerer)
	}

	c = captcha.NewHTTPAware(c)
	return captcha.NewHTMLAware(c), nil
}

func (p *Provider) getTranslator() (captcha.Translator, error) {
	if p.translator != nil {
		return p.translator, nil
	}

	locale := p.appConfig.Locale
	if locale == "" {
		return nil, nil
	}

	tr, err := captcha.NewI18nTranslator(p.appConfig.TranslationsDir, locale)
	if err != nil {
		return nil, err
	}

	logrus.WithField("locale", locale).Info("localized reCAPTCHA messages enabled")
	return tr, nil
}
