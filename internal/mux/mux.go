package mux

import (
	"context"
	"net/http"
	"time"

	gmux "github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"recaptcha-service/internal/util"
	"recaptcha-service/pkg/captcha"
)

type ctxKey int

const (
	ctxLoggerKey ctxKey = iota
)

const requestIDHeader = "X-Request-ID"

// Mux handles HTTP requests
type Mux struct {
	*gmux.Router
	version string
	captcha *captcha.HTTPAware
	html    *captcha.HTMLAware

	// store for testing purposes
	protectedRouter *gmux.Router
}

// NewMux returns a new HTTP mux
// The HTTP and HTML layers of c are reused when present, otherwise c is decorated.
func NewMux(version string, c captcha.Interface) *Mux {
	this := &Mux{
		Router:  gmux.NewRouter(),
		version: version,
		captcha: httpAware(c),
		html:    htmlAware(c),
	}

	this.Router.Use(this.requestIDMiddleware)

	this.protectedRouter = this.Router.NewRoute().Subrouter()
	this.protectedRouter.Use(this.captcha.Middleware)

	{
		r := this.Router
		r.Methods(http.MethodGet).Path("/health").Handler(this.getHealth())
		r.Methods(http.MethodGet).Path("/metrics").Handler(promhttp.Handler())
		r.Methods(http.MethodGet).Path("/captcha").Handler(this.getCaptcha())
		r.Methods(http.MethodGet).Path("/captcha/config").Handler(this.getCaptchaConfig())
		r.Methods(http.MethodPost).Path("/captcha/verify").Handler(this.postCaptchaVerify())
	}

	// requires a valid captcha token
	{
		r := this.protectedRouter
		r.Methods(http.MethodPost).Path("/protected").Handler(this.postProtected())
	}

	return this
}

func httpAware(c captcha.Interface) *captcha.HTTPAware {
	if h, ok := captcha.As[*captcha.HTTPAware](c); ok {
		return h
	}

	return captcha.NewHTTPAware(c)
}

func htmlAware(c captcha.Interface) *captcha.HTMLAware {
	if h, ok := captcha.As[*captcha.HTMLAware](c); ok {
		return h
	}

	return captcha.NewHTMLAware(c)
}

// requestIDMiddleware tags every request with an ID, echoed in the response
// and attached to the request's logger
func (m *Mux) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = util.NewRequestID()
		}

		entry := logrus.WithFields(logrus.Fields{
			"requestID": requestID,
			"method":    r.Method,
			"path":      r.URL.Path,
		})

		w.Header().Set(requestIDHeader, requestID)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxLoggerKey, entry)))
		entry.WithField("duration", time.Since(start)).Debug("request complete")
	})
}

func logger(r *http.Request) *logrus.Entry {
	if entry, ok := r.Context().Value(ctxLoggerKey).(*logrus.Entry); ok {
		return entry
	}

	return logrus.NewEntry(logrus.StandardLogger())
}
