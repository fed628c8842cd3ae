package captcha

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// outcome label values
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeError   = "error"
)

// Instrumented records Prometheus metrics for every verification
type Instrumented struct {
	Interface

	verifications *prometheus.CounterVec
	errorCodes    *prometheus.CounterVec
	duration      prometheus.Histogram
}

// NewInstrumented decorates inner and registers its collectors with reg
// Collectors that are already registered with reg are reused.
func NewInstrumented(inner Interface, reg prometheus.Registerer) *Instrumented {
	i := &Instrumented{
		Interface: inner,
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recaptcha",
			Name:      "verifications_total",
			Help:      "Total number of reCAPTCHA verifications by outcome",
		}, []string{"outcome"}),
		errorCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recaptcha",
			Name:      "error_codes_total",
			Help:      "Total number of error codes returned by failed verifications",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "recaptcha",
			Name:      "verification_duration_seconds",
			Help:      "Duration of reCAPTCHA verification calls",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	i.verifications = register(reg, i.verifications).(*prometheus.CounterVec)
	i.errorCodes = register(reg, i.errorCodes).(*prometheus.CounterVec)
	i.duration = register(reg, i.duration).(prometheus.Histogram)

	return i
}

func register(reg prometheus.Registerer, c prometheus.Collector) prometheus.Collector {
	if reg == nil {
		return c
	}

	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}

		panic(err)
	}

	return c
}

// Unwrap returns the decorated value
func (i *Instrumented) Unwrap() Interface {
	return i.Interface
}

// Verify forwards to the decorated value and records the outcome
func (i *Instrumented) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	resp, err := i.VerifyResponse(ctx, token, remoteIP)
	if err != nil {
		return false, err
	}

	return resp.Success, nil
}

// VerifyResponse forwards to the decorated value and records the outcome
func (i *Instrumented) VerifyResponse(ctx context.Context, token, remoteIP string) (*Response, error) {
	start := time.Now()
	resp, err := i.Interface.VerifyResponse(ctx, token, remoteIP)
	i.duration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		i.verifications.WithLabelValues(outcomeError).Inc()
	case resp.Success:
		i.verifications.WithLabelValues(outcomeSuccess).Inc()
	default:
		i.verifications.WithLabelValues(outcomeFailure).Inc()
		for _, code := range resp.ErrorCodes {
			i.errorCodes.WithLabelValues(code).Inc()
		}
	}

	return resp, err
}
