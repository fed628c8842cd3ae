package captcha

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"
)

// maxBodySize limits how much of a JSON body is read when looking for the token
const maxBodySize = 1 << 20

const genericRejection = "The CAPTCHA could not be verified."

// RequestExtractor reads a value from a request
// The boolean is false when the value is not present
type RequestExtractor func(r *http.Request) (string, bool)

// FailureHandler writes the response for a request that did not pass Check
type FailureHandler func(w http.ResponseWriter, r *http.Request, err error)

// HTTPOption configures an HTTPAware
type HTTPOption func(h *HTTPAware)

// WithTokenExtractor consults fn before the request body and query
func WithTokenExtractor(fn RequestExtractor) HTTPOption {
	return func(h *HTTPAware) {
		h.tokenExtractor = fn
	}
}

// WithRemoteIPExtractor consults fn before the request's remote address
func WithRemoteIPExtractor(fn RequestExtractor) HTTPOption {
	return func(h *HTTPAware) {
		h.remoteIPExtractor = fn
	}
}

// WithFailureHandler replaces the default JSON failure response
func WithFailureHandler(fn FailureHandler) HTTPOption {
	return func(h *HTTPAware) {
		if fn != nil {
			h.failureHandler = fn
		}
	}
}

// HTTPAware verifies tokens submitted with HTTP requests
type HTTPAware struct {
	Interface

	tokenExtractor    RequestExtractor
	remoteIPExtractor RequestExtractor
	failureHandler    FailureHandler
}

// NewHTTPAware decorates inner
func NewHTTPAware(inner Interface, opts ...HTTPOption) *HTTPAware {
	h := &HTTPAware{
		Interface:      inner,
		failureHandler: JSONFailureHandler,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Unwrap returns the decorated value
func (h *HTTPAware) Unwrap() Interface {
	return h.Interface
}

// VerifyRequest extracts the token and the remote IP from r and verifies them
// A missing token is sent as-is and rejected by the remote API
func (h *HTTPAware) VerifyRequest(r *http.Request) (bool, error) {
	token, _ := h.Token(r)
	return h.Verify(r.Context(), token, h.RemoteIP(r))
}

// VerifyRequestResponse is VerifyRequest returning the response of this request
func (h *HTTPAware) VerifyRequestResponse(r *http.Request) (*Response, error) {
	token, _ := h.Token(r)
	return h.VerifyResponse(r.Context(), token, h.RemoteIP(r))
}

// Check is like VerifyRequest but returns a *RejectedError when the token was not accepted
func (h *HTTPAware) Check(r *http.Request) error {
	resp, err := h.VerifyRequestResponse(r)
	if err != nil {
		return err
	}

	if resp.Success {
		return nil
	}

	if msg, found := h.ErrorMessages(resp.ErrorCodes).Last(); found {
		return newRejectedError(msg)
	}

	return newRejectedError(genericRejection)
}

// Middleware only calls next for requests that pass Check
func (h *HTTPAware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.Check(r); err != nil {
			h.failureHandler(w, r, err)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Token returns the token from the first source that has one: the token
// extractor, the parsed body and then the query string
func (h *HTTPAware) Token(r *http.Request) (string, bool) {
	if h.tokenExtractor != nil {
		if token, ok := h.tokenExtractor(r); ok {
			return token, true
		}
	}

	key := h.Config().InputKey()
	if token, ok := bodyParam(r, key); ok {
		return token, true
	}

	if values, ok := r.URL.Query()[key]; ok && len(values) > 0 {
		return values[0], true
	}

	return "", false
}

// RemoteIP returns the address of the client, without the port
func (h *HTTPAware) RemoteIP(r *http.Request) string {
	if h.remoteIPExtractor != nil {
		if ip, ok := h.remoteIPExtractor(r); ok {
			return ip
		}
	}

	return remoteAddr(r)
}

func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func bodyParam(r *http.Request, key string) (string, bool) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", false
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return "", false
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodySize); err != nil {
			return "", false
		}
	case "application/json", "text/json":
		return jsonParam(r, key)
	default:
		return "", false
	}

	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return "", false
	}

	return values[0], true
}

// jsonParam reads a top-level string member and restores the body for later handlers
// Only the first maxBodySize bytes are searched, the whole body is passed on.
func jsonParam(r *http.Request, key string) (string, bool) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(b), r.Body))
	if err != nil {
		return "", false
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(b, &payload); err != nil {
		return "", false
	}

	token, ok := payload[key].(string)
	return token, ok
}

type failureResponse struct {
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// JSONFailureHandler writes {"message", "statusCode"}
// Rejections become a 400 with their message, anything else a 500
func JSONFailureHandler(w http.ResponseWriter, r *http.Request, err error) {
	resp := failureResponse{
		Message:    http.StatusText(http.StatusInternalServerError),
		StatusCode: http.StatusInternalServerError,
	}

	var rejected *RejectedError
	if errors.As(err, &rejected) {
		resp.Message = rejected.Message
		resp.StatusCode = rejected.StatusCode
	} else {
		logrus.WithError(err).WithField("path", r.URL.Path).Error("could not verify captcha")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logrus.WithError(err).Error("could not write JSON response")
	}
}
