package captcha

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newFormRequest(target string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestHTTPAware_VerifyRequest(t *testing.T) {
	a := assert.New(t)
	c, client := newTestCaptcha(success())
	h := NewHTTPAware(c)

	r := newFormRequest("/", url.Values{DefaultInputKey: {"form-token"}})
	r.RemoteAddr = "192.0.2.1:1234"

	ok, err := h.VerifyRequest(r)
	a.NoError(err)
	a.True(ok)
	a.Equal([]verifyCall{{"form-token", "192.0.2.1"}}, client.calls)
}

func TestHTTPAware_Token(t *testing.T) {
	c, _ := newTestCaptcha(success())
	h := NewHTTPAware(c)

	multipartBody := &bytes.Buffer{}
	mw := multipart.NewWriter(multipartBody)
	_ = mw.WriteField(DefaultInputKey, "multipart-token")
	_ = mw.Close()

	tests := []struct {
		name    string
		request func() *http.Request
		token   string
		found   bool
	}{
		{
			name: "form body wins over query",
			request: func() *http.Request {
				return newFormRequest("/?g-recaptcha-response=query-token", url.Values{DefaultInputKey: {"form-token"}})
			},
			token: "form-token",
			found: true,
		},
		{
			name: "query when body has no token",
			request: func() *http.Request {
				return newFormRequest("/?g-recaptcha-response=query-token", url.Values{"other": {"x"}})
			},
			token: "query-token",
			found: true,
		},
		{
			name: "json body",
			request: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"g-recaptcha-response":"json-token"}`))
				r.Header.Set("Content-Type", "application/json; charset=utf-8")
				return r
			},
			token: "json-token",
			found: true,
		},
		{
			name: "multipart body",
			request: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(multipartBody.Bytes()))
				r.Header.Set("Content-Type", mw.FormDataContentType())
				return r
			},
			token: "multipart-token",
			found: true,
		},
		{
			name: "get request",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/?g-recaptcha-response=query-token", nil)
			},
			token: "query-token",
			found: true,
		},
		{
			name: "absent",
			request: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/", nil)
			},
			token: "",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, found := h.Token(tt.request())
			assert.Equal(t, tt.token, token)
			assert.Equal(t, tt.found, found)
		})
	}
}

func TestHTTPAware_Token_customInputKey(t *testing.T) {
	c := New(NewConfig("SK", "PK", "captcha"), WithClient(&stubClient{responses: []*Response{success()}}))
	h := NewHTTPAware(c)

	token, ok := h.Token(httptest.NewRequest(http.MethodGet, "/?captcha=abc&g-recaptcha-response=nope", nil))
	assert.True(t, ok)
	assert.Equal(t, "abc", token)
}

func TestHTTPAware_Token_jsonBodyRestored(t *testing.T) {
	c, _ := newTestCaptcha(success())
	h := NewHTTPAware(c)

	body := `{"g-recaptcha-response":"json-token","name":"bob"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	token, ok := h.Token(r)
	assert.True(t, ok)
	assert.Equal(t, "json-token", token)

	b, err := io.ReadAll(r.Body)
	assert.NoError(t, err)
	assert.Equal(t, body, string(b))
}

func TestHTTPAware_Token_largeJSONBody(t *testing.T) {
	a := assert.New(t)
	c, _ := newTestCaptcha(success())
	h := NewHTTPAware(c)

	body := `{"padding":"` + strings.Repeat("x", 2*maxBodySize) + `","g-recaptcha-response":"json-token"}`
	r := httptest.NewRequest(http.MethodPost, "/?g-recaptcha-response=query-token", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	token, ok := h.Token(r)
	a.True(ok)
	a.Equal("query-token", token)

	b, err := io.ReadAll(r.Body)
	a.NoError(err)
	a.Equal(len(body), len(b))
	a.Equal(body, string(b))
}

func TestHTTPAware_extractors(t *testing.T) {
	a := assert.New(t)
	c, client := newTestCaptcha(success())
	h := NewHTTPAware(c,
		WithTokenExtractor(func(r *http.Request) (string, bool) {
			v := r.Header.Get("X-Captcha-Token")
			return v, v != ""
		}),
		WithRemoteIPExtractor(func(r *http.Request) (string, bool) {
			v := r.Header.Get("X-Real-IP")
			return v, v != ""
		}),
	)

	r := httptest.NewRequest(http.MethodGet, "/?g-recaptcha-response=query-token", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	r.Header.Set("X-Captcha-Token", "header-token")
	r.Header.Set("X-Real-IP", "198.51.100.7")

	_, err := h.VerifyRequest(r)
	a.NoError(err)

	r = httptest.NewRequest(http.MethodGet, "/?g-recaptcha-response=query-token", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	_, err = h.VerifyRequest(r)
	a.NoError(err)

	a.Equal([]verifyCall{
		{"header-token", "198.51.100.7"},
		{"query-token", "192.0.2.1"},
	}, client.calls)
}

func TestHTTPAware_RemoteIP(t *testing.T) {
	c, _ := newTestCaptcha(success())
	h := NewHTTPAware(c)

	for remoteAddr, expects := range map[string]string{
		"192.0.2.1:1234":    "192.0.2.1",
		"[2001:db8::1]:443": "2001:db8::1",
		"192.0.2.1":         "192.0.2.1",
		"":                  "",
	} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remoteAddr
		assert.Equal(t, expects, h.RemoteIP(r), remoteAddr)
	}
}

func TestHTTPAware_Check(t *testing.T) {
	a := assert.New(t)
	c, _ := newTestCaptcha(failure(CodeMissingInputSecret, CodeInvalidInputResponse))
	h := NewHTTPAware(c)

	err := h.Check(httptest.NewRequest(http.MethodGet, "/", nil))

	var rejected *RejectedError
	a.True(errors.As(err, &rejected))
	a.True(errors.Is(err, ErrInvalidArgument))
	a.Equal(http.StatusBadRequest, rejected.StatusCode)
	a.Equal("The CAPTCHA response parameter is invalid or malformed.", rejected.Message)

	c, _ = newTestCaptcha(failure())
	err = NewHTTPAware(c).Check(httptest.NewRequest(http.MethodGet, "/", nil))
	a.True(errors.As(err, &rejected))
	a.Equal(genericRejection, rejected.Message)

	c, _ = newTestCaptcha(success())
	a.NoError(NewHTTPAware(c).Check(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestHTTPAware_Check_ownResponse(t *testing.T) {
	a := assert.New(t)
	c, _ := newTestCaptcha(failure(CodeMissingInputResponse))
	h := NewHTTPAware(overwrittenLast{c})

	err := h.Check(httptest.NewRequest(http.MethodGet, "/", nil))

	var rejected *RejectedError
	a.True(errors.As(err, &rejected))
	a.Equal("The CAPTCHA response parameter is missing.", rejected.Message)

	resp, err := h.VerifyRequestResponse(httptest.NewRequest(http.MethodGet, "/", nil))
	a.NoError(err)
	a.Equal([]string{CodeMissingInputResponse}, resp.ErrorCodes)
}

func TestHTTPAware_Middleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("passes", func(t *testing.T) {
		c, _ := newTestCaptcha(success())
		w := httptest.NewRecorder()
		NewHTTPAware(c).Middleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?g-recaptcha-response=x", nil))
		assert.Equal(t, http.StatusTeapot, w.Code)
	})

	t.Run("rejected", func(t *testing.T) {
		a := assert.New(t)
		c, _ := newTestCaptcha(failure(CodeMissingInputResponse))
		w := httptest.NewRecorder()
		NewHTTPAware(c).Middleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		a.Equal(http.StatusBadRequest, w.Code)
		a.Equal("application/json", w.Header().Get("Content-Type"))

		var resp failureResponse
		a.NoError(json.NewDecoder(w.Body).Decode(&resp))
		a.Equal("The CAPTCHA response parameter is missing.", resp.Message)
		a.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("client error", func(t *testing.T) {
		a := assert.New(t)
		c := New(testConfig(), WithClient(&stubClient{err: errors.New("connection refused")}))
		w := httptest.NewRecorder()
		NewHTTPAware(c).Middleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		a.Equal(http.StatusInternalServerError, w.Code)
		a.NotContains(w.Body.String(), "connection refused")
	})

	t.Run("custom failure handler", func(t *testing.T) {
		c, _ := newTestCaptcha(failure(CodeMissingInputResponse))
		var got error
		h := NewHTTPAware(c, WithFailureHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusForbidden)
		}))

		w := httptest.NewRecorder()
		h.Middleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.True(t, errors.Is(got, ErrInvalidArgument))
	})
}
