package mux

import (
	"net/http"

	"recaptcha-service/pkg/captcha"
)

// query parameters forwarded to the script URL, in this order
var scriptParams = []string{"lang", "render", "onload"}

// query parameters forwarded to the widget as data-* attributes
var widgetParams = []string{"theme", "size"}

func (m *Mux) getCaptcha() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var params []captcha.Param
		for _, key := range scriptParams {
			if v := q.Get(key); v != "" {
				params = append(params, captcha.Param{Key: key, Value: v})
			}
		}

		var attrs []captcha.Attr
		for _, key := range widgetParams {
			if v := q.Get(key); v != "" {
				attrs = append(attrs, captcha.Attr{Name: "data-" + key, Value: v})
			}
		}

		writeHTML(w, http.StatusOK, m.html.Display(captcha.WithQuery(params...), captcha.WithAttributes(attrs...)))
	}
}

type captchaConfigResponse struct {
	PublicKey string `json:"publicKey"`
	InputKey  string `json:"inputKey"`
	Version   string `json:"version"`
	ScriptURL string `json:"scriptUrl"`
}

func (m *Mux) getCaptchaConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := m.captcha.Config()
		writeJSON(w, http.StatusOK, captchaConfigResponse{
			PublicKey: cfg.PublicKey(),
			InputKey:  cfg.InputKey(),
			Version:   cfg.Version(),
			ScriptURL: m.html.JSURI(),
		})
	}
}

type verifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"errorCodes"`
	Messages   []string `json:"messages"`
}

// postCaptchaVerify reports the outcome of a verification
// A rejected token is still a 200, the outcome is in the body.
func (m *Mux) postCaptchaVerify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := m.captcha.VerifyRequestResponse(r)
		if err != nil {
			logger(r).WithError(err).Error("could not verify captcha")
			writeJSONError(w, http.StatusBadGateway, err)
			return
		}

		resp := verifyResponse{
			Success:    result.Success,
			ErrorCodes: []string{},
			Messages:   []string{},
		}

		if !result.Success {
			for _, msg := range m.captcha.ErrorMessages(result.ErrorCodes) {
				resp.ErrorCodes = append(resp.ErrorCodes, msg.Code)
				resp.Messages = append(resp.Messages, msg.Message)
			}

			logger(r).WithField("errorCodes", resp.ErrorCodes).Info("captcha rejected")
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

type protectedResponse struct {
	Status string `json:"status"`
}

func (m *Mux) postProtected() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, protectedResponse{Status: "OK"})
	}
}
