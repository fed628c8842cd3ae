package mux

import "net/http"

type healthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	RecaptchaVersion string `json:"recaptchaVersion"`
}

func (m *Mux) getHealth() http.HandlerFunc {
	payload := healthResponse{
		Status:           "OK",
		Version:          m.version,
		RecaptchaVersion: m.captcha.Config().Version(),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, payload)
	}
}
