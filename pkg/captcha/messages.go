package captcha

import "strings"

// error codes documented by the siteverify API
const (
	CodeMissingInputSecret   = "missing-input-secret"
	CodeInvalidInputSecret   = "invalid-input-secret"
	CodeMissingInput         = "missing-input"
	CodeMissingInputResponse = "missing-input-response"
	CodeInvalidInput         = "invalid-input"
	CodeInvalidInputResponse = "invalid-input-response"
)

// MessageResolver turns an error code into a human-readable message
type MessageResolver interface {
	Resolve(code string) string
}

// MessageResolverFunc adapts a function to MessageResolver
type MessageResolverFunc func(code string) string

// Resolve calls f(code)
func (f MessageResolverFunc) Resolve(code string) string {
	return f(code)
}

// EnglishMessages is the default resolver
type EnglishMessages struct{}

// Resolve returns the English message for code
func (EnglishMessages) Resolve(code string) string {
	switch code {
	case CodeMissingInputSecret:
		return "The reCAPTCHA secret parameter is missing."
	case CodeInvalidInputSecret:
		return "The reCAPTCHA secret parameter is invalid or malformed."
	case CodeMissingInput, CodeMissingInputResponse:
		return "The CAPTCHA response parameter is missing."
	case CodeInvalidInput, CodeInvalidInputResponse:
		return "The CAPTCHA response parameter is invalid or malformed."
	}

	return strings.ReplaceAll("Unknown reCAPTCHA error: {code}", "{code}", code)
}

// Translator looks up a message by key
// Implementations should return the key itself when no translation exists
type Translator interface {
	Translate(key string, params map[string]interface{}) string
}

// translation keys used by LocalizedMessages
const (
	TranslationMissingInputResponse = "recaptcha.missing-input-response"
	TranslationInvalidInputResponse = "recaptcha.invalid-input-response"
	TranslationErrorCode            = "recaptcha.error-code"
)

// LocalizedMessages resolves codes through a Translator
type LocalizedMessages struct {
	Translator Translator
}

// Resolve returns the translated message for code
func (l LocalizedMessages) Resolve(code string) string {
	switch code {
	case CodeMissingInputSecret, CodeInvalidInputSecret:
		return l.Translator.Translate("recaptcha."+code, nil)
	case CodeMissingInput, CodeMissingInputResponse:
		return l.Translator.Translate(TranslationMissingInputResponse, nil)
	case CodeInvalidInput, CodeInvalidInputResponse:
		return l.Translator.Translate(TranslationInvalidInputResponse, nil)
	}

	return l.Translator.Translate(TranslationErrorCode, map[string]interface{}{
		"Code": code,
	})
}

// ErrorMessage pairs an error code with its message
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorMessages is keyed by code and keeps the order in which codes were first seen
type ErrorMessages []ErrorMessage

func resolveAll(r MessageResolver, codes []string) ErrorMessages {
	messages := make(ErrorMessages, 0, len(codes))
	index := make(map[string]int, len(codes))

	for _, code := range codes {
		msg := r.Resolve(code)
		if i, ok := index[code]; ok {
			messages[i].Message = msg
			continue
		}

		index[code] = len(messages)
		messages = append(messages, ErrorMessage{Code: code, Message: msg})
	}

	return messages
}

// Map returns the messages keyed by code
func (e ErrorMessages) Map() map[string]string {
	m := make(map[string]string, len(e))
	for _, msg := range e {
		m[msg.Code] = msg.Message
	}

	return m
}

// Messages returns the messages in order
func (e ErrorMessages) Messages() []string {
	messages := make([]string, len(e))
	for i, msg := range e {
		messages[i] = msg.Message
	}

	return messages
}

// Last returns the most specific (last) message
func (e ErrorMessages) Last() (string, bool) {
	if len(e) == 0 {
		return "", false
	}

	return e[len(e)-1].Message, true
}
