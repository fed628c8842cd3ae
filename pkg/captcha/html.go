package captcha

import (
	"fmt"
	"html"
	"net/url"
	"strings"
)

// ClientAPI is the reCAPTCHA JavaScript API
const ClientAPI = "https://www.google.com/recaptcha/api.js"

const siteKeyAttr = "data-sitekey"

// Attr is an HTML attribute on the widget container
type Attr struct {
	Name  string
	Value string
}

// Param is a query parameter of the script URL
type Param struct {
	Key   string
	Value string
}

type displayOptions struct {
	script bool
	widget bool
	query  []Param
	attrs  []Attr
}

// DisplayOption changes what Display renders
type DisplayOption func(o *displayOptions)

// WithoutScript omits the script tag
func WithoutScript() DisplayOption {
	return func(o *displayOptions) {
		o.script = false
	}
}

// WithoutWidget omits the widget container
func WithoutWidget() DisplayOption {
	return func(o *displayOptions) {
		o.widget = false
	}
}

// WithQuery adds query parameters to the script URL
func WithQuery(query ...Param) DisplayOption {
	return func(o *displayOptions) {
		o.query = append(o.query, query...)
	}
}

// WithAttributes adds attributes to the widget container
func WithAttributes(attrs ...Attr) DisplayOption {
	return func(o *displayOptions) {
		o.attrs = append(o.attrs, attrs...)
	}
}

// HTMLAware renders the reCAPTCHA script and widget
type HTMLAware struct {
	Interface
}

// NewHTMLAware decorates inner
func NewHTMLAware(inner Interface) *HTMLAware {
	return &HTMLAware{Interface: inner}
}

// Unwrap returns the decorated value
func (h *HTMLAware) Unwrap() Interface {
	return h.Interface
}

// Display renders the script tag followed by the widget, separated by a newline
// Either part can be disabled, in which case an empty string may be returned
func (h *HTMLAware) Display(opts ...DisplayOption) string {
	return display(h.Config(), opts)
}

// WidgetHTML renders the widget container
// data-sitekey is always set to the public key: replaced in place when
// supplied, appended otherwise. Values are HTML-escaped.
func (h *HTMLAware) WidgetHTML(attrs ...Attr) string {
	return widgetHTML(h.Config(), attrs, true)
}

// JSHTML returns a script tag loading JSURI
func (h *HTMLAware) JSHTML(query ...Param) string {
	return jsHTML(query)
}

// JSURI returns the script URL
// A lang parameter is renamed to hl
func (h *HTMLAware) JSURI(query ...Param) string {
	return jsURI(query)
}

func display(cfg Config, opts []DisplayOption) string {
	o := displayOptions{
		script: true,
		widget: true,
	}

	for _, opt := range opts {
		opt(&o)
	}

	var sb strings.Builder
	if o.script {
		sb.WriteString(jsHTML(o.query))
	}

	if o.widget {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString(widgetHTML(cfg, o.attrs, true))
	}

	return sb.String()
}

func widgetHTML(cfg Config, attrs []Attr, escape bool) string {
	all := make([]Attr, 0, len(attrs)+1)
	found := false
	for _, attr := range attrs {
		if attr.Name == siteKeyAttr {
			if found {
				continue
			}

			attr.Value = cfg.PublicKey()
			found = true
		}

		all = append(all, attr)
	}

	if !found {
		all = append(all, Attr{Name: siteKeyAttr, Value: cfg.PublicKey()})
	}

	var sb strings.Builder
	sb.WriteString(`<div class="g-recaptcha"`)
	for _, attr := range all {
		value := attr.Value
		if escape {
			value = html.EscapeString(value)
		}

		fmt.Fprintf(&sb, ` %s="%s"`, attr.Name, value)
	}
	sb.WriteString(`></div>`)

	return sb.String()
}

func jsHTML(query []Param) string {
	return fmt.Sprintf(`<script src="%s" async defer></script>`, jsURI(query))
}

// jsURI renames lang to hl. When lang is given it replaces any hl, and only
// the last lang value is kept, at the position of the first lang.
func jsURI(query []Param) string {
	if len(query) == 0 {
		return ClientAPI
	}

	lang, hasLang := "", false
	for _, p := range query {
		if p.Key == "lang" {
			lang, hasLang = p.Value, true
		}
	}

	parts := make([]string, 0, len(query))
	langWritten := false
	for _, p := range query {
		key, value := p.Key, p.Value
		switch {
		case key == "hl" && hasLang:
			continue
		case key == "lang":
			if langWritten {
				continue
			}
			key, value = "hl", lang
			langWritten = true
		}

		parts = append(parts, url.QueryEscape(key)+"="+url.QueryEscape(value))
	}

	return ClientAPI + "?" + strings.Join(parts, "&")
}
