package captcha

import (
	"embed"
	"fmt"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v2"
)

//go:embed translations/*.yaml
var translations embed.FS

// I18nTranslator translates with a go-i18n bundle
// English and French messages are built in; more can be loaded from a directory.
type I18nTranslator struct {
	localizer *i18n.Localizer
}

// NewI18nTranslator returns a translator for the given languages, in order of preference
// If dir is not empty, every *.yaml, *.yml and *.json file in it is loaded as
// well, named after its language (e.g. de.yaml).
func NewI18nTranslator(dir string, langs ...string) (*I18nTranslator, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	bundle.RegisterUnmarshalFunc("yml", yaml.Unmarshal)

	files, err := translations.ReadDir("translations")
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if _, err := bundle.LoadMessageFileFS(translations, "translations/"+f.Name()); err != nil {
			return nil, fmt.Errorf("could not load built-in translations %s: %w", f.Name(), err)
		}
	}

	if dir != "" {
		for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return nil, err
			}

			for _, path := range matches {
				if _, err := bundle.LoadMessageFile(path); err != nil {
					return nil, fmt.Errorf("could not load translations %s: %w", path, err)
				}
			}
		}
	}

	return &I18nTranslator{
		localizer: i18n.NewLocalizer(bundle, langs...),
	}, nil
}

// Translate returns the message for key, or key itself if there is none
func (t *I18nTranslator) Translate(key string, params map[string]interface{}) string {
	msg, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: params,
	})
	if err != nil {
		logrus.WithError(err).WithField("key", key).Debug("missing translation")
		return key
	}

	return msg
}
