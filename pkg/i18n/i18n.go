package i18n

import (
	"embed"
	"encoding/json"
	"log"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Supported lists the tags with a bundled message file, default first.
var Supported = []language.Tag{language.Korean, language.English}

// I18nSupport wraps a go-i18n bundle with a language matcher.
type I18nSupport struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
	def     language.Tag
}

// NewI18nSupport loads the embedded ko/en message files.
func NewI18nSupport(defaultLang string) (*I18nSupport, error) {
	def, err := language.Parse(defaultLang)
	if err != nil {
		def = language.Korean
	}
	bundle := i18n.NewBundle(def)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, name := range []string{"ko.json", "en.json"} {
		buf, err := localeFS.ReadFile("locales/" + name)
		if err != nil {
			return nil, err
		}
		if _, err := bundle.ParseMessageFileBytes(buf, name); err != nil {
			return nil, err
		}
	}

	tags := []language.Tag{def}
	for _, t := range Supported {
		if t != def {
			tags = append(tags, t)
		}
	}
	return &I18nSupport{
		bundle:  bundle,
		matcher: language.NewMatcher(tags),
		def:     def,
	}, nil
}

// Match picks the best supported language for the given preferences
// (query value first, then Accept-Language).
func (i *I18nSupport) Match(prefs ...string) string {
	tag, _ := language.MatchStrings(i.matcher, prefs...)
	base, _ := tag.Base()
	return base.String()
}

// T localizes key for languageTag, falling back to the key itself.
func (i *I18nSupport) T(languageTag, key string, templateData map[string]interface{}) string {
	localizer := i18n.NewLocalizer(i.bundle, languageTag)

	translation, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: templateData,
	})
	if err != nil {
		log.Printf("Error translating key %s: %v", key, err)
		return key
	}
	return translation
}

// TWithDefaultLang localizes key in the default language.
func (i *I18nSupport) TWithDefaultLang(key string, templateData map[string]interface{}) string {
	return i.T(i.def.String(), key, templateData)
}
