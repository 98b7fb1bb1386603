package middleware

import (
	"VoiceBoard/pkg/i18n"

	"github.com/gin-gonic/gin"
)

const LangKey = "lang"

// LanguageMiddleware resolves the response language from ?lang= or
// Accept-Language and stores it under LangKey.
func LanguageMiddleware(i18nSupport *i18n.I18nSupport) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := i18nSupport.Match(c.Query("lang"), c.GetHeader("Accept-Language"))
		c.Set(LangKey, lang)
		c.Next()
	}
}

// Lang returns the language chosen by LanguageMiddleware, or "" when unset.
func Lang(c *gin.Context) string {
	return c.GetString(LangKey)
}
