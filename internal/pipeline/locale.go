package pipeline

import (
	"golang.org/x/text/language"
)

// NewLocaleResolver builds the locale middleware. The locale is derived
// in priority order: explicit request locale, primary Accept-Language
// tag, then the configured default. It sets one field and continues the
// chain.
func NewLocaleResolver(defaultLocale string) Middleware {
	return func(ctx *Context, next Next) error {
		ctx.Locale = resolveLocale(ctx.Request, defaultLocale)
		return next()
	}
}

func resolveLocale(req Request, fallback string) string {
	if req.Locale != "" {
		return req.Locale
	}

	if req.AcceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(req.AcceptLanguage); err == nil && len(tags) > 0 {
			// The primary tag's base language, e.g. "fr-CA,fr;q=0.9" -> "fr".
			base, confidence := tags[0].Base()
			if confidence != language.No {
				return base.String()
			}
		}
	}

	return fallback
}
