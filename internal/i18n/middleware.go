package i18n

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
)

// LangCookie remembers a language picked with the ?lang query parameter.
const LangCookie = "lang"

type langCtxKey struct{}

// Middleware picks the request language from ?lang, the lang cookie or
// Accept-Language, in that order, and injects a localizer for it.
// fallback is used when none of them names a supported language.
func Middleware(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var cookie string
			if c, err := r.Cookie(LangCookie); err == nil {
				cookie = c.Value
			}

			tag, ok := Match(r.URL.Query().Get("lang"))
			if ok {
				http.SetCookie(w, &http.Cookie{
					Name:     LangCookie,
					Value:    tag.String(),
					Path:     "/",
					MaxAge:   365 * 24 * 3600,
					SameSite: http.SameSiteLaxMode,
				})
			} else {
				tag, ok = Match(cookie, r.Header.Get("Accept-Language"))
				if !ok {
					tag, _ = Match(fallback)
				}
			}

			ctx := WithLocalizer(r.Context(), NewLocalizer(tag.String()))
			ctx = context.WithValue(ctx, langCtxKey{}, tag)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LanguageFromContext returns the language chosen by Middleware.
func LanguageFromContext(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(langCtxKey{}).(language.Tag); ok {
		return tag
	}
	return defaultLang
}
