package i18n

import "net/http"

// Middleware stores the Accept-Language locale (or ?lang= override) in the request context
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := ParseAcceptLanguage(r.Header.Get("Accept-Language"))
		if lang := r.URL.Query().Get("lang"); isSupported(lang) {
			locale = lang
		}
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), locale)))
	})
}
