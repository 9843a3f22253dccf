package middleware

import (
	"io"
	"net/http"
)

// DrainAndCloseRequest finishes every request body once the handler is done
// with it. Leftover unread bytes would prevent keep-alive connection reuse.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			if r.Body == nil {
				return
			}
			_, _ = io.Copy(io.Discard, r.Body)
			_ = r.Body.Close()
		})
	}
}
