package middleware

import "net/http"

// MaxBodyBytes caps request bodies at 10 MB; reading past the cap fails the
// request before a handler can buffer an arbitrary amount.
const MaxBodyBytes = 10 << 20

func LimitRequestBody() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
