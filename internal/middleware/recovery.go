package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/shopbots/admin-dashboard/internal/instrumentation"
	"github.com/shopbots/admin-dashboard/pkg"

	log "github.com/sirupsen/logrus"
)

// PanicRecovery is the structured error responder: an unhandled failure
// anywhere below it becomes a logged 500. The failure detail reaches the
// client only outside production.
func PanicRecovery(instr *instrumentation.Instrumentation, environment string) func(next http.Handler) http.Handler {
	isProduction := environment == "production"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(respWriter http.ResponseWriter, req *http.Request) {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("http: panic serving %s: %v\n%s", req.URL.Path, r, debug.Stack())
					if instr != nil {
						instr.CounterHandleRequestPanic.Inc()
					}

					errMessage := "Internal server error"
					if !isProduction {
						errMessage = fmt.Sprintf("%v", r)
					}
					pkg.WriteJSONError(respWriter, errMessage, http.StatusInternalServerError)
				}
			}()

			// handler call
			next.ServeHTTP(respWriter, req)
		})
	}
}
