package dashboard

import (
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/shopbots/admin-dashboard/pkg"
)

const serviceName = "admin-dashboard"

func (handler *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/admin", http.StatusFound)
}

// handleDashboard serves the single page application entry document, the
// bundle itself comes through /static/.
func (handler *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(handler.staticRootPath, "index.html"))
}

// handleHealth answers uptime monitors, never authenticated.
func (handler *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(
		`{"status":"ok","timestamp":%q,"service":%q,"environment":%q}`,
		time.Now().UTC().Format(time.RFC3339),
		serviceName,
		handler.environment,
	))
}
