package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopbots/admin-dashboard/internal/auth"
	"github.com/shopbots/admin-dashboard/internal/instrumentation"
	"github.com/shopbots/admin-dashboard/internal/middleware"
	"github.com/shopbots/admin-dashboard/internal/ratelimit"
	"github.com/shopbots/admin-dashboard/internal/telemetry/tracing"
	"github.com/shopbots/admin-dashboard/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

const (
	// SessionCookieName carries the admin session token to the browser.
	SessionCookieName = "adminToken"

	loginRateLimitWindow = 15 * time.Minute
)

// Handler serves the admin API: session lifecycle, bot resources, health
// and the dashboard document itself.
type Handler struct {
	authService    *auth.Service
	instr          *instrumentation.Instrumentation
	environment    string
	staticRootPath string
}

func NewHandler(
	authService *auth.Service,
	instr *instrumentation.Instrumentation,
	environment string,
	staticRootPath string,
) *Handler {
	return &Handler{
		authService:    authService,
		instr:          instr,
		environment:    environment,
		staticRootPath: staticRootPath,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter ratelimit.Limiter,
	loginRateLimitMaxRequests int,
) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET").Name("root")
	mainRouter.HandleFunc("/admin", handler.handleDashboard).Methods("GET").Name("dashboard")
	mainRouter.HandleFunc("/health", handler.handleHealth).Methods("GET").Name("health")

	// OPTIONS stays registered on the api routes so a preflight matches
	// them; the CORS middleware answers it before any handler runs
	apiRouter := mainRouter.PathPrefix("/api/admin").Subrouter()

	// brute force protection: the login endpoint gets its own, much
	// tighter allowance on top of the global limiter
	loginRateLimit := middleware.RateLimit(
		rateLimiter, "login", loginRateLimitMaxRequests, loginRateLimitWindow, handler.instr,
	)
	apiRouter.Handle("/login", loginRateLimit(http.HandlerFunc(handler.handleLogin))).
		Methods("POST", "OPTIONS").Name("login")
	apiRouter.HandleFunc("/logout", handler.handleLogout).Methods("POST", "OPTIONS").Name("logout")
	apiRouter.HandleFunc("/me", handler.handleMe).Methods("GET", "OPTIONS").Name("me")

	botsRouter := apiRouter.PathPrefix("/bots").Subrouter()
	botsRouter.Use(handler.SessionCheck())
	handler.setupBotRoutes(botsRouter)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboardHandler.login")
	defer span.End()

	var creds auth.Credentials
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			log.Errorf("login, unmarshal json params: %s", err)
			pkg.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("login failed, parse form error: %s", err)
			pkg.WriteJSONError(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		creds = auth.Credentials{
			Username: r.Form.Get("username"),
			Password: r.Form.Get("password"),
		}
	}

	token, err := handler.authService.Login(ctx, creds)
	if err != nil {
		if errors.Is(err, auth.ErrWrongCredentials) {
			span.SetStatus(codes.Error, "wrong credentials")
			if handler.instr != nil {
				handler.instr.CounterFailedLogins.Inc()
			}
			pkg.WriteJSONError(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Errorf("login failed, generate token error: %s", err)
		pkg.WriteJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, handler.sessionCookie(token, int(handler.authService.TTL().Seconds())))

	admin := handler.authService.Admin()
	adminJson, err := json.Marshal(admin)
	if err != nil {
		log.Errorf("login, marshal admin: %s", err)
		pkg.WriteJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	log.Tracef("new login success for %s", admin.Username)
	if handler.instr != nil {
		handler.instr.CounterLogins.Inc()
	}
	span.SetStatus(codes.Ok, "login-ok")
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"success":true,"admin":%s,"token":%q}`, adminJson, token))
}

func (handler *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboardHandler.me")
	defer span.End()

	admin, err := handler.authService.Verify(ctx, readSessionToken(r))
	if err != nil {
		span.SetStatus(codes.Error, "not authenticated")
		pkg.WriteJSONError(w, "Not authenticated", http.StatusUnauthorized)
		return
	}

	adminJson, err := json.Marshal(admin)
	if err != nil {
		log.Errorf("session check, marshal admin: %s", err)
		pkg.WriteJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	span.SetStatus(codes.Ok, "ok")
	pkg.WriteJSONResponseOK(w, fmt.Sprintf(`{"admin":%s}`, adminJson))
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboardHandler.logout")
	defer span.End()

	// logout succeeds no matter what the cookie held; a valid token
	// additionally lands on the revocation set
	if token := readSessionToken(r); token != "" {
		if err := handler.authService.Logout(ctx, token); err != nil {
			log.Errorf("logout, revoke session: %s", err)
		}
	}

	http.SetCookie(w, handler.sessionCookie("", -1))

	span.SetStatus(codes.Ok, "logout-ok")
	pkg.WriteJSONResponseOK(w, `{"success":true,"message":"Logged out"}`)
}

// SessionCheck gates a subrouter behind a valid admin session.
func (handler *Handler) SessionCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "dashboardHandler.sessionCheck")
			defer span.End()

			if _, err := handler.authService.Verify(ctx, readSessionToken(r)); err != nil {
				span.SetStatus(codes.Error, "not authenticated")
				pkg.WriteJSONError(w, "Not authenticated", http.StatusUnauthorized)
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (handler *Handler) sessionCookie(token string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   handler.environment == "production",
	}
}

// readSessionToken prefers the session cookie, an Authorization bearer
// header works too for non-browser clients.
func readSessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
