package internal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopbots/admin-dashboard/internal/auth"
	"github.com/shopbots/admin-dashboard/internal/config"
	"github.com/shopbots/admin-dashboard/internal/dashboard"
	"github.com/shopbots/admin-dashboard/internal/instrumentation"
	"github.com/shopbots/admin-dashboard/internal/middleware"
	"github.com/shopbots/admin-dashboard/internal/ratelimit"
	"github.com/shopbots/admin-dashboard/internal/telemetry/tracing"
	"github.com/shopbots/admin-dashboard/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	authService *auth.Service
	rateLimiter ratelimit.Limiter
	redisClient *redis.Client

	instr        *instrumentation.Instrumentation
	promRegistry *prometheus.Registry
	otelShutdown func()
}

type NewServerParams struct {
	Config                  *config.Config
	AdminUsername           string
	AdminPassword           string
	AdminEmail              string
	SessionSecret           string
	RedisPassword           string
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	promRegistry := instrumentation.SetupPrometheus()
	instr := instrumentation.NewInstrumentation("dashboard", "server", promRegistry)
	instr.GaugeLifeSignal.Set(0) // will be set to 1 when all is set and ran

	s := &Server{
		config:       params.Config,
		versionInfo:  params.VersionInfo,
		instr:        instr,
		promRegistry: promRegistry,
	}

	// without a redis host the limiter and the revocation set live in
	// process memory, which is fine for a single instance deployment
	var revoker auth.Revoker
	if params.Config.RedisHost != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})

		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}

		s.redisClient = rdb
		s.rateLimiter = ratelimit.NewRedisLimiter(rdb)
		revoker = auth.NewRedisRevoker(rdb)
	} else {
		memLimiter := ratelimit.NewMemoryLimiter()
		memRevoker := auth.NewMemoryRevoker()
		go func() {
			ticker := time.NewTicker(time.Hour)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					memLimiter.CleanupExpired()
					memRevoker.CleanupExpired()
				}
			}
		}()
		s.rateLimiter = memLimiter
		revoker = memRevoker
	}

	sessionSecret := params.SessionSecret
	if sessionSecret == "" {
		// sessions will not survive a restart, which is acceptable,
		// silently disabled token signing is not
		log.Warnln("session secret not set, using a random one")
		randomSecret, err := pkg.GenerateRandomString(32)
		if err != nil {
			return nil, err
		}
		sessionSecret = randomSecret
	}

	s.authService = auth.NewService(
		auth.Admin{ID: 1, Username: params.AdminUsername, Email: params.AdminEmail},
		params.AdminPassword,
		auth.DefaultTTL,
		[]byte(sessionSecret),
		revoker,
	)

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "admin-dashboard")
	if err != nil {
		return nil, err
	}
	s.otelShutdown = otelShutdown

	return s, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("dashboard-router"))

	r.Use(middleware.PanicRecovery(s.instr, s.config.Environment))
	r.Use(middleware.Compress())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RateLimit(
		s.rateLimiter,
		"global",
		s.config.RateLimitMaxRequests,
		time.Duration(s.config.RateLimitWindowMinutes)*time.Minute,
		s.instr,
	))
	r.Use(middleware.Cors(s.config.CorsOrigin))
	r.Use(middleware.LimitRequestBody())
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.instr))
	r.Use(middleware.DrainAndCloseRequest())

	dashboardHandler := dashboard.NewHandler(
		s.authService,
		s.instr,
		s.config.Environment,
		s.config.StaticRootPath,
	)
	dashboardHandler.SetupRoutes(r, s.rateLimiter, s.config.LoginRateLimitMaxRequests)

	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", assetServer(s.config.StaticRootPath)),
	).Name("static")
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", assetServer(s.config.UploadsRootPath)),
	).Name("uploads")

	// all the rest - unhandled paths; a terminal catch-all route instead
	// of mux.NotFoundHandler, so the middleware chain still applies
	r.PathPrefix("/").HandlerFunc(routeNotFound).Name("unknown")

	return r
}

func routeNotFound(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteJSONError(w, "Route not found", http.StatusNotFound)
}

// assetServer serves regular files under root; a miss or a directory hit
// gets the same not-found envelope as any other unmatched route.
func assetServer(root string) http.Handler {
	fileServer := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Join(root, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
		info, err := os.Stat(name)
		if err != nil || info.IsDir() {
			routeNotFound(w, r)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func (s *Server) Serve(_ context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("dashboard service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.instr.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.instr.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.instr.GaugeRequests.Add(1)
	case http.StateClosed:
		s.instr.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
