// Command gated serves the book library behind the traffic-control
// middleware: per-route rate limiting and response caching over a
// shared store, with invalidation wired to mutations.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/libshelf/gate/auth"
	"github.com/libshelf/gate/books"
	"github.com/libshelf/gate/health"
	"github.com/libshelf/gate/ratelimit"
	"github.com/libshelf/gate/respcache"
	"github.com/libshelf/gate/store"
	"github.com/libshelf/gate/telemetry"
)

var version = "dev"

func main() {
	var (
		configFlag = flag.String("config", "", "path to config file")
		listenFlag = flag.String("listen", "", "listen address (overrides config)")
	)
	flag.Parse()

	cfg, err := LoadConfig(*configFlag)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	if *listenFlag != "" {
		cfg.Listen = *listenFlag
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		Level(level).
		With().Timestamp().Str("version", version).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("exiting")
	}
}

func run(ctx context.Context, cfg Config, log zerolog.Logger) error {
	checks := health.NewAggregator(5 * time.Second)

	// Shared store backing both the limiter windows and the response
	// cache.
	var st store.Store
	switch cfg.Store.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		defer rdb.Close()

		rs := store.NewRedisStore(rdb)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			return err
		}
		log.Info().Str("addr", cfg.Store.Redis.Addr).Msg("connected to redis")
		st = rs
	default:
		ms := store.NewMemoryStore(store.WithCleanupEvery(time.Duration(cfg.Store.CleanupEvery)))
		ms.StartJanitor(ctx)
		st = ms
	}
	checks.Register(health.StoreCheck(st))

	dbFilename := cfg.Database.Filename
	if dbFilename == "memory" {
		dbFilename = ""
	}
	repo, err := books.OpenRepo(dbFilename)
	if err != nil {
		return err
	}
	defer repo.Close()
	checks.Register(health.DBCheck(repo.DB()))

	observer, err := telemetry.NewObserver(ctx, cfg.telemetryConfig(version))
	if err != nil {
		return err
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observer.Shutdown(shCtx); err != nil {
			log.Warn().Err(err).Msg("telemetry shutdown")
		}
	}()

	traffic, err := telemetry.NewTraffic(observer.Meter())
	if err != nil {
		return err
	}

	limiter := ratelimit.NewLimiter(st, log, ratelimit.WithMetrics(traffic))
	cache := respcache.New(st, log, respcache.WithMetrics(traffic))
	invalidator := respcache.NewInvalidator(st, log)

	verifier := newVerifier(cfg.Auth)
	router := newRouter(routerDeps{
		log:         log,
		repo:        repo,
		limiter:     limiter,
		cache:       cache,
		invalidator: invalidator,
		verifier:    verifier,
		traffic:     traffic,
		tracer:      observer.Tracer(),
		checks:      checks,
		authCfg:     cfg.Auth,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newVerifier(cfg AuthConfig) *auth.JWTVerifier {
	if cfg.JWTSecret == "" {
		return nil
	}
	return auth.NewJWTVerifier(auth.JWTConfig{
		Secret: []byte(cfg.JWTSecret),
		Issuer: cfg.Issuer,
	})
}

type routerDeps struct {
	log         zerolog.Logger
	repo        *books.Repo
	limiter     *ratelimit.Limiter
	cache       *respcache.Cache
	invalidator *respcache.Invalidator
	verifier    *auth.JWTVerifier
	traffic     *telemetry.Traffic
	tracer      trace.Tracer
	checks      *health.Aggregator
	authCfg     AuthConfig
}

// newRouter wires the route policy table: which routes are cached,
// which mutations invalidate which prefixes, and which routes are
// rate limited.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(telemetry.Middleware(d.tracer, d.traffic, d.log))
	if d.verifier != nil {
		r.Use(d.verifier.Middleware())
	}

	h := books.NewHandlers(d.repo, d.log)

	cachedBooksAll := d.cache.Middleware(respcache.Policy{Prefix: "books:all", TTL: 600 * time.Second})
	cachedBooksDetail := d.cache.Middleware(respcache.Policy{Prefix: "books:detail", TTL: 600 * time.Second})
	cachedCategories := d.cache.Middleware(respcache.Policy{Prefix: "categories:all", TTL: 3600 * time.Second})
	purgeBooks := d.invalidator.Middleware("books:all", "books:detail")
	purgeCategories := d.invalidator.Middleware("categories:all", "categories:detail")

	guard := passthrough
	if d.verifier != nil {
		guard = auth.RequireAuth
	}

	r.Route("/books", func(r chi.Router) {
		r.With(cachedBooksAll).Get("/", h.ListBooks)
		r.With(cachedBooksDetail).Get("/{id}", h.GetBook)
		r.With(guard, purgeBooks).Post("/", h.CreateBook)
		r.With(guard, purgeBooks).Put("/{id}", h.UpdateBook)
		r.With(guard, purgeBooks).Delete("/{id}", h.DeleteBook)
	})

	r.Route("/categories", func(r chi.Router) {
		r.With(cachedCategories).Get("/", h.ListCategories)
		r.With(guard, purgeCategories).Post("/", h.CreateCategory)
	})

	// Login and registration belong to the identity service; this
	// process only rate limits them on the way through.
	authProxy := newAuthProxy(d.authCfg.Upstream, d.log)
	r.Route("/auth", func(r chi.Router) {
		r.With(ratelimit.Middleware(d.limiter, ratelimit.Options{
			RouteID: "auth:login",
			Policy:  ratelimit.Policy{MaxRequests: 5, Window: time.Minute},
		})).Post("/login", authProxy)
		r.With(ratelimit.Middleware(d.limiter, ratelimit.Options{
			RouteID: "auth:register",
			Policy:  ratelimit.Policy{MaxRequests: 3, Window: time.Minute},
		})).Post("/register", authProxy)
	})

	admin := newAdminHandlers(d.limiter, d.log)
	r.Route("/admin/ratelimit", func(r chi.Router) {
		r.Use(guard)
		r.Post("/reset", admin.Reset)
		r.Post("/reset-all", admin.ResetAll)
	})

	r.Get("/healthz", health.Handler(d.checks))

	return r
}

func passthrough(next http.Handler) http.Handler { return next }
