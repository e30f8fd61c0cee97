package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/Flarenzy/trials-authorizer/internal/auth"
	appdb "github.com/Flarenzy/trials-authorizer/internal/db"
	apihttp "github.com/Flarenzy/trials-authorizer/internal/http"
	"github.com/Flarenzy/trials-authorizer/internal/metrics"
)

// responseHeadroom is the write budget left after the slowest key fetch.
const responseHeadroom = 3 * time.Second

type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Domain                string
	Issuer                string
	Audience              string
	JWKSURL               string
	Algorithm             string
	CacheTTL              time.Duration
	JWKSRequestsPerMinute int
	FetchTimeout          time.Duration
	ClockSkew             time.Duration

	WebhookSecret string
	DSN           string
	AuditBuffer   int
	LogLevel      slog.Level
}

// LoadConfig reads the environment and exits when it is unusable.
func LoadConfig() Config {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	return cfg
}

func loadConfig(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:                  getenv("PORT"),
		ReadTimeout:           3 * time.Second,
		Domain:                strings.TrimSuffix(getenv("AUTH_DOMAIN"), "/"),
		Issuer:                getenv("AUTH_ISSUER"),
		Audience:              getenv("AUTH_AUDIENCE"),
		JWKSURL:               getenv("AUTH_JWKS_URL"),
		Algorithm:             getenv("AUTH_ALGORITHM"),
		CacheTTL:              10 * time.Minute,
		JWKSRequestsPerMinute: 10,
		FetchTimeout:          5 * time.Second,
		WebhookSecret:         getenv("WEBHOOK_SECRET"),
		DSN:                   getenv("AUDIT_DB_CONN"),
		AuditBuffer:           256,
		LogLevel:              slog.LevelInfo,
	}

	if cfg.Domain == "" && (cfg.Issuer == "" || cfg.JWKSURL == "") {
		return Config{}, errors.New("missing required environment variable: AUTH_DOMAIN")
	}
	if cfg.Audience == "" {
		return Config{}, errors.New("missing required environment variable: AUTH_AUDIENCE")
	}
	if cfg.Port == "" {
		cfg.Port = "4040"
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "https://" + cfg.Domain + "/"
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = "https://" + cfg.Domain + "/.well-known/jwks.json"
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = "RS256"
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"AUTH_CACHE_TTL", &cfg.CacheTTL},
		{"AUTH_FETCH_TIMEOUT", &cfg.FetchTimeout},
		{"AUTH_CLOCK_SKEW", &cfg.ClockSkew},
	}
	for _, d := range durations {
		raw := getenv(d.env)
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", d.env, err)
		}
		*d.dst = v
	}

	cfg.WriteTimeout = cfg.FetchTimeout + responseHeadroom

	if raw := getenv("AUTH_JWKS_REQUESTS_PER_MINUTE"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTH_JWKS_REQUESTS_PER_MINUTE: %w", err)
		}
		cfg.JWKSRequestsPerMinute = v
	}

	if raw := getenv("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks the rules that must hold before anything is started.
func (c Config) Validate() error {
	switch {
	case c.Issuer == "":
		return errors.New("issuer must be configured")
	case c.Audience == "":
		return errors.New("audience must be configured")
	case c.JWKSURL == "":
		return errors.New("jwks url must be configured")
	case c.CacheTTL <= 0:
		return errors.New("AUTH_CACHE_TTL must be positive")
	case c.JWKSRequestsPerMinute <= 0:
		return errors.New("AUTH_JWKS_REQUESTS_PER_MINUTE must be positive")
	case c.FetchTimeout <= 0:
		return errors.New("AUTH_FETCH_TIMEOUT must be positive")
	case c.ClockSkew < 0:
		return errors.New("AUTH_CLOCK_SKEW must not be negative")
	case c.WriteTimeout != 0 && c.WriteTimeout <= c.FetchTimeout:
		return fmt.Errorf("write timeout %s must exceed AUTH_FETCH_TIMEOUT %s", c.WriteTimeout, c.FetchTimeout)
	}
	return nil
}

func Run(ctx context.Context, cfg Config) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	listener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}
	return Serve(ctx, cfg, listener)
}

// Serve wires the authorizer and serves it on listener until ctx is done.
func Serve(ctx context.Context, cfg Config, listener net.Listener) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := slog.Default()

	collector := metrics.NewCollector()
	registry, err := metrics.NewRegistry(collector)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	var (
		health apihttp.HealthChecker
		lister apihttp.DecisionLister
		sink   auth.AuditSink
	)
	if cfg.DSN != "" {
		pool, err := appdb.NewPool(ctx, cfg.DSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := appdb.NewAuditRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		health, lister, sink = pool, repo, repo
	}

	dispatcher := auth.NewAuditDispatcher(sink, logger, cfg.AuditBuffer)
	defer dispatcher.Close()

	authorizer, err := newAuthorizer(cfg, logger, collector, dispatcher)
	if err != nil {
		return err
	}

	api := apihttp.NewAPI(logger, health, authorizer, auth.NewWebhookAuthorizer(cfg.WebhookSecret))
	api.Decisions = lister
	api.Metrics = metrics.Handler(registry)

	server := &http.Server{
		Handler:      api.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving authorizer", "addr", listener.Addr().String(), "issuer", cfg.Issuer, "audience", cfg.Audience)
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// newAuthorizer builds the token pipeline wrapped in its metrics, audit and
// logging decorators, innermost first.
func newAuthorizer(cfg Config, logger *slog.Logger, collector *metrics.Collector, dispatcher *auth.AuditDispatcher) (auth.Authorizer, error) {
	verifier, err := auth.NewVerifier(auth.VerifierConfig{
		Issuer:    cfg.Issuer,
		Audience:  cfg.Audience,
		Algorithm: cfg.Algorithm,
		Leeway:    cfg.ClockSkew,
		Clock:     clock.WallClock,
	})
	if err != nil {
		return nil, fmt.Errorf("configure verifier: %w", err)
	}

	source := auth.NewHTTPKeySource(cfg.JWKSURL, &http.Client{Timeout: cfg.FetchTimeout})
	keys, err := auth.NewKeyStore(metrics.InstrumentKeySource(collector, source), auth.KeyStoreConfig{
		CacheTTL:         cfg.CacheTTL,
		FetchesPerMinute: cfg.JWKSRequestsPerMinute,
		FetchTimeout:     cfg.FetchTimeout,
		Clock:            clock.WallClock,
	})
	if err != nil {
		return nil, fmt.Errorf("configure key store: %w", err)
	}

	authorizer, err := auth.NewTokenAuthorizer(keys, verifier)
	if err != nil {
		return nil, err
	}

	authorizer = metrics.InstrumentAuthorizer(collector, authorizer)
	authorizer = auth.NewAuditingAuthorizer(dispatcher, clock.WallClock, authorizer)
	return auth.NewLoggingAuthorizer(logger, authorizer), nil
}
