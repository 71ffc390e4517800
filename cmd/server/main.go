package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"communityd/internal/abuse"
	"communityd/internal/adminauth"
	"communityd/internal/database/sqlitestore"
	"communityd/internal/handlers"
	"communityd/internal/kvstore"
	"communityd/internal/metrics"
	"communityd/internal/routing"
	"communityd/internal/tracing"
	"communityd/internal/turnstile"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load()

	// Configure zerolog
	// Set log level from environment (default: info)
	logLevel := os.Getenv("LOG_LEVEL")
	switch logLevel {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info", "":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Use pretty console logging in development, JSON in production
	if os.Getenv("LOG_FORMAT") == "json" {
		// Production: JSON logs
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Development: pretty console logs
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	log.Info().Msg("Starting community backend")

	ctx := context.Background()

	// Tracing is opt-in: only started when an OTLP endpoint is configured
	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" {
		tp, err := tracing.Init(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize tracing")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
		log.Info().Msg("Tracing initialized")
	}

	// Get port from env or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "18920"
	}

	// Moderated content lives in SQLite
	dbPath := os.Getenv("COMMUNITY_DB_PATH")
	if dbPath == "" {
		// Default to XDG data directory or home directory for development
		dataDir := os.Getenv("XDG_DATA_HOME")
		if dataDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to get home directory")
			}
			dataDir = filepath.Join(home, ".local", "share")
		}
		dbPath = filepath.Join(dataDir, "communityd", "community.db")
	}

	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", dbPath).Msg("Failed to open database")
	}
	defer store.Close()
	log.Info().Str("path", dbPath).Msg("Database opened")

	// Abuse-control KV: Redis when available (required for multi-instance
	// deployments), a durable Bolt file when configured, otherwise an
	// in-process map. The fallbacks enforce per-instance only.
	kv := openKV(ctx)
	defer kv.Close()

	// Admin sessions: the signing secret falls back to the password
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	sessionSecret := os.Getenv("ADMIN_SESSION_SECRET")
	secureCookies := os.Getenv("SECURE_COOKIES") == "true"
	auth := adminauth.New(adminPassword, sessionSecret, secureCookies)
	if !auth.Configured() {
		log.Warn().Msg("ADMIN_PASSWORD not set; admin endpoints are disabled")
	}

	// Bot challenge verification
	turnstileSecret := os.Getenv("TURNSTILE_SECRET_KEY")
	verifier := turnstile.NewVerifier(turnstileSecret)
	if turnstileSecret == "" {
		log.Warn().Msg("TURNSTILE_SECRET_KEY not set; all public submissions will be rejected")
	}

	// Background gauge updates for the moderation queue depth
	collectorCtx, stopCollector := context.WithCancel(ctx)
	defer stopCollector()
	metrics.StartCollector(collectorCtx, queueStats{store: store}, 30*time.Second)

	// Initialize handlers with all dependencies via constructor injection
	h := handlers.NewHandler(
		store,
		verifier,
		abuse.NewLimiter(kv),
		abuse.NewDetector(kv),
		auth,
		handlers.Config{
			SecureCookies: secureCookies,
		},
	)

	// Setup router with middleware
	handler := routing.SetupRouter(routing.Config{
		Handlers: h,
		Logger:   log.Logger,
	})

	// Start HTTP server
	log.Info().
		Str("address", "0.0.0.0:"+port).
		Bool("secure_cookies", secureCookies).
		Str("database", dbPath).
		Msg("Starting HTTP server")

	if err := http.ListenAndServe("0.0.0.0:"+port, handler); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}
}

// openKV selects the abuse-control KV backend from the environment.
func openKV(ctx context.Context) kvstore.Store {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisDB := 0
		if v := os.Getenv("REDIS_DB"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				log.Fatal().Str("value", v).Msg("REDIS_DB must be an integer")
			}
			redisDB = n
		}
		kv, err := kvstore.OpenRedis(ctx, kvstore.RedisOptions{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		})
		if err != nil {
			log.Fatal().Err(err).Str("addr", addr).Msg("Failed to connect to Redis")
		}
		log.Info().Str("addr", addr).Msg("Using Redis for abuse-control state")
		return kv
	}

	if path := os.Getenv("ABUSE_KV_DB_PATH"); path != "" {
		kv, err := kvstore.OpenBolt(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("Failed to open abuse KV database")
		}
		log.Info().Str("path", path).Msg("Using Bolt for abuse-control state (single instance only)")
		return kv
	}

	log.Info().Msg("Using in-memory abuse-control state (single instance only, lost on restart)")
	return kvstore.NewMemoryStore()
}

// queueStats adapts the community store to the metrics collector.
type queueStats struct {
	store *sqlitestore.CommunityStore
}

func (q queueStats) PendingCounts(ctx context.Context) (posts, comments, asks int, err error) {
	queue, err := q.store.PendingQueue(ctx, 1, 1)
	if err != nil {
		return 0, 0, 0, err
	}
	return queue.Posts.Total, queue.Comments.Total, queue.Asks.Total, nil
}
