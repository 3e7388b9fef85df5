package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"vowcraft/internal/auth"
	"vowcraft/internal/cache"
	"vowcraft/internal/catalog"
	"vowcraft/internal/config"
	"vowcraft/internal/domain/repositories"
	invitationRepo "vowcraft/internal/domain/repositories/invitation"
	"vowcraft/internal/events"
	"vowcraft/internal/handler"
	"vowcraft/internal/metrics"
	"vowcraft/internal/middleware"
	"vowcraft/internal/repository/memory"
	"vowcraft/internal/repository/postgres"
	postgresInvitation "vowcraft/internal/repository/postgres/invitation"
	"vowcraft/internal/service/aiedit"
	serviceAuth "vowcraft/internal/service/auth"
	"vowcraft/internal/service/commit"
	serviceInvitation "vowcraft/internal/service/invitation"
	serviceLLM "vowcraft/internal/service/llm"
	"vowcraft/internal/service/patchengine"
	"vowcraft/internal/service/style"
	serviceTemplate "vowcraft/internal/service/template"
	"vowcraft/internal/telemetry"
)

const version = "0.1.0"

// styleCacheTTL bounds how long resolved styles stay in Redis; entries are
// keyed by version so they are never stale, only unused.
const styleCacheTTL = 24 * time.Hour

type storage struct {
	docs      invitationRepo.DocumentRepository
	branches  invitationRepo.BranchRepository
	editLog   invitationRepo.EditLogRepository
	txManager repositories.TransactionManager
	checks    map[string]handler.Pinger
	close     func()
}

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	var logOutput io.Writer = os.Stdout
	var logFile *config.LogFile
	if cfg.LogDir != "" {
		lf, err := config.SetupLogFile(cfg.LogDir, "vowcraft", cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer lf.Close()
		logFile = lf
		logOutput = io.MultiWriter(os.Stdout, lf)
	}
	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	if logFile != nil {
		logger.Info("logging to file", "path", logFile.Name(), "pruned", len(logFile.Pruned))
		if logFile.PruneErr != nil {
			logger.Warn("failed to prune old log files", "error", logFile.PruneErr)
		}
	}

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
		"version", version,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing {
		tp, err := telemetry.InitTracer("vowcraft", version)
		if err != nil {
			log.Fatalf("Failed to initialize tracing: %v", err)
		}
		defer telemetry.Shutdown(context.Background(), tp, logger)
		logger.Info("tracing enabled", "exporter", "stdout")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Authentication
	jwtVerifier, err := newVerifier(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Persistence
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.close()

	// Resolved-style cache (optional)
	var styleCache style.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(cfg.RedisURL, styleCacheTTL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		styleCache = redisCache
		store.checks["redis"] = redisCache
		logger.Info("style cache enabled", "backend", "redis")
	}

	// Domain events (noop without NATS_URL)
	publisher := events.NewPublisher(cfg.NATSURL, m, logger)
	defer publisher.Close()

	// Template catalog
	templates, err := catalog.Load(cfg.TemplateCatalogPath)
	if err != nil {
		log.Fatalf("Failed to load template catalog: %v", err)
	}
	logger.Info("template catalog loaded", "templates", templates.Len(), "path", cfg.TemplateCatalogPath)

	// Generative model
	completer, model, err := newCompleter(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up LLM provider: %v", err)
	}
	generator := serviceLLM.NewPatchGenerator(completer, model, logger)
	extractor := serviceLLM.NewSignalExtractor(completer, model, logger)

	// Services
	engine := patchengine.New()
	authorizer := serviceAuth.NewOwnerBasedAuthorizer(store.docs, store.branches, store.editLog)
	committer := commit.NewCommitter(engine, store.docs, store.editLog, store.txManager, publisher, m, logger)
	styleService := style.NewService(styleCache, m, logger)

	docService := serviceInvitation.NewDocumentService(store.docs, store.editLog, committer, authorizer, logger)
	branchService := serviceInvitation.NewBranchService(store.branches, store.docs, engine, authorizer, publisher, m, logger)
	aiService := aiedit.NewService(generator, store.docs, committer, authorizer, aiedit.Config{
		Timeout:         cfg.AIEditTimeout,
		ContextMaxBytes: cfg.AIContextMaxBytes,
	}, m, logger)
	templateService := serviceTemplate.NewTemplateService(
		templates,
		serviceTemplate.NewApplier(engine, nil),
		extractor,
		store.docs,
		committer,
		authorizer,
		m,
		logger,
	)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, &handler.Handlers{
		Documents: handler.NewDocumentHandler(docService, styleService, logger),
		AIEdits:   handler.NewAIEditHandler(aiService, logger),
		Templates: handler.NewTemplateHandler(templateService, logger),
		Branches:  handler.NewBranchHandler(branchService, styleService, logger),
		Health:    handler.NewHealthHandler(store.checks, logger),
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	})

	// Build middleware chain
	// Order: CORS → Auth → Recovery → Metrics → Routes
	var h http.Handler = mux
	h = middleware.Metrics(m)(h)
	h = middleware.Recovery(logger)(h)
	h = middleware.AuthMiddleware(jwtVerifier)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AIEditTimeout + 15*time.Second, // AI edits block on the model
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// AI edits run detached from the request context; give them time to commit
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AIEditTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// newVerifier picks the JWKS verifier, or the header-trusting dev verifier when
// no Supabase project is configured in dev.
func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.JWTVerifier, error) {
	if cfg.SupabaseJWKSURL != "" {
		return auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	}
	if cfg.Environment == "dev" {
		return auth.NewDevVerifier(logger), nil
	}
	return nil, errors.New("SUPABASE_URL is required outside dev")
}

// openStorage selects Postgres when DATABASE_URL is set and the in-memory store otherwise.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage (data is lost on restart)")
		return &storage{
			docs:      memory.NewDocumentRepository(),
			branches:  memory.NewBranchRepository(),
			editLog:   memory.NewEditLogRepository(),
			txManager: memory.NewTransactionManager(),
			checks:    map[string]handler.Pinger{},
			close:     func() {},
		}, nil
	}

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.Migrate(ctx, pool, tables); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("database connected", "table_prefix", cfg.TablePrefix)

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	return &storage{
		docs:      postgresInvitation.NewDocumentRepository(repoConfig),
		branches:  postgresInvitation.NewBranchRepository(repoConfig),
		editLog:   postgresInvitation.NewEditLogRepository(repoConfig),
		txManager: postgres.NewTransactionManager(pool, logger),
		checks:    map[string]handler.Pinger{"database": pool},
		close:     pool.Close,
	}, nil
}

// newCompleter builds the configured provider. In dev a missing API key falls
// back to the lorem provider so the server still starts.
func newCompleter(cfg *config.Config, logger *slog.Logger) (serviceLLM.Completer, string, error) {
	info, err := serviceLLM.ResolveModel(cfg.AIProvider, cfg.AIModel)
	if err != nil {
		return nil, "", err
	}

	factory := serviceLLM.NewProviderFactory(cfg.AnthropicAPIKey)
	provider, err := factory.GetProvider(info.Provider)
	if err != nil && cfg.Environment == "dev" && info.Provider != serviceLLM.ProviderLorem {
		logger.Warn("LLM provider unavailable, falling back to lorem", "provider", info.Provider, "error", err)
		info = &serviceLLM.ModelInfo{Provider: serviceLLM.ProviderLorem, Model: "lorem-fast"}
		provider, err = factory.GetProvider(info.Provider)
	}
	if err != nil {
		return nil, "", err
	}

	logger.Info("LLM provider ready", "model", info.String())
	return provider, info.Model, nil
}
