package app

import (
	"context"
	"fmt"

	"github.com/veriscope/veriscope/internal/analysis"
	"github.com/veriscope/veriscope/internal/auth"
	"github.com/veriscope/veriscope/internal/cache"
	"github.com/veriscope/veriscope/internal/classifier"
	"github.com/veriscope/veriscope/internal/config"
	"github.com/veriscope/veriscope/internal/database"
	"github.com/veriscope/veriscope/internal/decision"
	"github.com/veriscope/veriscope/internal/explain"
	"github.com/veriscope/veriscope/internal/facegate"
	"github.com/veriscope/veriscope/internal/genai"
	"github.com/veriscope/veriscope/internal/httpapi"
	"github.com/veriscope/veriscope/internal/logging"
	"github.com/veriscope/veriscope/internal/ratelimit"
	"github.com/veriscope/veriscope/internal/storage"
)

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Logger         *logging.Logger
	Cache          cache.Cache
	AnalysisSvc    *analysis.Service
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	HTTPServer     *httpapi.Server
	db             *database.DB
	caseStore      *database.CaseStore
	mediaStore     *database.MediaStore
	analysisStore  *database.AnalysisStore
	objects        storage.ObjectStore
	triggerLimiter ratelimit.Limiter
}

// New creates and initializes a new App instance
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// Initialize logger
	app.Logger = app.initLogger()

	// Initialize cache and the trigger rate limiter that rides on it
	app.Cache = app.initCache()

	// Initialize object storage
	objects, err := app.initStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	app.objects = objects

	// Initialize database stores. The pipeline records every outcome in
	// PostgreSQL, so unlike the cache there is no degraded fallback here.
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	// Initialize the analysis pipeline
	if err := app.initAnalysis(ctx); err != nil {
		return nil, err
	}

	// Initialize auth
	app.AuthService = auth.NewService(cfg.Auth, app.Logger)
	app.AuthMiddleware = auth.NewMiddleware(app.AuthService)

	// Initialize HTTP server
	app.initServer()

	return app, nil
}

// Run starts the HTTP server
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))
	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initLogger() *logging.Logger {
	level := logging.LevelInfo
	switch a.Config.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(level)
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   a.Config.Cache.RedisAddr,
			Prefix: "veriscope:",
		}, a.Config.Cache.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			a.triggerLimiter = ratelimit.New(a.Config.Server.TriggerRateLimit)
			return cache.NewMemory(a.Config.Cache.TTL)
		}
		// Use Redis for distributed rate limiting when available
		a.triggerLimiter = ratelimit.NewRedis(redisCache.Client(), "veriscope:ratelimit:trigger:", a.Config.Server.TriggerRateLimit)
		a.Logger.Info("Using Redis for distributed rate limiting")
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		a.triggerLimiter = ratelimit.New(a.Config.Server.TriggerRateLimit)
		return cache.NewMemory(a.Config.Cache.TTL)
	}
}

func (a *App) initStorage(ctx context.Context) (storage.ObjectStore, error) {
	switch a.Config.Storage.Backend {
	case "s3":
		a.Logger.Info("Using S3 object storage", logging.WithFields(map[string]interface{}{
			"bucket": a.Config.Storage.S3Bucket,
			"region": a.Config.Storage.S3Region,
		})...)
		return storage.NewS3Store(ctx, a.Config.Storage.S3Region, a.Config.Storage.S3Bucket)
	default:
		a.Logger.Info("Using local object storage", logging.WithField("dir", a.Config.Storage.LocalDir))
		return storage.NewLocalStore(a.Config.Storage.LocalDir)
	}
}

func (a *App) initDatabase(ctx context.Context) error {
	db, err := database.New(database.Config{
		Host:     a.Config.Database.Host,
		Port:     a.Config.Database.Port,
		User:     a.Config.Database.User,
		Password: a.Config.Database.Password,
		Database: a.Config.Database.Database,
		SSLMode:  a.Config.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	a.Logger.Info("Connected to PostgreSQL")
	a.db = db
	a.caseStore = database.NewCaseStore(db)
	a.mediaStore = database.NewMediaStore(db)
	a.analysisStore = database.NewAnalysisStore(db)
	return nil
}

func (a *App) initAnalysis(ctx context.Context) error {
	vision := genai.New(genai.Config{
		Endpoint: a.Config.Vision.Endpoint,
		APIKey:   a.Config.Vision.APIKey,
		Model:    a.Config.Vision.Model,
		Timeout:  a.Config.Vision.Timeout,
	})

	faces, err := a.initFaceGate(ctx, vision)
	if err != nil {
		return err
	}

	classifiers := a.initClassifiers()
	if len(classifiers) == 0 {
		a.Logger.Warn("No classifier adapters configured, analysis triggers will fail")
	}

	a.AnalysisSvc = analysis.NewService(analysis.Config{
		Fetcher:     storage.NewFetcher(a.objects, a.Logger),
		Faces:       faces,
		Classifiers: classifiers,
		Engine:      decision.NewEngine(a.thresholds()),
		Explainer:   explain.NewVisionGenerator(vision),
		Writer:      a.analysisStore,
		StatusCache: a.Cache,
		Logger:      a.Logger,
	})
	return nil
}

func (a *App) initFaceGate(ctx context.Context, vision *genai.Client) (facegate.Detector, error) {
	switch a.Config.FaceGate.Provider {
	case "rekognition":
		a.Logger.Info("Using Rekognition face detection", logging.WithField("region", a.Config.FaceGate.AWSRegion))
		detector, err := facegate.NewRekognitionDetector(ctx, a.Config.FaceGate.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Rekognition: %w", err)
		}
		return detector, nil
	case "off":
		a.Logger.Warn("Face detection disabled, image analyses will report uncertain")
		return nil, nil
	default:
		a.Logger.Info("Using vision model face detection")
		return facegate.NewVisionDetector(vision, a.Logger), nil
	}
}

func (a *App) initClassifiers() []classifier.Classifier {
	var classifiers []classifier.Classifier

	if c := a.Config.Classifiers.Primary; c.Configured() {
		classifiers = append(classifiers, a.buildClassifier("primary", c))
	}
	if c := a.Config.Classifiers.Fallback; c.Configured() {
		classifiers = append(classifiers, a.buildClassifier("fallback", c))
	}

	a.Logger.Info("Configured classifier adapters", logging.WithField("count", len(classifiers)))
	return classifiers
}

func (a *App) buildClassifier(name string, cfg config.ClassifierConfig) classifier.Classifier {
	if cfg.Kind == "polling" {
		return classifier.NewPollingHTTP(classifier.PollingHTTPConfig{
			Name:            name,
			BaseURL:         cfg.Endpoint,
			APIKey:          cfg.APIKey,
			RequestTimeout:  cfg.Timeout,
			PollInterval:    cfg.PollInterval,
			MaxPollAttempts: cfg.MaxPollAttempts,
		})
	}
	return classifier.NewSyncHTTP(classifier.SyncHTTPConfig{
		Name:     name,
		Endpoint: cfg.Endpoint,
		APIKey:   cfg.APIKey,
		Timeout:  cfg.Timeout,
	})
}

// thresholds merges configured overrides over the default decision policy.
func (a *App) thresholds() decision.Thresholds {
	t := decision.DefaultThresholds()
	cfg := a.Config.Thresholds
	if cfg.Fake > 0 {
		t.Fake = cfg.Fake
	}
	if cfg.LikelyFake > 0 {
		t.LikelyFake = cfg.LikelyFake
	}
	if cfg.Suspicious > 0 {
		t.Suspicious = cfg.Suspicious
	}
	if cfg.LikelyAuthentic > 0 {
		t.LikelyAuthentic = cfg.LikelyAuthentic
	}
	if cfg.FrameFakeRatio > 0 {
		t.FrameFakeRatio = cfg.FrameFakeRatio
	}
	return t
}

func (a *App) initServer() {
	caseAPI := httpapi.NewCaseAPI(a.caseStore, a.mediaStore, a.objects, a.AuthMiddleware, a.Logger)
	mediaAPI := httpapi.NewMediaAPI(a.mediaStore, a.caseStore, a.analysisStore, a.objects, a.Cache, a.AuthMiddleware, a.Config.Storage.MaxUploadBytes, a.Logger)
	analysisAPI := httpapi.NewAnalysisAPI(a.AnalysisSvc, a.mediaStore, a.analysisStore, a.triggerLimiter, a.AuthMiddleware, a.Logger)

	a.HTTPServer = httpapi.New(caseAPI, mediaAPI, analysisAPI, a.AuthMiddleware, a.Logger)
}
