package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ideaforge/ideaforge/internal/artifacts"
	"github.com/ideaforge/ideaforge/internal/audit"
	"github.com/ideaforge/ideaforge/internal/blender"
	"github.com/ideaforge/ideaforge/internal/config"
	"github.com/ideaforge/ideaforge/internal/graph"
	"github.com/ideaforge/ideaforge/internal/pipeline"
	"github.com/ideaforge/ideaforge/internal/provider"
	"github.com/ideaforge/ideaforge/internal/sessions"
	"github.com/ideaforge/ideaforge/internal/storage"
	"github.com/ideaforge/ideaforge/internal/zerrors"
)

// AppState holds all application services
type AppState struct {
	Logger         *zap.Logger
	Config         *config.Config
	DB             *bun.DB
	Orchestrator   *pipeline.Orchestrator
	SessionService sessions.SessionManager
	TextClient     provider.TextClient
	Recorder       *audit.Recorder
	TagGraph       *graph.TagGraph
}

func main() {
	// Load configuration
	config.Load()

	// Initialize logger with config
	logger := initLogger()
	logger.Info("Configuration loaded", zap.String("source", "config.Load()"))

	if err := config.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Initialize application state
	as, err := newAppState(logger)
	if err != nil {
		logger.Fatal("Failed to initialize application state", zap.Error(err))
	}

	// Run migrations
	ctx := context.Background()
	if err := storage.Migrate(ctx, as.DB); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Create HTTP server
	router := setupRouter(as)

	addr := fmt.Sprintf("%s:%d", config.Http().Host, config.Http().Port)

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Setup graceful shutdown
	done := setupSignalHandler(as, server, logger)

	// Start server
	logger.Info("Starting IdeaForge server", zap.String("address", addr))

	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	<-done
	logger.Info("Server shutdown complete")
}

// newAppState creates and initializes the application state
func newAppState(logger *zap.Logger) (*AppState, error) {
	pgConfig := config.Postgres()

	logger.Info("Database configuration",
		zap.String("host", pgConfig.Host),
		zap.Int("port", pgConfig.Port),
		zap.String("database", pgConfig.Database),
		zap.String("user", pgConfig.User))

	db, err := storage.NewDB(pgConfig.DSN(), pgConfig.MaxOpenConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Blob storage on disk
	blobStore, err := artifacts.NewDiskStore(config.Assets().BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize assets directory: %w", err)
	}

	// Claude text client
	anthropicConfig := config.Anthropic()
	textClient, err := provider.NewClaudeClient(provider.ClaudeConfig{
		APIKey:      anthropicConfig.GetAPIKey(),
		BaseURL:     anthropicConfig.GetBaseURL(),
		Model:       anthropicConfig.GetModel(),
		MaxTokens:   anthropicConfig.GetMaxTokens(),
		Temperature: anthropicConfig.GetTemperature(),
	}, &http.Client{Timeout: anthropicConfig.GetTimeout()}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create claude client: %w", err)
	}

	// Blender bridge is optional: export endpoints fail with ExportError
	// when it is unavailable, everything else works
	var exporter pipeline.SceneExporter
	blenderConfig := config.Blender()
	if blenderConfig.Enabled {
		bridge, err := blender.NewBridge(blenderConfig.Executable, blenderConfig.GetTimeout(), logger)
		if err != nil {
			logger.Warn("Blender integration unavailable", zap.Error(err))
		} else {
			exporter = bridge
		}
	}

	// Tag graph is optional
	var tagGraph *graph.TagGraph
	var tagSyncer pipeline.TagSyncer
	graphConfig := config.Graph()
	if graphConfig.Enabled {
		tagGraph, err = graph.NewTagGraph(graph.Neo4jConfig{
			URI:      graphConfig.Neo4j.GetURI(),
			Username: graphConfig.Neo4j.GetUsername(),
			Password: graphConfig.Neo4j.GetPassword(),
			Database: graphConfig.Neo4j.GetDatabase(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to tag graph: %w", err)
		}
		tagSyncer = tagGraph
	}

	sessionService := sessions.NewService(sessions.NewPostgresStore(db), logger)
	artifactStore := artifacts.NewPostgresStore(db)
	recorder := audit.NewRecorder(audit.NewPostgresStore(db), logger)

	orchestrator := pipeline.NewOrchestrator(
		sessionService,
		artifactStore,
		blobStore,
		textClient,
		provider.NewLocalSketchRenderer(),
		provider.NewStubMeshGenerator(),
		exporter,
		tagSyncer,
		recorder,
		logger,
	)

	return &AppState{
		Logger:         logger,
		Config:         config.Get(),
		DB:             db,
		Orchestrator:   orchestrator,
		SessionService: sessionService,
		TextClient:     textClient,
		Recorder:       recorder,
		TagGraph:       tagGraph,
	}, nil
}

func initLogger() *zap.Logger {
	logConfig := config.Logger()

	var config zap.Config
	if logConfig.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	// Set log level
	switch logConfig.Level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	return logger
}

// APIKeyMiddleware guards the API when an API key is configured. An
// empty key leaves the API open for single-user local deployments.
func APIKeyMiddleware(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		expectedKey := config.Auth().APIKey
		if expectedKey == "" {
			c.Next()
			return
		}

		if !isValidAPIKey(c.GetHeader("Authorization"), expectedKey) {
			as.Logger.Warn("Unauthorized API access",
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.String("remote_addr", c.Request.RemoteAddr))

			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "API key required",
				"hint":  "Use 'Authorization: Bearer <key>' or 'Authorization: Api-Key <key>' header",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// isValidAPIKey accepts either Bearer or Api-Key format
func isValidAPIKey(authHeader, expectedKey string) bool {
	if authHeader == "" {
		return false
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ") == expectedKey
	}

	if strings.HasPrefix(authHeader, "Api-Key ") {
		return strings.TrimPrefix(authHeader, "Api-Key ") == expectedKey
	}

	return false
}

func setupRouter(as *AppState) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Add CORS middleware
	router.Use(cors.Default())

	// Add logging middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.MaxMultipartMemory = config.Http().MaxRequestSize

	// Health endpoint
	router.GET("/health", func(c *gin.Context) {
		ctx := c.Request.Context()

		if err := as.DB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"timestamp": time.Now().Format(time.RFC3339),
				"error":     err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"services": gin.H{
				"database": "healthy",
			},
		})
	})

	api := router.Group("/api/v1")
	api.Use(APIKeyMiddleware(as))
	{
		sessionRoutes := api.Group("/sessions")
		{
			sessionRoutes.POST("", createSession(as))
			sessionRoutes.GET("", listSessions(as))
			sessionRoutes.GET("/:sessionId", getSession(as))
			sessionRoutes.DELETE("/:sessionId", deleteSession(as))

			sessionRoutes.POST("/:sessionId/sketch", uploadSketch(as))
			sessionRoutes.POST("/:sessionId/image", generateImage(as))
			sessionRoutes.POST("/:sessionId/model", generateModel(as))
			sessionRoutes.POST("/:sessionId/export", exportSession(as))

			sessionRoutes.GET("/:sessionId/artifacts", listArtifacts(as))
			sessionRoutes.GET("/:sessionId/summary", getSummary(as))
			sessionRoutes.GET("/:sessionId/suggestions", getSuggestions(as))
			sessionRoutes.GET("/:sessionId/related", getRelatedSessions(as))
			sessionRoutes.GET("/:sessionId/events", listEvents(as))
		}
	}

	return router
}

func setupSignalHandler(as *AppState, server *http.Server, logger *zap.Logger) chan struct{} {
	done := make(chan struct{}, 1)

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signalCh

		logger.Info("Shutting down server...")

		// Create context with timeout for graceful shutdown
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Shutdown server
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Error during server shutdown", zap.Error(err))
		}

		if as.TagGraph != nil {
			if err := as.TagGraph.Close(ctx); err != nil {
				logger.Error("Error closing tag graph", zap.Error(err))
			}
		}

		if err := as.DB.Close(); err != nil {
			logger.Error("Error closing database", zap.Error(err))
		}

		done <- struct{}{}
	}()

	return done
}

// respondError maps typed errors to their HTTP status
func respondError(c *gin.Context, err error) {
	status := zerrors.HTTPStatus(err)

	var zerr *zerrors.Error
	message := err.Error()
	if errors.As(err, &zerr) {
		message = zerr.Message
	}

	c.JSON(status, gin.H{"error": message})
}

// parseSessionID pulls the session id path parameter; a malformed id
// is answered directly and (uuid.Nil, false) returned
func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("sessionId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

func createSession(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sessions.CreateSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		session, err := as.Orchestrator.CreateSession(c.Request.Context(), &req)
		if err != nil {
			as.Logger.Error("Failed to create session", zap.Error(err))
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, session)
	}
}

func listSessions(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := as.SessionService.ListSessions(c.Request.Context())
		if err != nil {
			as.Logger.Error("Failed to list sessions", zap.Error(err))
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"sessions": list, "count": len(list)})
	}
}

func getSession(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		session, err := as.SessionService.GetSession(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func deleteSession(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		if err := as.Orchestrator.DeleteSession(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Session deleted"})
	}
}

func uploadSketch(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		fileHeader, err := c.FormFile("sketch")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Multipart field 'sketch' is required"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
			return
		}

		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "image/png"
		}

		artifact, err := as.Orchestrator.UploadSketch(c.Request.Context(), id, data, contentType)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, artifact)
	}
}

func generateImage(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		artifact, err := as.Orchestrator.GenerateImage(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, artifact)
	}
}

type generateModelRequest struct {
	Source string `json:"source"`
}

func generateModel(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		var req generateModelRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		var (
			artifact *artifacts.Artifact
			err      error
		)
		switch req.Source {
		case "image":
			artifact, err = as.Orchestrator.GenerateModelFromImage(c.Request.Context(), id)
		case "text":
			artifact, err = as.Orchestrator.GenerateModelFromText(c.Request.Context(), id)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "source must be 'image' or 'text'"})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, artifact)
	}
}

type exportSessionRequest struct {
	Launch bool `json:"launch"`
}

func exportSession(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		var req exportSessionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
				return
			}
		}

		session, err := as.Orchestrator.ExportSession(c.Request.Context(), id, req.Launch)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, session)
	}
}

func listArtifacts(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		// verify the session exists so unknown ids 404 instead of
		// answering an empty list
		if _, err := as.SessionService.GetSession(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}

		list, err := as.Orchestrator.SessionArtifacts(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"artifacts": list, "count": len(list)})
	}
}

func getSummary(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		session, err := as.SessionService.GetSession(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		summary, err := as.TextClient.SummarizeProject(c.Request.Context(),
			session.Concept, session.ProjectType, session.Genre, session.Description)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"session_id": id, "summary": summary})
	}
}

func getSuggestions(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		session, err := as.SessionService.GetSession(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		suggestions, err := as.TextClient.SuggestImprovements(c.Request.Context(),
			session.Concept, session.ProjectType, session.Genre, session.Description)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"session_id": id, "suggestions": suggestions})
	}
}

func getRelatedSessions(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		if as.TagGraph == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "Related session discovery is not enabled"})
			return
		}

		if _, err := as.SessionService.GetSession(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}

		related, err := as.TagGraph.RelatedSessions(c.Request.Context(), id, 10)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"session_id": id, "related": related, "count": len(related)})
	}
}

func listEvents(as *AppState) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseSessionID(c)
		if !ok {
			return
		}

		if _, err := as.SessionService.GetSession(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}

		events, err := as.Recorder.SessionEvents(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		activity, err := as.Recorder.SessionActivity(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"events": events, "activity": activity})
	}
}
