package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"inspection-service/internal/capture"
	"inspection-service/internal/config"
	httphandler "inspection-service/internal/http"
	"inspection-service/internal/recognition"
	"inspection-service/internal/repository"
	"inspection-service/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default ./config.*)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recognizer, err := newRecognizer(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init plate recognition")
	}

	hub := httphandler.NewEventHub(log)
	go hub.Run(ctx)

	repo := repository.NewSessionRepository(nil)
	svc := service.NewInspectionService(repo, cfg.SiteList(), service.Collaborators{
		Decoder:     capture.NewDecoder(cfg.Capture.MaxUploadBytes),
		Camera:      capture.NewHTTPCamera(cfg.Capture.CameraTimeout, cfg.Capture.MaxUploadBytes),
		Recognizer:  recognizer,
		Publisher:   hub,
		CompanyName: cfg.Export.CompanyName,
	}, log)

	go cleanupLoop(ctx, svc, cfg.Session.IdleTTL, cfg.Session.CleanupInterval)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), httphandler.RequestLogger(log))
	router.Use(cors.New(corsConfig(cfg.HTTP.AllowedOrigins)))
	router.MaxMultipartMemory = cfg.Capture.MaxUploadBytes

	httphandler.NewHandler(svc, hub, log).Register(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Int("port", cfg.HTTP.Port).
			Int("sites", len(cfg.Sites)).
			Str("recognition", cfg.Recognition.Provider).
			Msg("inspection service started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var log zerolog.Logger
	if cfg.IsDevelopment() {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stdout)
	}
	return log.Level(level).With().Timestamp().Str("service", "inspection-service").Logger()
}

func newRecognizer(ctx context.Context, cfg *config.Config, log zerolog.Logger) (recognition.Recognizer, error) {
	switch cfg.Recognition.Provider {
	case config.ProviderPlateRecognizer:
		return recognition.NewPlateRecognizerClient(cfg.Recognition.PlateRecognizer, log), nil
	case config.ProviderRekognition:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Recognition.Rekognition.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := rekognition.NewFromConfig(awsCfg)
		return recognition.NewRekognitionRecognizer(client, cfg.Recognition.Rekognition.MinConfidence, log), nil
	default:
		log.Warn().Msg("plate recognition disabled")
		return recognition.Disabled{}, nil
	}
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	c.ExposeHeaders = []string{"Content-Disposition"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func cleanupLoop(ctx context.Context, svc *service.InspectionService, ttl, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.CleanupIdleSessions(ctx, ttl)
		}
	}
}
