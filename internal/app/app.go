package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"pantryscan/internal/config"
	"pantryscan/internal/dictionary"
	"pantryscan/internal/logger"
	"pantryscan/internal/repository/sqlite"
	"pantryscan/internal/route"
	"pantryscan/internal/service/ai"
	"pantryscan/internal/service/camera"
	"pantryscan/internal/service/capture"
	"pantryscan/internal/service/ocr"
	"pantryscan/internal/service/receipt"
	"pantryscan/internal/service/udpcam"
	"pantryscan/internal/service/websocket"
)

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	dictionary *dictionary.Store
	loadDict   func() (*dictionary.Dictionary, error)
	classifier *ai.Classifier
	session    *capture.Controller
	hub        *websocket.Hub
	scanner    *receipt.Scanner
}

func NewApp(cfg *config.Config) (*App, error) {
	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, err
	}
	a := &App{config: cfg, logger: log}

	if err := a.setupDictionary(); err != nil {
		a.Close()
		return nil, err
	}

	classifier, err := ai.NewClassifier(cfg, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load classifier: %w", err)
	}
	a.classifier = classifier

	var source capture.FrameSource
	switch cfg.CaptureSource {
	case "udp":
		source = udpcam.NewSource(cfg.CamerasPort, log)
	default:
		source = camera.NewDeviceSource(cfg, log)
	}

	a.session = capture.NewController(source, classifier, capture.Config{Threshold: cfg.ConfidenceThreshold}, log)
	a.hub = websocket.NewHub(log)
	a.scanner = receipt.NewScanner(ocr.NewTesseractEngine(cfg.OCRLanguages), a.dictionary, log)

	return a, nil
}

// setupDictionary picks the configured dictionary source and performs the
// first load. A failed first load leaves an empty dictionary installed.
func (a *App) setupDictionary() error {
	cfg := a.config

	switch cfg.DictionarySource {
	case "file":
		a.loadDict = func() (*dictionary.Dictionary, error) {
			return dictionary.LoadFile(cfg.DictionaryPath)
		}
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		db, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		a.db = db
		repo := sqlite.NewIngredientRepository(db)
		a.loadDict = func() (*dictionary.Dictionary, error) {
			return dictionary.LoadRepository(repo)
		}
	default:
		a.loadDict = dictionary.LoadEmbedded
	}

	a.dictionary = dictionary.NewStore(nil)
	if err := a.dictionary.Reload(a.loadDict); err != nil {
		a.logger.Error("Dictionary load from %s failed, starting empty: %v", cfg.DictionarySource, err)
		return nil
	}
	a.logger.Info("Dictionary loaded from %s: %d entries", cfg.DictionarySource, a.dictionary.Current().Len())
	return nil
}

// Run serves HTTP until ctx is cancelled, then stops the session and the hub.
func (a *App) Run(ctx context.Context) error {
	go a.hub.Run()

	updates, unsubscribe := a.session.Subscribe(a.config.UpdateBuffer)
	go a.hub.Forward(updates)

	router := route.SetupRoutes(route.Services{
		Session:        a.session,
		Hub:            a.hub,
		Scanner:        a.scanner,
		Dictionary:     a.dictionary,
		LoadDictionary: a.loadDict,
	}, a.config, a.logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("Pantry scan server listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Capture source: %s, model: %s, threshold %.2f", a.config.CaptureSource, a.config.ModelPath, a.config.ConfidenceThreshold)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = server.Shutdown(shutdownCtx)
		cancel()
	}

	unsubscribe()
	if stopErr := a.session.Stop(); stopErr != nil {
		a.logger.Error("Failed to stop session: %v", stopErr)
	}
	a.hub.Stop()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close releases everything NewApp acquired.
func (a *App) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.classifier != nil {
		a.classifier.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	a.logger.Close()
}
