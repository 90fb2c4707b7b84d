package route

import (
	"net/http"

	"pantryscan/internal/config"
	"pantryscan/internal/dictionary"
	"pantryscan/internal/handler"
	"pantryscan/internal/logger"
	"pantryscan/internal/middleware"
)

var logLevels = []string{logger.LevelInfo, logger.LevelWarning, logger.LevelError}

// Services are the collaborators the HTTP surface talks to.
type Services struct {
	Session        handler.SessionController
	Hub            handler.ViewerHub
	Scanner        handler.ReceiptScanner
	Dictionary     *dictionary.Store
	LoadDictionary func() (*dictionary.Dictionary, error)
}

// SetupRoutes registers the session, receipt, dictionary, log and auth
// endpoints and wraps the mux with the authentication middleware.
func SetupRoutes(svc Services, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Session commands
	mux.HandleFunc("/api/session", handler.SessionStatusHandler(svc.Session))
	mux.HandleFunc("/api/session/start", handler.StartSessionHandler(svc.Session, logger))
	mux.HandleFunc("/api/session/stop", handler.StopSessionHandler(svc.Session, logger))
	mux.HandleFunc("/api/session/reset", handler.ResetSessionHandler(svc.Session, logger))
	mux.HandleFunc("/api/session/restart", handler.RestartSessionHandler(svc.Session, logger))
	mux.HandleFunc("/api/session/ws", handler.SessionWebsocketHandler(svc.Hub, logger))

	// Receipts
	mux.HandleFunc("/api/receipt", handler.ScanReceiptHandler(svc.Scanner, logger))
	mux.HandleFunc("/api/receipt/match", handler.MatchReceiptHandler(svc.Scanner))

	// Dictionary
	mux.HandleFunc("/api/dictionary", handler.DictionaryHandler(svc.Dictionary, cfg.DictionarySource))
	mux.HandleFunc("/api/dictionary/reload", handler.ReloadDictionaryHandler(svc.Dictionary, cfg.DictionarySource, svc.LoadDictionary, logger))

	// Log endpoints
	for _, level := range logLevels {
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(logger, level))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(logger, level))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	return middleware.AuthMiddleware(mux)
}
