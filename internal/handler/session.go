package handler

import (
	"context"
	"errors"
	"net/http"

	"pantryscan/internal/dto"
	"pantryscan/internal/logger"
	"pantryscan/internal/service/capture"
)

// SessionController is the command surface of a capture session.
type SessionController interface {
	Start(ctx context.Context) error
	Stop() error
	Reset()
	Restart(ctx context.Context) error
	Snapshot() capture.Update
	Stats() capture.Stats
}

func sessionView(session SessionController) dto.SessionView {
	return dto.NewSessionView(session.Snapshot(), session.Stats())
}

// SessionStatusHandler handles GET /api/session.
func SessionStatusHandler(session SessionController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, sessionView(session))
	}
}

// StartSessionHandler handles POST /api/session/start.
func StartSessionHandler(session SessionController, logger *logger.Logger) http.HandlerFunc {
	return sessionCommand(session, logger, "start", func(ctx context.Context) error {
		return session.Start(ctx)
	})
}

// StopSessionHandler handles POST /api/session/stop.
func StopSessionHandler(session SessionController, logger *logger.Logger) http.HandlerFunc {
	return sessionCommand(session, logger, "stop", func(context.Context) error {
		return session.Stop()
	})
}

// ResetSessionHandler handles POST /api/session/reset.
func ResetSessionHandler(session SessionController, logger *logger.Logger) http.HandlerFunc {
	return sessionCommand(session, logger, "reset", func(context.Context) error {
		session.Reset()
		return nil
	})
}

// RestartSessionHandler handles POST /api/session/restart.
func RestartSessionHandler(session SessionController, logger *logger.Logger) http.HandlerFunc {
	return sessionCommand(session, logger, "restart", func(ctx context.Context) error {
		return session.Restart(ctx)
	})
}

// sessionCommand runs one command and replies with the resulting session view.
func sessionCommand(session SessionController, logger *logger.Logger, name string, command func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := command(r.Context()); err != nil {
			logger.Error("Session %s failed: %v", name, err)
			status := http.StatusInternalServerError
			if errors.Is(err, capture.ErrCaptureUnavailable) {
				status = http.StatusServiceUnavailable
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, sessionView(session))
	}
}
