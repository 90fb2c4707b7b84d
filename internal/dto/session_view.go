package dto

import "pantryscan/internal/service/capture"

// SessionView is the payload of GET /api/session and every session command.
type SessionView struct {
	SessionID string        `json:"session_id,omitempty"`
	State     capture.State `json:"state"`
	Items     []string      `json:"items"`
	Version   uint64        `json:"version"`
	Stats     capture.Stats `json:"stats"`
}

// NewSessionView combines a snapshot with the counters of its run.
func NewSessionView(update capture.Update, stats capture.Stats) SessionView {
	items := update.Items
	if items == nil {
		items = []string{}
	}
	return SessionView{
		SessionID: update.SessionID,
		State:     update.State,
		Items:     items,
		Version:   update.Version,
		Stats:     stats,
	}
}
