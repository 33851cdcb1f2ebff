package auth

import (
	"github.com/forestlens/mspo-maps/internal/db"
	"github.com/forestlens/mspo-maps/internal/utils"
)

// SessionInfo resolves session cookies against app_auth.sessions.
type SessionInfo struct{}

func (si SessionInfo) FindSessionByID(id string) (utils.SessionData, error) {
	var session Session

	err := db.DB.First(&session, "session_id = ?", id).Error
	if err != nil {
		return utils.SessionData{}, err
	}

	return utils.SessionData{
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}
