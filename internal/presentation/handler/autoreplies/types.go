package autoreplies

import (
	"time"

	"github.com/hilthontt/nodeline/internal/domain"
)

type setAutoReplyRequest struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

type autoReplyResponse struct {
	UserID    string    `json:"userId"`
	Enabled   bool      `json:"enabled"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newAutoReplyResponse(c domain.AutoReplyConfig) autoReplyResponse {
	return autoReplyResponse{
		UserID:    c.UserID,
		Enabled:   c.Enabled,
		Message:   c.Message,
		UpdatedAt: c.UpdatedAt,
	}
}
