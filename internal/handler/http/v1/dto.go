package v1

import (
	"time"

	"github.com/google/uuid"
)

// IncidentResponse DTO для ответа с информацией об инциденте.
// Имена полей - контракт совместимости для клиентов HTTP и realtime API.
// @Description DTO для ответа с информацией об инциденте
type IncidentResponse struct {
	ID                uuid.UUID  `json:"id"`
	ReporterID        int64      `json:"reporter_id"`
	ReporterName      string     `json:"reporter_name"`
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	Status            string     `json:"status"`
	TelegramMessageID int        `json:"telegram_message_id"`
	TelegramChatID    int64      `json:"telegram_chat_id"`
	Timestamp         time.Time  `json:"timestamp"`
	LastUpdated       *time.Time `json:"last_updated,omitempty"`
}
