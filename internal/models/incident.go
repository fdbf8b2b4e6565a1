package models

import (
	"time"

	"github.com/google/uuid"
)

// StatusActive - статус, с которым создается каждый новый инцидент
const StatusActive = "active"

// Incident - запись об одном зарегистрированном инциденте.
// Имена JSON-полей являются контрактом для дашборда и realtime-клиентов,
// менять их нельзя.
type Incident struct {
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
