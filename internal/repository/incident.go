package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shenikar/incident_relay_system/internal/models"
	"github.com/shenikar/incident_relay_system/internal/service"
)

const incidentColumns = `
	id,
	reporter_id,
	reporter_name,
	latitude,
	longitude,
	status,
	telegram_message_id,
	telegram_chat_id,
	created_at,
	last_updated`

type IncidentRepository struct {
	db *pgxpool.Pool
}

func NewIncidentRepository(db *pgxpool.Pool) service.IncidentRepository {
	return &IncidentRepository{db: db}
}

// Create создает новую запись об инциденте в бд.
// id и created_at присваивает бэкенд.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (reporter_id, reporter_name, latitude, longitude, status, telegram_message_id, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.ReporterID,
		incident.ReporterName,
		incident.Latitude,
		incident.Longitude,
		incident.Status,
		incident.TelegramMessageID,
		incident.TelegramChatID,
	).Scan(&incident.ID, &incident.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID возвращает инцидент по его UUID
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// FindByChannelMessage разрешает действие из группы обратно в запись
// по паре (chat, message). Поиск идет по уникальному индексу
// idx_incidents_channel_message, не линейным сканом.
func (r *IncidentRepository) FindByChannelMessage(ctx context.Context, chatID int64, messageID int) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE telegram_chat_id = $1 AND telegram_message_id = $2;`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, chatID, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to find incident by channel message: %w", err)
	}
	return incident, nil
}

// UpdateStatus сохраняет новый статус. last_updated всегда проставляет
// бэкенд, значение от вызывающего не принимается.
func (r *IncidentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Incident, error) {
	query := `
		UPDATE incidents SET
			status = $1,
			last_updated = NOW()
		WHERE id = $2
		RETURNING ` + incidentColumns + `;
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, status, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to update incident status: %w", err)
	}
	return incident, nil
}

// Delete жестко удаляет запись. Возвращает true, только если запись
// существовала и была удалена.
func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1;`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete incident: %w", err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

// ListAll возвращает полный снимок без пагинации: операционный объем
// инцидентов ограничен, снимок нужен целиком для первичной синхронизации
// дашборда и poll-сверки
func (r *IncidentRepository) ListAll(ctx context.Context) ([]*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY created_at DESC;`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error list iteration: %w", err)
	}
	return incidents, nil
}

func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.ReporterID,
		&incident.ReporterName,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Status,
		&incident.TelegramMessageID,
		&incident.TelegramChatID,
		&incident.Timestamp,
		&incident.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}
