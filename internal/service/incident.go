package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/incident_relay_system/internal/config"
	"github.com/shenikar/incident_relay_system/internal/models"
	"github.com/sirupsen/logrus"
)

// Identity - платформенный идентификатор и отображаемое имя
// репортера либо оператора, нажавшего кнопку
type Identity struct {
	ID   int64
	Name string
}

// IncidentRepository определяет контракт для работы с хранилищем инцидентов
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	FindByChannelMessage(ctx context.Context, chatID int64, messageID int) (*models.Incident, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*models.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ListAll(ctx context.Context) ([]*models.Incident, error)
}

// TelegramClient определяет контракт мессенджер-границы, потребляемой координатором.
// Реализация живет в internal/telegram и не содержит бизнес-логики.
type TelegramClient interface {
	SendLocation(ctx context.Context, chatID int64, lat, lon float64) error
	SendIncidentMessage(ctx context.Context, chatID int64, reporter Identity, lat, lon float64) (int, error)
	EditIncidentMessage(ctx context.Context, incident *models.Incident, newStatus string, actor Identity, removeKeyboard bool) error
	SendPrivate(ctx context.Context, userID int64, text string) error
}

// IncidentService определяет контракт координатора жизненного цикла инцидентов
type IncidentService interface {
	IngestReport(ctx context.Context, reporter Identity, lat, lon float64) (*models.Incident, error)
	ResolveAction(ctx context.Context, chatID int64, messageID int, token string, actor Identity) (*models.Incident, error)
	DeleteIncident(ctx context.Context, id uuid.UUID) error
	ListIncidents(ctx context.Context) ([]*models.Incident, error)
}

type incidentService struct {
	repo      IncidentRepository
	tg        TelegramClient
	publisher EventPublisher
	logger    *logrus.Logger
	cfg       *config.Config
	validate  *validator.Validate
	// сериализация resolve-then-persist по паре (chat, message)
	messageLocks *keyedMutex
}

func NewIncidentService(repo IncidentRepository, tg TelegramClient, publisher EventPublisher, logger *logrus.Logger, cfg *config.Config) IncidentService {
	return &incidentService{
		repo:         repo,
		tg:           tg,
		publisher:    publisher,
		logger:       logger,
		cfg:          cfg,
		validate:     validator.New(),
		messageLocks: newKeyedMutex(),
	}
}

// callCtx ограничивает каждый внешний вызов (Telegram, БД) таймаутом,
// чтобы отказ внешней системы не подвешивал обработку навсегда
func (s *incidentService) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.ExternalCallTimeout)
}

// IngestReport принимает репорт с локацией: зеркалирует его в группу,
// сохраняет запись со ссылкой на сообщение группы и рассылает new_incident.
// Если сообщение в группу ушло, а запись сохранить не удалось, отправка
// не откатывается - расхождение логируется.
func (s *incidentService) IngestReport(ctx context.Context, reporter Identity, lat, lon float64) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "IngestReport",
		"reporter_id": reporter.ID,
	})
	log.Info("Ingesting incident report")

	if err := s.validate.Var(lat, "latitude"); err != nil {
		log.WithField("latitude", lat).Warn("Report rejected: latitude out of bounds")
		return nil, fmt.Errorf("%w: latitude %v", ErrInvalidLocation, lat)
	}
	if err := s.validate.Var(lon, "longitude"); err != nil {
		log.WithField("longitude", lon).Warn("Report rejected: longitude out of bounds")
		return nil, fmt.Errorf("%w: longitude %v", ErrInvalidLocation, lon)
	}

	sendCtx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.tg.SendLocation(sendCtx, s.cfg.GroupChatID, lat, lon); err != nil {
		log.WithError(err).Error("Failed to mirror location into group chat")
		return nil, &ChannelDeliveryError{Op: "send location", Err: err}
	}

	msgCtx, cancel := s.callCtx(ctx)
	defer cancel()
	messageID, err := s.tg.SendIncidentMessage(msgCtx, s.cfg.GroupChatID, reporter, lat, lon)
	if err != nil {
		log.WithError(err).Error("Failed to send incident message into group chat")
		return nil, &ChannelDeliveryError{Op: "send incident message", Err: err}
	}

	incident := &models.Incident{
		ReporterID:        reporter.ID,
		ReporterName:      reporter.Name,
		Latitude:          lat,
		Longitude:         lon,
		Status:            models.StatusActive,
		TelegramMessageID: messageID,
		TelegramChatID:    s.cfg.GroupChatID,
	}

	dbCtx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.repo.Create(dbCtx, incident); err != nil {
		// Сообщение в группе уже существует, а записи нет.
		// Компенсирующее удаление не выполняется - окно расхождения
		// фиксируется в логе для оператора.
		log.WithError(err).WithField("telegram_message_id", messageID).
			Error("Group message delivered but incident was not persisted")
		return nil, fmt.Errorf("service: could not persist incident: %w", err)
	}

	if err := s.publisher.Publish(ctx, Event{Type: EventNewIncident, Data: incident}); err != nil {
		log.WithError(err).Warn("Failed to fan out new_incident event")
	}

	ackCtx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.tg.SendPrivate(ackCtx, reporter.ID, "Incident logged and relayed to the operations group."); err != nil {
		log.WithError(err).Warn("Failed to acknowledge reporter")
	}

	log.WithField("incident_id", incident.ID).Info("Incident ingested successfully")
	return incident, nil
}

// ResolveAction разрешает нажатие кнопки обратно в запись через пару
// (chat, message), прогоняет токен через движок переходов и сохраняет
// новый статус. Отклоненное действие не меняет ни хранилище, ни сообщение.
func (s *incidentService) ResolveAction(ctx context.Context, chatID int64, messageID int, token string, actor Identity) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":    "incident",
		"method":     "ResolveAction",
		"chat_id":    chatID,
		"message_id": messageID,
		"actor_id":   actor.ID,
	})
	log.Info("Resolving incident action")

	lockKey := fmt.Sprintf("%d:%d", chatID, messageID)
	s.messageLocks.Lock(lockKey)
	defer s.messageLocks.Unlock(lockKey)

	findCtx, cancel := s.callCtx(ctx)
	defer cancel()
	incident, err := s.repo.FindByChannelMessage(findCtx, chatID, messageID)
	if err != nil {
		log.WithError(err).Warn("Action does not resolve to a known incident")
		return nil, err
	}

	transition, err := ResolveTransition(token)
	if err != nil {
		log.WithField("token", token).Warn("Action token rejected")
		return nil, err
	}

	editCtx, cancel := s.callCtx(ctx)
	defer cancel()
	if err := s.tg.EditIncidentMessage(editCtx, incident, transition.Status, actor, transition.Terminal); err != nil {
		log.WithError(err).Error("Failed to edit group message")
		return nil, &ChannelDeliveryError{Op: "edit incident message", Err: err}
	}

	dbCtx, cancel := s.callCtx(ctx)
	defer cancel()
	updated, err := s.repo.UpdateStatus(dbCtx, incident.ID, transition.Status)
	if err != nil {
		// Сообщение в группе уже отредактировано: хранилище и канал
		// расходятся до следующего успешного действия
		log.WithError(err).Error("Group message edited but status was not persisted")
		return nil, fmt.Errorf("service: could not persist status: %w", err)
	}

	if err := s.publisher.Publish(ctx, Event{Type: EventIncidentUpdated, Data: updated}); err != nil {
		log.WithError(err).Warn("Failed to fan out incident_updated event")
	}

	log.WithFields(logrus.Fields{
		"incident_id": updated.ID,
		"status":      updated.Status,
	}).Info("Incident action resolved")
	return updated, nil
}

// DeleteIncident удаляет запись по запросу оператора с дашборда.
// Сообщение в группе при этом не трогается.
func (s *incidentService) DeleteIncident(ctx context.Context, id uuid.UUID) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "DeleteIncident",
		"incident_id": id,
	})
	log.Info("Deleting incident")

	dbCtx, cancel := s.callCtx(ctx)
	defer cancel()
	existed, err := s.repo.Delete(dbCtx, id)
	if err != nil {
		log.WithError(err).Error("Failed to delete incident in repository")
		return fmt.Errorf("service: could not delete incident: %w", err)
	}
	if !existed {
		log.Warn("Attempted to delete a non-existent incident")
		return ErrIncidentNotFound
	}

	if err := s.publisher.Publish(ctx, Event{Type: EventIncidentDeleted, Data: id.String()}); err != nil {
		log.WithError(err).Warn("Failed to fan out incident_deleted event")
	}

	log.Info("Incident deleted successfully")
	return nil
}

// ListIncidents возвращает полный снимок хранилища для дашборда
// и poll-сверки
func (s *incidentService) ListIncidents(ctx context.Context) ([]*models.Incident, error) {
	dbCtx, cancel := s.callCtx(ctx)
	defer cancel()
	incidents, err := s.repo.ListAll(dbCtx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list incidents from repository")
		return nil, fmt.Errorf("service: could not list incidents: %w", err)
	}
	return incidents, nil
}
