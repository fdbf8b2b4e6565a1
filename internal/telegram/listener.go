package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shenikar/incident_relay_system/internal/service"
	"github.com/sirupsen/logrus"
)

// responder - исходящие подтверждения, которые нужны самому Listener.
// Выделен в интерфейс, чтобы трансляцию событий можно было тестировать
// без сети.
type responder interface {
	AnswerCallback(ctx context.Context, callbackID, text string) error
	SendPrivate(ctx context.Context, userID int64, text string) error
}

// Listener принимает события Bot API через long polling и транслирует их
// в вызовы координатора. Бизнес-логики здесь нет: репорт с локацией
// превращается в IngestReport, нажатие кнопки - в ResolveAction.
type Listener struct {
	api         *tgbotapi.BotAPI
	coordinator service.IncidentService
	responder   responder
	logger      *logrus.Logger
}

func NewListener(bot *BotClient, coordinator service.IncidentService, logger *logrus.Logger) *Listener {
	return &Listener{
		api:         bot.api,
		coordinator: coordinator,
		responder:   bot,
		logger:      logger,
	}
}

// Run блокируется до отмены контекста
func (l *Listener) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := l.api.GetUpdatesChan(u)

	l.logger.Info("Telegram listener started")
	for {
		select {
		case <-ctx.Done():
			l.api.StopReceivingUpdates()
			l.logger.Info("Telegram listener stopped")
			return
		case update := <-updates:
			l.handleUpdate(ctx, update)
		}
	}
}

func (l *Listener) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		l.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Location != nil && update.Message.Chat.IsPrivate():
		l.handleLocationReport(ctx, update.Message)
	}
}

// handleLocationReport - репорт с локацией из личного чата
func (l *Listener) handleLocationReport(ctx context.Context, msg *tgbotapi.Message) {
	reporter := service.Identity{
		ID:   msg.From.ID,
		Name: displayName(msg.From),
	}
	log := l.logger.WithField("reporter_id", reporter.ID)

	_, err := l.coordinator.IngestReport(ctx, reporter, msg.Location.Latitude, msg.Location.Longitude)
	if err == nil {
		// успешное подтверждение репортеру отправляет координатор
		return
	}

	log.WithError(err).Warn("Incident report was not ingested")
	if err := l.responder.SendPrivate(ctx, reporter.ID, ingestFailureText(err)); err != nil {
		log.WithError(err).Warn("Failed to notify reporter about rejected report")
	}
}

// handleCallback - нажатие кнопки на сообщении инцидента
func (l *Listener) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	log := l.logger.WithField("actor_id", cq.From.ID)
	if cq.Message == nil {
		log.Warn("Callback query without originating message")
		return
	}

	actor := service.Identity{
		ID:   cq.From.ID,
		Name: displayName(cq.From),
	}
	// токен действия: данные кнопки плюс идентификатор нажавшего
	token := fmt.Sprintf("%s_%d", cq.Data, cq.From.ID)

	updated, err := l.coordinator.ResolveAction(ctx, cq.Message.Chat.ID, cq.Message.MessageID, token, actor)

	ack := "Status updated"
	if err != nil {
		log.WithError(err).Warn("Incident action was not resolved")
		ack = actionFailureText(err)
	} else {
		ack = "Status updated: " + updated.Status
	}
	if err := l.responder.AnswerCallback(ctx, cq.ID, ack); err != nil {
		log.WithError(err).Warn("Failed to answer callback query")
	}
}

func ingestFailureText(err error) string {
	if errors.Is(err, service.ErrInvalidLocation) {
		return "That location looks invalid, the report was not logged."
	}
	return "Could not log the incident, please try again."
}

func actionFailureText(err error) string {
	switch {
	case errors.Is(err, service.ErrUnknownAction):
		return "Unknown action."
	case errors.Is(err, service.ErrIncidentNotFound):
		return "This message is not linked to a tracked incident."
	default:
		return "Could not update the incident, please try again."
	}
}
