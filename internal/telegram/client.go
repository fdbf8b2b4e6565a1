package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shenikar/incident_relay_system/internal/models"
	"github.com/shenikar/incident_relay_system/internal/service"
	"github.com/sirupsen/logrus"
)

// Данные callback-кнопок. Идентификатор нажавшего дописывает Listener,
// получая токен вида <verb>_<qualifier>_<actor-id>.
const (
	callbackTowEagles    = "tow_eagles"
	callbackTowOther     = "tow_other"
	callbackSceneCleared = "scene_cleared"
)

// BotClient - реализация service.TelegramClient поверх Bot API
type BotClient struct {
	api    *tgbotapi.BotAPI
	logger *logrus.Logger
}

// NewBotClient авторизуется в Bot API. Ошибка здесь фатальна для процесса:
// без мессенджер-границы сервис не имеет смысла.
func NewBotClient(token string, logger *logrus.Logger) (*BotClient, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authorize telegram bot: %w", err)
	}
	logger.WithField("bot", api.Self.UserName).Info("Telegram bot authorized")
	return &BotClient{api: api, logger: logger}, nil
}

// SendLocation зеркалирует точку репорта в групповой чат
func (c *BotClient) SendLocation(ctx context.Context, chatID int64, lat, lon float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewLocation(chatID, lat, lon)); err != nil {
		return fmt.Errorf("failed to send location: %w", err)
	}
	return nil
}

// SendIncidentMessage отправляет в группу сопроводительное сообщение
// с данными репортера, ссылкой на карту и кнопками действий.
// Возвращает идентификатор сообщения - ключ для разрешения будущих действий.
func (c *BotClient) SendIncidentMessage(ctx context.Context, chatID int64, reporter service.Identity, lat, lon float64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, incidentText(reporter.Name, lat, lon))
	msg.ReplyMarkup = actionKeyboard()
	msg.DisableWebPagePreview = true

	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send incident message: %w", err)
	}
	return sent.MessageID, nil
}

// EditIncidentMessage дописывает к сообщению строку аудита и, если переход
// терминальный, снимает кнопки действий
func (c *BotClient) EditIncidentMessage(ctx context.Context, incident *models.Incident, newStatus string, actor service.Identity, removeKeyboard bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := incidentText(incident.ReporterName, incident.Latitude, incident.Longitude) +
		auditLine(newStatus, actor.Name)

	var edit tgbotapi.Chattable
	if removeKeyboard {
		// редактирование без reply markup убирает кнопки
		edit = tgbotapi.NewEditMessageText(incident.TelegramChatID, incident.TelegramMessageID, text)
	} else {
		e := tgbotapi.NewEditMessageTextAndMarkup(incident.TelegramChatID, incident.TelegramMessageID, text, actionKeyboard())
		edit = e
	}
	if _, err := c.api.Send(edit); err != nil {
		return fmt.Errorf("failed to edit incident message: %w", err)
	}
	return nil
}

// SendPrivate отправляет личное подтверждение или отказ
func (c *BotClient) SendPrivate(ctx context.Context, userID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		return fmt.Errorf("failed to send private message: %w", err)
	}
	return nil
}

// AnswerCallback закрывает "часики" на кнопке коротким текстом
func (c *BotClient) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func incidentText(reporterName string, lat, lon float64) string {
	return fmt.Sprintf(
		"Incident reported by %s\nLocation: %.5f, %.5f\nMap: https://maps.google.com/?q=%.5f,%.5f",
		reporterName, lat, lon, lat, lon,
	)
}

func auditLine(status, actorName string) string {
	return fmt.Sprintf("\n\nStatus: %s (by %s at %s)",
		status, actorName, time.Now().UTC().Format("15:04 UTC, 02 Jan 2006"))
}

func actionKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Tow: Eagles 24", callbackTowEagles),
			tgbotapi.NewInlineKeyboardButtonData("Tow: Other", callbackTowOther),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Scene cleared", callbackSceneCleared),
		),
	)
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}
