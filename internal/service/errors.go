package service

import (
	"errors"
	"fmt"
)

var (
	// ErrIncidentNotFound - инцидент не найден ни по id, ни по паре (chat, message)
	ErrIncidentNotFound = errors.New("incident not found")

	// ErrInvalidLocation - координаты вне допустимых границ lat/lon
	ErrInvalidLocation = errors.New("location out of bounds")

	// ErrUnknownAction - токен действия не распознан, состояние не меняется
	ErrUnknownAction = errors.New("unknown action token")
)

// ChannelDeliveryError - ошибка доставки исходящего сообщения в Telegram.
// Частичные побочные эффекты (уже отправленные сообщения) не откатываются.
type ChannelDeliveryError struct {
	Op  string
	Err error
}

func (e *ChannelDeliveryError) Error() string {
	return fmt.Sprintf("channel delivery failed during %s: %v", e.Op, e.Err)
}

func (e *ChannelDeliveryError) Unwrap() error {
	return e.Err
}
