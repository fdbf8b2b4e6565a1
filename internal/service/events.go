package service

import (
	"context"
	"errors"
)

// Типы событий жизненного цикла. Значения входят в wire-протокол
// realtime-канала и вебхуков.
const (
	EventInitialIncidents = "initial_incidents"
	EventNewIncident      = "new_incident"
	EventIncidentUpdated  = "incident_updated"
	EventIncidentDeleted  = "incident_deleted"
)

// Event - конверт события жизненного цикла инцидента.
// Для new_incident/incident_updated Data содержит полную запись,
// для incident_deleted - строку с id.
type Event struct {
	Type string `json:"event"`
	Data any    `json:"data"`
}

// EventPublisher определяет контракт для fan-out событий жизненного цикла
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// MultiPublisher рассылает событие всем вложенным издателям.
// Ошибка одного издателя не мешает остальным.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
