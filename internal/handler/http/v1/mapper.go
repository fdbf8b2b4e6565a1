package v1

import "github.com/shenikar/incident_relay_system/internal/models"

// ModelToIncidentResponse преобразует доменную модель в DTO для ответа
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:                model.ID,
		ReporterID:        model.ReporterID,
		ReporterName:      model.ReporterName,
		Latitude:          model.Latitude,
		Longitude:         model.Longitude,
		Status:            model.Status,
		TelegramMessageID: model.TelegramMessageID,
		TelegramChatID:    model.TelegramChatID,
		Timestamp:         model.Timestamp,
		LastUpdated:       model.LastUpdated,
	}
}

// ModelsToIncidentResponses преобразует слайс моделей в слайс DTO
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}
