package service_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_relay_system/internal/config"
	"github.com/shenikar/incident_relay_system/internal/models"
	"github.com/shenikar/incident_relay_system/internal/service"
	"github.com/shenikar/incident_relay_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testGroupChatID = int64(-100200300)

// newTestIncidentService — вспомогательная функция для создания инстанса сервиса с моками.
// Тесты живут во внешнем пакете, потому что моки импортируют service
// и тест внутри пакета не собрался бы из-за циклического импорта.
func newTestIncidentService(t *testing.T) (service.IncidentService, *mocks.MockIncidentRepository, *mocks.MockTelegramClient, *mocks.MockEventPublisher) {
	ctrl := gomock.NewController(t)
	repoMock := mocks.NewMockIncidentRepository(ctrl)
	tgMock := mocks.NewMockTelegramClient(ctrl)
	publisherMock := mocks.NewMockEventPublisher(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		GroupChatID:         testGroupChatID,
		ExternalCallTimeout: time.Second,
	}

	svc := service.NewIncidentService(repoMock, tgMock, publisherMock, logger, cfg)
	return svc, repoMock, tgMock, publisherMock
}

func TestIngestReport_Success(t *testing.T) {
	svc, repoMock, tgMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()
	reporter := service.Identity{ID: 1001, Name: "Alice"}
	incidentID := uuid.New()

	tgMock.EXPECT().
		SendLocation(gomock.Any(), testGroupChatID, -25.75, 28.23).
		Return(nil).
		Times(1)

	tgMock.EXPECT().
		SendIncidentMessage(gomock.Any(), testGroupChatID, reporter, -25.75, 28.23).
		Return(42, nil).
		Times(1)

	repoMock.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, inc *models.Incident) error {
			// Проверяем, что запись уходит в хранилище уже со ссылкой
			// на сообщение группы и статусом active
			assert.Equal(t, models.StatusActive, inc.Status)
			assert.Equal(t, 42, inc.TelegramMessageID)
			assert.Equal(t, testGroupChatID, inc.TelegramChatID)
			assert.Equal(t, reporter.ID, inc.ReporterID)
			// Симулируем, что БД присвоила ID и created_at
			inc.ID = incidentID
			inc.Timestamp = time.Now()
			return nil
		}).Times(1)

	publisherMock.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event service.Event) error {
			assert.Equal(t, service.EventNewIncident, event.Type)
			inc, ok := event.Data.(*models.Incident)
			require.True(t, ok)
			assert.Equal(t, incidentID, inc.ID)
			return nil
		}).Times(1)

	tgMock.EXPECT().
		SendPrivate(gomock.Any(), reporter.ID, gomock.Any()).
		Return(nil).
		Times(1)

	incident, err := svc.IngestReport(ctx, reporter, -25.75, 28.23)

	require.NoError(t, err)
	assert.Equal(t, incidentID, incident.ID)
	assert.Equal(t, models.StatusActive, incident.Status)
	assert.Equal(t, 42, incident.TelegramMessageID)
}

func TestIngestReport_InvalidLatitude(t *testing.T) {
	// Невалидная широта отклоняется до любых побочных эффектов:
	// ни одного вызова Telegram, хранилища или издателя
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	incident, err := svc.IngestReport(ctx, service.Identity{ID: 1, Name: "Alice"}, 95.0, 28.23)

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrInvalidLocation)
	assert.Nil(t, incident)
}

func TestIngestReport_InvalidLongitude(t *testing.T) {
	svc, _, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	incident, err := svc.IngestReport(ctx, service.Identity{ID: 1, Name: "Alice"}, -25.75, 181.0)

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrInvalidLocation)
	assert.Nil(t, incident)
}

func TestIngestReport_ChannelDeliveryFailure(t *testing.T) {
	svc, _, tgMock, _ := newTestIncidentService(t)
	ctx := context.Background()

	tgMock.EXPECT().
		SendLocation(gomock.Any(), testGroupChatID, gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("telegram is down")).
		Times(1)

	incident, err := svc.IngestReport(ctx, service.Identity{ID: 1, Name: "Alice"}, -25.75, 28.23)

	require.Error(t, err)
	var deliveryErr *service.ChannelDeliveryError
	assert.ErrorAs(t, err, &deliveryErr)
	assert.Nil(t, incident)
}

func TestIngestReport_PersistenceFailureAfterDelivery(t *testing.T) {
	// Сообщение в группу уже ушло, запись не сохранилась: отправка
	// не откатывается, события не публикуются, ошибка всплывает
	svc, repoMock, tgMock, _ := newTestIncidentService(t)
	ctx := context.Background()

	tgMock.EXPECT().
		SendLocation(gomock.Any(), testGroupChatID, gomock.Any(), gomock.Any()).
		Return(nil).
		Times(1)

	tgMock.EXPECT().
		SendIncidentMessage(gomock.Any(), testGroupChatID, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(42, nil).
		Times(1)

	repoMock.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("connection refused")).
		Times(1)

	incident, err := svc.IngestReport(ctx, service.Identity{ID: 1, Name: "Alice"}, -25.75, 28.23)

	require.Error(t, err)
	assert.ErrorContains(t, err, "could not persist incident")
	assert.Nil(t, incident)
}

func TestResolveAction_Success(t *testing.T) {
	svc, repoMock, tgMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()
	actor := service.Identity{ID: 42, Name: "Bob"}
	incidentID := uuid.New()
	existing := &models.Incident{
		ID:                incidentID,
		Status:            models.StatusActive,
		TelegramChatID:    testGroupChatID,
		TelegramMessageID: 77,
	}
	now := time.Now()
	updated := &models.Incident{
		ID:                incidentID,
		Status:            service.StatusTowEagles,
		TelegramChatID:    testGroupChatID,
		TelegramMessageID: 77,
		LastUpdated:       &now,
	}

	repoMock.EXPECT().
		FindByChannelMessage(gomock.Any(), testGroupChatID, 77).
		Return(existing, nil).
		Times(1)

	tgMock.EXPECT().
		EditIncidentMessage(gomock.Any(), existing, service.StatusTowEagles, actor, false).
		Return(nil).
		Times(1)

	repoMock.EXPECT().
		UpdateStatus(gomock.Any(), incidentID, service.StatusTowEagles).
		Return(updated, nil).
		Times(1)

	publisherMock.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event service.Event) error {
			assert.Equal(t, service.EventIncidentUpdated, event.Type)
			return nil
		}).Times(1)

	result, err := svc.ResolveAction(ctx, testGroupChatID, 77, "tow_eagles_42", actor)

	require.NoError(t, err)
	assert.Equal(t, service.StatusTowEagles, result.Status)
	assert.NotNil(t, result.LastUpdated)
}

func TestResolveAction_TerminalRemovesKeyboard(t *testing.T) {
	svc, repoMock, tgMock, publisherMock := newTestIncidentService(t)
	ctx := context.Background()
	actor := service.Identity{ID: 42, Name: "Bob"}
	incidentID := uuid.New()
	existing := &models.Incident{
		ID:                incidentID,
		Status:            models.StatusActive,
		TelegramChatID:    testGroupChatID,
		TelegramMessageID: 77,
	}

	repoMock.EXPECT().
		FindByChannelMessage(gomock.Any(), testGroupChatID, 77).
		Return(existing, nil).
		Times(1)

	// Терминальный переход снимает кнопки с сообщения
	tgMock.EXPECT().
		EditIncidentMessage(gomock.Any(), existing, service.StatusSceneCleared, actor, true).
		Return(nil).
		Times(1)

	repoMock.EXPECT().
		UpdateStatus(gomock.Any(), incidentID, service.StatusSceneCleared).
		Return(&models.Incident{ID: incidentID, Status: service.StatusSceneCleared}, nil).
		Times(1)

	publisherMock.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		Return(nil).
		Times(1)

	result, err := svc.ResolveAction(ctx, testGroupChatID, 77, "scene_cleared_42", actor)

	require.NoError(t, err)
	assert.Equal(t, service.StatusSceneCleared, result.Status)
}

func TestResolveAction_UnknownToken(t *testing.T) {
	// Нераспознанный токен не меняет ни хранилище, ни сообщение:
	// ни EditIncidentMessage, ни UpdateStatus, ни Publish не вызываются
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	existing := &models.Incident{
		ID:                uuid.New(),
		Status:            models.StatusActive,
		TelegramChatID:    testGroupChatID,
		TelegramMessageID: 77,
	}

	repoMock.EXPECT().
		FindByChannelMessage(gomock.Any(), testGroupChatID, 77).
		Return(existing, nil).
		Times(1)

	result, err := svc.ResolveAction(ctx, testGroupChatID, 77, "bogus_token_1", service.Identity{ID: 1})

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrUnknownAction)
	assert.Nil(t, result)
}

func TestResolveAction_UnknownMessage(t *testing.T) {
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()

	repoMock.EXPECT().
		FindByChannelMessage(gomock.Any(), testGroupChatID, 99).
		Return(nil, service.ErrIncidentNotFound).
		Times(1)

	result, err := svc.ResolveAction(ctx, testGroupChatID, 99, "tow_eagles_42", service.Identity{ID: 42})

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrIncidentNotFound)
	assert.Nil(t, result)
}

func TestResolveAction_EditFailureSkipsPersist(t *testing.T) {
	// Если отредактировать сообщение не удалось, статус не сохраняется
	svc, repoMock, tgMock, _ := newTestIncidentService(t)
	ctx := context.Background()
	existing := &models.Incident{
		ID:                uuid.New(),
		Status:            models.StatusActive,
		TelegramChatID:    testGroupChatID,
		TelegramMessageID: 77,
	}

	repoMock.EXPECT().
		FindByChannelMessage(gomock.Any(), testGroupChatID, 77).
		Return(existing, nil).
		Times(1)

	tgMock.EXPECT().
		EditIncidentMessage(gomock.Any(), existing, service.StatusTowOther, gomock.Any(), false).
		Return(fmt.Errorf("message to edit not found")).
		Times(1)

	result, err := svc.ResolveAction(ctx, testGroupChatID, 77, "tow_flatbed_9", service.Identity{ID: 9})

	require.Error(t, err)
	var deliveryErr *service.ChannelDeliveryError
	assert.ErrorAs(t, err, &deliveryErr)
	assert.Nil(t, result)
}

func TestDeleteIncident_Success(t *testing.T) {
	svc, repoMock, _, publisherMock := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	repoMock.EXPECT().
		Delete(gomock.Any(), incidentID).
		Return(true, nil).
		Times(1)

	publisherMock.EXPECT().
		Publish(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, event service.Event) error {
			assert.Equal(t, service.EventIncidentDeleted, event.Type)
			assert.Equal(t, incidentID.String(), event.Data)
			return nil
		}).Times(1)

	err := svc.DeleteIncident(ctx, incidentID)

	require.NoError(t, err)
}

func TestDeleteIncident_NotFound(t *testing.T) {
	// Удаление несуществующего id не публикует событий
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	incidentID := uuid.New()

	repoMock.EXPECT().
		Delete(gomock.Any(), incidentID).
		Return(false, nil).
		Times(1)

	err := svc.DeleteIncident(ctx, incidentID)

	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrIncidentNotFound)
}

func TestListIncidents_Success(t *testing.T) {
	svc, repoMock, _, _ := newTestIncidentService(t)
	ctx := context.Background()
	expected := []*models.Incident{
		{ID: uuid.New(), Status: models.StatusActive},
		{ID: uuid.New(), Status: service.StatusSceneCleared},
	}

	repoMock.EXPECT().
		ListAll(gomock.Any()).
		Return(expected, nil).
		Times(1)

	incidents, err := svc.ListIncidents(ctx)

	require.NoError(t, err)
	assert.Equal(t, expected, incidents)
}
