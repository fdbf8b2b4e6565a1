package service_test

import (
	"testing"

	"github.com/shenikar/incident_relay_system/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTransition(t *testing.T) {
	tests := []struct {
		name         string
		token        string
		wantStatus   string
		wantTerminal bool
		wantActorID  string
		wantErr      bool
	}{
		{
			name:        "запрос эвакуатора Eagles",
			token:       "tow_eagles_42",
			wantStatus:  service.StatusTowEagles,
			wantActorID: "42",
		},
		{
			name:        "запрос любого другого эвакуатора",
			token:       "tow_flatbed_7",
			wantStatus:  service.StatusTowOther,
			wantActorID: "7",
		},
		{
			name:         "сцена расчищена - терминальный переход",
			token:        "scene_cleared_42",
			wantStatus:   service.StatusSceneCleared,
			wantTerminal: true,
			wantActorID:  "42",
		},
		{
			name:    "нераспознанный глагол",
			token:   "bogus_token_1",
			wantErr: true,
		},
		{
			name:    "scene с другим определителем",
			token:   "scene_open_1",
			wantErr: true,
		},
		{
			name:    "слишком короткий токен",
			token:   "tow_eagles",
			wantErr: true,
		},
		{
			name:    "пустой токен",
			token:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transition, err := service.ResolveTransition(tt.token)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, service.ErrUnknownAction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, transition.Status)
			assert.Equal(t, tt.wantTerminal, transition.Terminal)
			assert.Equal(t, tt.wantActorID, transition.ActorID)
		})
	}
}

// Повторный вызов с тем же токеном дает тот же результат независимо
// от порядка вызовов
func TestResolveTransition_Deterministic(t *testing.T) {
	first, err1 := service.ResolveTransition("tow_eagles_42")
	_, _ = service.ResolveTransition("scene_cleared_9")
	second, err2 := service.ResolveTransition("tow_eagles_42")

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}
