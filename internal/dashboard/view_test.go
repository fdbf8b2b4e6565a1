package dashboard

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/incident_relay_system/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIncident(status string) *models.Incident {
	return &models.Incident{
		ID:        uuid.New(),
		Status:    status,
		Timestamp: time.Now(),
	}
}

func TestView_ApplyUpsert_Idempotent(t *testing.T) {
	// Повторное применение того же new_incident не меняет представление
	view := NewView()
	incident := newIncident(models.StatusActive)

	view.ApplyUpsert(incident)
	first := view.Incidents()

	view.ApplyUpsert(incident)
	second := view.Incidents()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, view.Len())
}

func TestView_ApplyDelete_Idempotent(t *testing.T) {
	// Удаление отсутствующего id - no-op
	view := NewView()
	incident := newIncident(models.StatusActive)
	view.ApplyUpsert(incident)

	view.ApplyDelete(incident.ID)
	assert.Equal(t, 0, view.Len())

	view.ApplyDelete(incident.ID)
	assert.Equal(t, 0, view.Len())
}

func TestView_ApplyUpsert_UpdateReplacesRecord(t *testing.T) {
	view := NewView()
	incident := newIncident(models.StatusActive)
	view.ApplyUpsert(incident)

	updated := *incident
	updated.Status = "Scene Cleared"
	view.ApplyUpsert(&updated)

	got, ok := view.Get(incident.ID)
	require.True(t, ok)
	assert.Equal(t, "Scene Cleared", got.Status)
	assert.Equal(t, 1, view.Len())
}

func TestView_ApplySnapshot_ReplacesView(t *testing.T) {
	view := NewView()
	stale := newIncident(models.StatusActive)
	view.ApplyUpsert(stale)

	fresh := []*models.Incident{newIncident(models.StatusActive), newIncident(models.StatusActive)}
	view.ApplySnapshot(fresh)

	assert.Equal(t, 2, view.Len())
	_, ok := view.Get(stale.ID)
	assert.False(t, ok)
}

func TestView_Reconcile_Converges(t *testing.T) {
	// После сверки множество id представления совпадает с множеством id
	// авторитетного снимка, какие бы события были пропущены
	view := NewView()

	missedDelete := newIncident(models.StatusActive)
	view.ApplyUpsert(missedDelete) // удален удаленно, событие пропущено

	kept := newIncident(models.StatusActive)
	view.ApplyUpsert(kept)

	missedNew := newIncident(models.StatusActive) // создан удаленно, событие пропущено

	remote := []*models.Incident{kept, missedNew}
	view.Reconcile(remote)

	assert.Equal(t, 2, view.Len())
	_, ok := view.Get(missedDelete.ID)
	assert.False(t, ok)
	_, ok = view.Get(missedNew.ID)
	assert.True(t, ok)
	_, ok = view.Get(kept.ID)
	assert.True(t, ok)
}

func TestView_Reconcile_Idempotent(t *testing.T) {
	view := NewView()
	remote := []*models.Incident{newIncident(models.StatusActive), newIncident(models.StatusActive)}

	view.Reconcile(remote)
	first := view.Incidents()

	view.Reconcile(remote)
	second := view.Incidents()

	assert.Equal(t, first, second)
}

func TestView_Incidents_NewestFirst(t *testing.T) {
	view := NewView()
	older := &models.Incident{ID: uuid.New(), Timestamp: time.Now().Add(-time.Hour)}
	newer := &models.Incident{ID: uuid.New(), Timestamp: time.Now()}
	view.ApplyUpsert(older)
	view.ApplyUpsert(newer)

	incidents := view.Incidents()
	require.Len(t, incidents, 2)
	assert.Equal(t, newer.ID, incidents[0].ID)
	assert.Equal(t, older.ID, incidents[1].ID)
}
