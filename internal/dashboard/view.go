package dashboard

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shenikar/incident_relay_system/internal/models"
)

// View - локальное представление инцидентов на стороне зрителя.
// Все операции слияния идемпотентны: повторное добавление существующего
// id и удаление отсутствующего - no-op. Одна и та же логика применяется
// и к push-событиям realtime-канала, и к дельтам poll-сверки, поэтому
// at-least-once доставка безопасна.
type View struct {
	mu        sync.RWMutex
	incidents map[uuid.UUID]*models.Incident
}

func NewView() *View {
	return &View{incidents: make(map[uuid.UUID]*models.Incident)}
}

// ApplySnapshot замещает представление полным снимком initial_incidents
func (v *View) ApplySnapshot(incidents []*models.Incident) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.incidents = make(map[uuid.UUID]*models.Incident, len(incidents))
	for _, incident := range incidents {
		v.incidents[incident.ID] = incident
	}
}

// ApplyUpsert применяет new_incident либо incident_updated
func (v *View) ApplyUpsert(incident *models.Incident) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.incidents[incident.ID] = incident
}

// ApplyDelete применяет incident_deleted
func (v *View) ApplyDelete(id uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.incidents, id)
}

// Reconcile выравнивает представление по авторитетному снимку:
// id, которых нет локально, считаются новыми; id, пропавшие из снимка, -
// удаленными. Дельты проходят через ту же логику слияния, что и
// push-события.
func (v *View) Reconcile(remote []*models.Incident) {
	remoteIDs := make(map[uuid.UUID]bool, len(remote))
	for _, incident := range remote {
		remoteIDs[incident.ID] = true
		v.ApplyUpsert(incident)
	}

	for _, id := range v.IDs() {
		if !remoteIDs[id] {
			v.ApplyDelete(id)
		}
	}
}

// Get возвращает инцидент по id
func (v *View) Get(id uuid.UUID) (*models.Incident, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	incident, ok := v.incidents[id]
	return incident, ok
}

// IDs возвращает все известные представлению id
func (v *View) IDs() []uuid.UUID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(v.incidents))
	for id := range v.incidents {
		ids = append(ids, id)
	}
	return ids
}

// Incidents возвращает содержимое представления, новые сверху
func (v *View) Incidents() []*models.Incident {
	v.mu.RLock()
	defer v.mu.RUnlock()
	incidents := make([]*models.Incident, 0, len(v.incidents))
	for _, incident := range v.incidents {
		incidents = append(incidents, incident)
	}
	sort.Slice(incidents, func(i, j int) bool {
		return incidents[i].Timestamp.After(incidents[j].Timestamp)
	})
	return incidents
}

// Len возвращает размер представления
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.incidents)
}
