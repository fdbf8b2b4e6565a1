package dashboard

import (
	"context"
	"time"

	"github.com/shenikar/incident_relay_system/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultPollInterval ограничивает окно рассинхронизации, которое может
// оставить best-effort доставка realtime-канала
const DefaultPollInterval = time.Second

// SnapshotSource отдает авторитетный полный снимок. Репозиторий хранилища
// удовлетворяет контракту напрямую; зритель по другую сторону HTTP
// оборачивает GET /incidents.
type SnapshotSource interface {
	ListAll(ctx context.Context) ([]*models.Incident, error)
}

// Poller периодически сверяет локальное представление с авторитетным
// снимком. Сверка не заменяет push-канал, а маскирует пропущенные события.
type Poller struct {
	view     *View
	source   SnapshotSource
	interval time.Duration
	logger   *logrus.Logger
}

func NewPoller(view *View, source SnapshotSource, interval time.Duration, logger *logrus.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		view:     view,
		source:   source,
		interval: interval,
		logger:   logger,
	}
}

// Run блокируется до отмены контекста
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.ReconcileOnce(ctx); err != nil {
				p.logger.WithError(err).Warn("Reconciliation poll failed")
			}
		}
	}
}

// ReconcileOnce выполняет один цикл сверки. После успешного вызова
// множество id представления совпадает с множеством id снимка.
func (p *Poller) ReconcileOnce(ctx context.Context) error {
	remote, err := p.source.ListAll(ctx)
	if err != nil {
		return err
	}
	p.view.Reconcile(remote)
	return nil
}
