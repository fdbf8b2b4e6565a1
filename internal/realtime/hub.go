package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/shenikar/incident_relay_system/internal/models"
	"github.com/shenikar/incident_relay_system/internal/service"
	"github.com/sirupsen/logrus"
)

// SnapshotFunc отдает полный текущий снимок хранилища для первичной
// синхронизации нового клиента
type SnapshotFunc func(ctx context.Context) ([]*models.Incident, error)

// Hub держит все websocket-подключения дашборда и рассылает им события
// жизненного цикла. Доставка - at-least-once в пределах соединения;
// клиент, отставший настолько, что его буфер переполнился, отключается
// и при переподключении получает свежий снимок.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	// done закрывается, когда Run вернулся; после этого регистрация
	// и снятие клиентов не должны блокироваться
	done     chan struct{}
	snapshot SnapshotFunc
	logger   *logrus.Logger
	mu       sync.RWMutex
}

func NewHub(snapshot SnapshotFunc, logger *logrus.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		snapshot:   snapshot,
		logger:     logger,
	}
}

// Run - единственная горутина, владеющая множеством клиентов
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info("Dashboard client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Dashboard client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// клиент не вычитывает буфер - отключаем
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish реализует service.EventPublisher: событие уходит всем
// подключенным клиентам
func (h *Hub) Publish(ctx context.Context, event service.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterClient заводит нового клиента поверх установленного
// websocket-соединения. Снимок читается здесь, в горутине подключения,
// чтобы запрос к хранилищу не останавливал рассылку остальным клиентам;
// он ставится в очередь клиента до регистрации, поэтому порядок
// "снимок, затем дельты" сохраняется. События, случившиеся между чтением
// снимка и регистрацией, маскирует poll-сверка.
func (h *Hub) RegisterClient(ctx context.Context, conn *websocket.Conn) {
	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}
	h.queueInitialSnapshot(ctx, client)

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// ClientCount возвращает число подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) queueInitialSnapshot(ctx context.Context, client *Client) {
	incidents, err := h.snapshot(ctx)
	if err != nil {
		// клиент остается подключенным и довыровняется poll-сверкой
		h.logger.WithError(err).Error("Failed to load snapshot for new dashboard client")
		return
	}
	payload, err := json.Marshal(service.Event{Type: service.EventInitialIncidents, Data: incidents})
	if err != nil {
		h.logger.WithError(err).Error("Failed to serialize initial snapshot")
		return
	}
	select {
	case client.send <- payload:
	default:
		h.logger.Warn("New dashboard client send buffer is already full")
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}
