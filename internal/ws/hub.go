package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/corent-backend/internal/goroutine"
	"github.com/ignatzorin/corent-backend/internal/logger"
)

// Hub управляет всеми WebSocket клиентами.
// Все изменения состояния происходят в горутине Run.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	count      chan chan int
	done       chan struct{}
}

// message с userID == uuid.Nil уходит всем подключённым клиентам.
type message struct {
	userID  uuid.UUID
	payload []byte
}

// NewHub создаёт новый хаб.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 32),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run запускает главный цикл хаба до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.send(msg)
		case reply := <-h.count:
			n := 0
			for _, set := range h.clients {
				n += len(set)
			}
			reply <- n
		}
	}
}

// Register добавляет клиента.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister удаляет клиента.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount возвращает число подключённых клиентов. После остановки хаба возвращает 0.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// Broadcast отправляет событие всем подписчикам.
func (h *Hub) Broadcast(event string, data any) error {
	return h.publish(uuid.Nil, event, data)
}

// BroadcastToUser отправляет событие одному пользователю.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	return h.publish(userID, event, data)
}

func (h *Hub) publish(userID uuid.UUID, event string, data any) error {
	// Сообщение для клиента строго следует контракту WebSocket API:
	// поле "type" содержит имя события, "data" содержит полезную нагрузку.
	raw, err := json.Marshal(map[string]any{
		"type": event,
		"data": data,
	})
	if err != nil {
		return fmt.Errorf("ws: не удалось сериализовать сообщение: %w", err)
	}

	select {
	case h.broadcast <- message{userID: userID, payload: raw}:
	case <-h.done:
	}
	return nil
}

func (h *Hub) addClient(client *Client) {
	if _, ok := h.clients[client.userID]; !ok {
		h.clients[client.userID] = make(map[*Client]struct{})
	}
	h.clients[client.userID][client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	if clients, ok := h.clients[client.userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
		}
		if len(clients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) send(msg message) {
	for userID, set := range h.clients {
		if msg.userID != uuid.Nil && msg.userID != userID {
			continue
		}
		for client := range set {
			select {
			case client.send <- msg.payload:
			default:
				// Медленный клиент: отключаем, чтобы не блокировать хаб.
				logger.Log.WithFields(logrus.Fields{"user_id": userID}).Warn("ws: send buffer full, dropping client")
				delete(set, client)
				close(client.send)
				goroutine.SafeGo(func() { _ = client.conn.Close() })
			}
		}
		if len(set) == 0 {
			delete(h.clients, userID)
		}
	}
}

func (h *Hub) closeAll() {
	for userID, set := range h.clients {
		for client := range set {
			close(client.send)
		}
		delete(h.clients, userID)
	}
}
