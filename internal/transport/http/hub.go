package http

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"quiz-game-service/internal/domain"
)

// Wire event names. These are the contract with browser clients.
const (
	evtQuestionStarted = "question-started"
	evtTimeUpdate      = "time-update"
	evtAnswerReceived  = "answer-received"
	evtQuestionEnded   = "question-ended"
	evtGameEnded       = "game-ended"
	evtPlayerLevelUp   = "player-level-up"
	evtGameStarted     = "game-started"
	evtError           = "error"
)

type envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// roomClient is one websocket connection inside a lobby room. All writes go
// through the send channel so a single goroutine owns the connection.
type roomClient struct {
	conn *websocket.Conn
	send chan envelope
	once sync.Once
}

// Send enqueues a message for this connection, dropping the oldest pending
// message instead of blocking when the client cannot keep up.
func (c *roomClient) Send(msg envelope) {
	select {
	case c.send <- msg:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (c *roomClient) close() {
	c.once.Do(func() { close(c.send) })
}

func (c *roomClient) writePump() {
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}
	}
}

// Hub fans internal game events out to the websocket connections of each
// lobby room. It implements game.Notifier.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*roomClient // lobbyCode -> playerID -> client
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[string]*roomClient)}
}

// Join registers a connection in a lobby room and starts its writer. A
// reconnecting player replaces their previous connection.
func (h *Hub) Join(lobbyCode, playerID string, conn *websocket.Conn) *roomClient {
	client := &roomClient{conn: conn, send: make(chan envelope, 32)}

	h.mu.Lock()
	room := h.rooms[lobbyCode]
	if room == nil {
		room = make(map[string]*roomClient)
		h.rooms[lobbyCode] = room
	}
	previous := room[playerID]
	room[playerID] = client
	h.mu.Unlock()

	if previous != nil {
		previous.close()
	}
	go client.writePump()
	return client
}

// Leave removes a connection from its room; the writer drains and exits.
func (h *Hub) Leave(lobbyCode, playerID string, client *roomClient) {
	h.mu.Lock()
	room := h.rooms[lobbyCode]
	if room != nil && room[playerID] == client {
		delete(room, playerID)
		if len(room) == 0 {
			delete(h.rooms, lobbyCode)
		}
	}
	h.mu.Unlock()
	client.close()
}

func (h *Hub) broadcast(lobbyCode, event string, payload interface{}) {
	msg := envelope{Type: event, Payload: payload}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.rooms[lobbyCode] {
		client.Send(msg)
	}
}

func (h *Hub) QuestionStarted(lobbyCode string, ev domain.QuestionStarted) {
	h.broadcast(lobbyCode, evtQuestionStarted, ev)
}

func (h *Hub) TimeUpdate(lobbyCode string, ev domain.TimeUpdate) {
	h.broadcast(lobbyCode, evtTimeUpdate, ev)
}

func (h *Hub) AnswerReceived(lobbyCode string, ev domain.AnswerReceived) {
	h.broadcast(lobbyCode, evtAnswerReceived, ev)
}

func (h *Hub) QuestionEnded(lobbyCode string, ev domain.QuestionEnded) {
	h.broadcast(lobbyCode, evtQuestionEnded, ev)
}

func (h *Hub) GameEnded(lobbyCode string, ev domain.GameEnded) {
	h.broadcast(lobbyCode, evtGameEnded, ev)
}

func (h *Hub) PlayerLevelUp(lobbyCode string, ev domain.PlayerLevelUp) {
	h.broadcast(lobbyCode, evtPlayerLevelUp, ev)
}
