package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-game-service/internal/game"
)

// WSHandler upgrades player connections and wires their messages into the
// game service. One websocket per player per lobby.
type WSHandler struct {
	service  *game.GameService
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *game.GameService, hub *Hub) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Answer string `json:"answer"`
}

type gameStartedPayload struct {
	SessionID      string `json:"sessionId"`
	TotalQuestions int    `json:"totalQuestions"`
}

// ServeWS handles /ws?lobbyCode=...&playerId=... connections.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	lobbyCode := r.URL.Query().Get("lobbyCode")
	playerID := r.URL.Query().Get("playerId")
	if lobbyCode == "" || playerID == "" {
		http.Error(w, "missing lobbyCode or playerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	client := h.hub.Join(lobbyCode, playerID, conn)
	defer h.hub.Leave(lobbyCode, playerID, client)
	defer h.service.OnPlayerDisconnect(r.Context(), lobbyCode, playerID)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start-game":
			state, err := h.service.Start(r.Context(), lobbyCode, playerID)
			if err != nil {
				client.Send(envelope{Type: evtError, Payload: errorPayload{Message: err.Error()}})
				continue
			}
			client.Send(envelope{Type: evtGameStarted, Payload: gameStartedPayload{
				SessionID:      state.SessionID,
				TotalQuestions: state.TotalQuestions,
			}})
		case "submit-answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				client.Send(envelope{Type: evtError, Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			if err := h.service.SubmitAnswer(r.Context(), lobbyCode, playerID, payload.Answer); err != nil {
				client.Send(envelope{Type: evtError, Payload: errorPayload{Message: err.Error()}})
			}
		default:
			client.Send(envelope{Type: evtError, Payload: errorPayload{Message: "unsupported message type"}})
		}
	}
}
