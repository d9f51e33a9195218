package server

import (
	"encoding/json"
	"net/http"

	"traffic-observer/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// subscription narrows a client to one zone. Routed through the hub loop so
// the client's zone is only ever touched by the hub goroutine.
type subscription struct {
	client *Client
	zoneID string
}

// handleWebsockets is the main Hub loop
func (s *DashboardServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			// Send initial state on connect
			s.stateMutex.RLock()
			if s.latestState != nil {
				client.send <- s.latestState
			}
			s.stateMutex.RUnlock()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}

		case sub := <-s.subscribe:
			if _, ok := s.clients[sub.client]; !ok {
				continue
			}
			sub.client.zoneID = sub.zoneID

			s.stateMutex.RLock()
			response := s.latestState
			if sub.zoneID != "" {
				response = filterByZone(s.latestState, sub.zoneID)
			}
			s.stateMutex.RUnlock()

			select {
			case sub.client.send <- response:
			default:
			}

		case message := <-s.broadcast:
			// Update state and broadcast
			s.stateMutex.Lock()
			s.latestState = message
			s.stateMutex.Unlock()

			for client := range s.clients {
				payload := message
				if client.zoneID != "" {
					payload = filterByZone(message, client.zoneID)
				}
				select {
				case client.send <- payload:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a reconciled state for delivery to every client.
func (s *DashboardServer) Broadcast(state *models.MDashboardState) {
	select {
	case s.broadcast <- state:
	default:
		s.Logger.Warning("Broadcast queue full, dropping state update")
	}
}

// -----------------------------------------------------------------------------

// UpdateState replaces the cached state without broadcasting. Used to seed
// the hub before the first client connects.
func (s *DashboardServer) UpdateState(state *models.MDashboardState) {
	s.stateMutex.Lock()
	s.latestState = state
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------

// filterByZone narrows a state to one zone's signals and roads. Stats,
// context, routes and diversions are city-wide and pass through.
func filterByZone(state *models.MDashboardState, zoneID string) *models.MDashboardState {
	filtered := &models.MDashboardState{
		Type:       state.Type,
		Signals:    make(map[string]models.MSignalView),
		Roads:      make(map[string]models.MRoadSegmentView),
		Routes:     state.Routes,
		Diversions: state.Diversions,
		Stats:      state.Stats,
		Context:    state.Context,
		Timestamp:  state.Timestamp,
	}
	for k, v := range state.Signals {
		if v.ZoneID == zoneID {
			filtered.Signals[k] = v
		}
	}
	for k, v := range state.Roads {
		if v.ZoneID == zoneID {
			filtered.Roads[k] = v
		}
	}
	return filtered
}

// -----------------------------------------------------------------------------
// WebSocket Upgrade
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan *models.MDashboardState, 256),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *DashboardServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	// Hand the zone change to the hub loop, which owns per-client state and
	// replies with the filtered snapshot.
	select {
	case s.subscribe <- subscription{client: client, zoneID: cmd.ZoneID}:
	case <-s.done:
	}
}
