// CLAUDE:SUMMARY Live socket sessions: accept (sessionID, conn) pairs and stream coalesced snapshot updates.
package room

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// session is one live socket attached to the room. Updates are coalesced:
// the outbox holds at most the latest snapshot, so a slow client skips
// intermediate states instead of applying backpressure to mutations.
type session struct {
	id        string
	conn      *websocket.Conn
	outbox    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// AcceptSocket attaches a connected socket to the room under sessionID. All
// subsequent updates pushed on this socket are attributed to that session.
// The current snapshot is sent immediately; the call returns once the pumps
// are running.
func (r *Room) AcceptSocket(sessionID string, conn *websocket.Conn) {
	s := &session{
		id:     sessionID,
		conn:   conn,
		outbox: make(chan []byte, 1),
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	r.sessions[sessionID] = s
	r.mu.Unlock()
	r.logger.Info("room: session joined", "room_id", r.id, "session", sessionID)

	if data, err := json.Marshal(r.store.Snapshot()); err == nil {
		s.offer(data)
	}

	go s.writePump()
	go r.readPump(s)
}

// broadcast pushes the latest snapshot to every live session.
func (r *Room) broadcast() {
	r.mu.Lock()
	if len(r.sessions) == 0 {
		r.mu.Unlock()
		return
	}
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	data, err := json.Marshal(r.store.Snapshot())
	if err != nil {
		r.logger.Error("room: broadcast encode failed", "room_id", r.id, "error", err)
		return
	}
	for _, s := range sessions {
		s.offer(data)
	}
}

func (r *Room) dropSession(s *session) {
	r.mu.Lock()
	if r.sessions[s.id] == s {
		delete(r.sessions, s.id)
	}
	r.mu.Unlock()
	s.close()
	r.logger.Info("room: session left", "room_id", r.id, "session", s.id)
}

// readPump drains inbound frames until the client disconnects. The sync
// merge protocol is a collaborator concern; inbound payloads are not
// interpreted here.
func (r *Room) readPump(s *session) {
	defer r.dropSession(s)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *session) writePump() {
	defer s.conn.Close()
	for {
		select {
		case data := <-s.outbox:
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// offer replaces any queued update with the newer one.
func (s *session) offer(data []byte) {
	for {
		select {
		case s.outbox <- data:
			return
		default:
			select {
			case <-s.outbox:
			default:
			}
		}
	}
}

func (s *session) close() {
	s.closeOnce.Do(func() { close(s.done) })
	s.conn.Close()
}
