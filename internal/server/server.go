package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/lotas/tabcounter/internal/applog"
	"nhooyr.io/websocket"
)

// ErrNotConnected is returned when no extension is connected.
var ErrNotConnected = errors.New("extension not connected")

// Capabilities is what the extension reports about the browser in hello.
type Capabilities struct {
	BadgeTextColor bool `json:"badgeTextColor"`
	HideTabs       bool `json:"hideTabs"`
}

// IncomingMsg is a message from the extension.
type IncomingMsg struct {
	Type         string        `json:"type"`
	Capabilities *Capabilities `json:"capabilities,omitempty"`
	Event        string        `json:"event,omitempty"`
	Reason       string        `json:"reason,omitempty"`
	Temporary    bool          `json:"temporary,omitempty"`
	// Sent by options pages that predate the typed message.
	UpdateSettings bool `json:"updateSettings,omitempty"`
	// Query response fields
	ID     string `json:"id,omitempty"`
	OK     *bool  `json:"ok,omitempty"`
	Count  *int   `json:"count,omitempty"`
	TabID  *int   `json:"tabId,omitempty"`
	TabIDs []int  `json:"tabIds,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OutgoingMsg is a command or query to the extension.
type OutgoingMsg struct {
	ID     string  `json:"id,omitempty"`
	Action string  `json:"action"`
	Text   *string `json:"text,omitempty"`
	TabID  *int    `json:"tabId,omitempty"`
	// Color is always sent; null on setBadgeTextColor restores automatic
	// contrast.
	Color *string `json:"color"`
	Title *string `json:"title,omitempty"`
	Path  string  `json:"path,omitempty"`
	// query.countTabs filters
	CurrentWindow bool  `json:"currentWindow,omitempty"`
	Hidden        *bool `json:"hidden,omitempty"`
}

// Outgoing actions.
const (
	ActionSetBadgeText            = "setBadgeText"
	ActionSetBadgeBackgroundColor = "setBadgeBackgroundColor"
	ActionSetBadgeTextColor       = "setBadgeTextColor"
	ActionSetTitle                = "setTitle"
	ActionSetIcon                 = "setIcon"
	QueryActiveTab                = "query.activeTab"
	QueryCountTabs                = "query.countTabs"
	QueryCountWindows             = "query.countWindows"
	QueryTabIDs                   = "query.tabIds"
)

// Server manages the WebSocket connection to the extension.
type Server struct {
	port    int
	msgs    chan IncomingMsg
	mu      sync.Mutex
	conn    *websocket.Conn
	connCtx context.Context
	pending map[string]chan IncomingMsg
}

// New creates a new Server. Port 0 means the caller manages the listener.
func New(port int) *Server {
	return &Server{
		port:    port,
		msgs:    make(chan IncomingMsg, 256),
		pending: make(map[string]chan IncomingMsg),
	}
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Messages returns the channel of unsolicited messages from the extension.
// Responses to Request are not delivered here.
func (s *Server) Messages() <-chan IncomingMsg {
	return s.msgs
}

// Connected reports whether an extension is connected.
func (s *Server) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Send sends a command to the connected extension.
func (s *Server) Send(msg OutgoingMsg) error {
	s.mu.Lock()
	conn := s.conn
	ctx := s.connCtx
	s.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	applog.Debug("ws.send", "action", msg.Action, "id", msg.ID)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// Request sends msg with a fresh ID and waits for the matching response.
// A response with ok=false or an error string is returned as an error.
func (s *Server) Request(ctx context.Context, msg OutgoingMsg) (IncomingMsg, error) {
	msg.ID = uuid.NewString()
	ch := make(chan IncomingMsg, 1)

	s.mu.Lock()
	s.pending[msg.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	if err := s.Send(msg); err != nil {
		return IncomingMsg{}, fmt.Errorf("%s: %w", msg.Action, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return IncomingMsg{}, fmt.Errorf("%s: %w", msg.Action, ErrNotConnected)
		}
		if resp.Error != "" {
			return resp, fmt.Errorf("%s: %s", msg.Action, resp.Error)
		}
		if resp.OK != nil && !*resp.OK {
			return resp, fmt.Errorf("%s: request failed", msg.Action)
		}
		return resp, nil
	case <-ctx.Done():
		return IncomingMsg{}, fmt.Errorf("%s: %w", msg.Action, ctx.Err())
	}
}

// deliver hands a response to its waiting Request. It reports false for
// messages nobody is waiting for.
func (s *Server) deliver(msg IncomingMsg) bool {
	if msg.ID == "" {
		return false
	}
	s.mu.Lock()
	ch, ok := s.pending[msg.ID]
	if ok {
		delete(s.pending, msg.ID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	ch <- msg
	return true
}

// failPending wakes every waiting Request after a disconnect.
func (s *Server) failPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPendingLocked()
}

// failPendingLocked is failPending with s.mu held.
func (s *Server) failPendingLocked() {
	for id, ch := range s.pending {
		close(ch)
		delete(s.pending, id)
	}
}

// Handler returns an http.Handler that accepts WebSocket upgrades.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			applog.Error("ws.accept", err)
			return
		}

		conn.SetReadLimit(1 << 20)

		ctx := r.Context()
		s.mu.Lock()
		if s.conn != nil {
			applog.Info("ws.replaced", "pending", len(s.pending))
			s.conn.CloseNow()
			// Queries sent on the old connection will never be answered.
			s.failPendingLocked()
		}
		s.conn = conn
		s.connCtx = ctx
		s.mu.Unlock()

		applog.Info("ws.connected", "remote", r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			current := s.conn == conn
			if current {
				s.conn = nil
				s.connCtx = nil
			}
			s.mu.Unlock()
			if current {
				s.failPending()
			}
			conn.CloseNow()
			applog.Info("ws.disconnected")
		}()

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var msg IncomingMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				applog.Error("ws.parse", err)
				continue
			}
			if s.deliver(msg) {
				continue
			}
			applog.Debug("ws.recv", "type", msg.Type, "event", msg.Event)
			select {
			case s.msgs <- msg:
			default:
				applog.Info("ws.dropped", "type", msg.Type)
			}
		}
	})
}

// ListenAndServe starts the WebSocket server on the configured port.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", s.Handler())

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	applog.Info("server.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
