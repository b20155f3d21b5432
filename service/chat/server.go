package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"PulseChat/logger"
	decode "PulseChat/tools/decode"
	ids "PulseChat/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenVerifier is the token service: it turns a credential presented during
// the handshake into a user id or fails the handshake.
type TokenVerifier interface {
	Authenticate(ctx context.Context, token string) (userID string, err error)
}

// MembershipSource is the persistent-store read the core needs: the member
// set of a conversation. The core never mutates membership.
type MembershipSource interface {
	Members(ctx context.Context, conversationID string) ([]string, error)
}

type Config struct {
	AuthTimeout  time.Duration // budget for the first (auth) frame
	IdleTimeout  time.Duration // read deadline, refreshed by pongs and frames
	PingEvery    time.Duration
	WriteTimeout time.Duration
	SendQueue    int // per-connection outbound queue length
}

func (c *Config) norm() {
	if c.AuthTimeout <= 0 {
		c.AuthTimeout = 15 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	if c.PingEvery <= 0 {
		c.PingEvery = 25 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 64
	}
}

// Server owns the live-connection side: handshake, the per-connection read
// loop, and the collaborators every handler needs. All dependencies are
// injected; nothing reaches into package globals.
type Server struct {
	cfg      Config
	reg      *Registry
	presence *Presence
	fanout   *Fanout
	disp     *Dispatcher
	auth     TokenVerifier
	members  MembershipSource
}

func NewServer(cfg Config, reg *Registry, presence *Presence, fanout *Fanout, auth TokenVerifier, members MembershipSource) *Server {
	cfg.norm()
	return &Server{
		cfg:      cfg,
		reg:      reg,
		presence: presence,
		fanout:   fanout,
		disp:     NewDispatcher(),
		auth:     auth,
		members:  members,
	}
}

func (s *Server) Registry() *Registry       { return s.reg }
func (s *Server) Presence() *Presence       { return s.presence }
func (s *Server) Fanout() *Fanout           { return s.fanout }
func (s *Server) Dispatcher() *Dispatcher   { return s.disp }
func (s *Server) Members() MembershipSource { return s.members }

// Register installs an inbound handler.
func (s *Server) Register(h Handler) { s.disp.Register(h) }

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS runs one connection through its whole lifecycle:
// Connecting -> Authenticating -> Active -> Closed.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[ws] upgrade failed: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), ws, s.cfg.SendQueue)
	client.setState(StateAuthenticating)
	go client.writePump(s.cfg.PingEvery, s.cfg.WriteTimeout)

	userID, err := s.handshake(client, ws)
	if err != nil {
		// auth failure closes the connection, no events in either direction
		logger.Infof("[ws] handshake rejected conn=%s: %v", client.ConnID, err)
		client.Close("authentication failed")
		return
	}

	prev := s.reg.Register(userID, client)
	if prev != nil {
		prev.Close("replaced by newer connection")
	}
	client.Bind(userID)
	logger.Infof("[ws] active user=%s conn=%s", userID, client.ConnID)

	s.readLoop(client, ws)

	// teardown: registry first so no new deliveries resolve this handle
	s.reg.Unregister(userID, client)
	client.Close("connection closed")
	for _, conversationID := range s.presence.DropUser(userID) {
		s.BroadcastPresence(context.Background(), conversationID)
	}
	logger.Infof("[ws] closed user=%s conn=%s", userID, client.ConnID)
}

// handshake reads exactly one frame, which must be a valid auth event.
func (s *Server) handshake(client *Client, ws *websocket.Conn) (string, error) {
	ws.SetReadLimit(1 << 20)
	if err := ws.SetReadDeadline(time.Now().Add(s.cfg.AuthTimeout)); err != nil {
		return "", err
	}

	_, raw, err := ws.ReadMessage()
	if err != nil {
		return "", err
	}
	ev, err := ParseEvent(raw)
	if err != nil {
		return "", err
	}
	if ev.Kind != KindAuth {
		return "", errAuthExpected(ev.Kind)
	}
	payload, err := decode.DecodeMap[AuthPayload](ev.Body)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.AuthTimeout)
	defer cancel()
	return s.auth.Authenticate(ctx, payload.Token)
}

// readLoop accepts frames while the connection stays Active.
func (s *Server) readLoop(client *Client, ws *websocket.Conn) {
	refresh := func() { _ = ws.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)) }
	refresh()
	ws.SetPongHandler(func(string) error { refresh(); return nil })

	for {
		mt, raw, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[ws] peer closed conn=%s", client.ConnID)
			} else if ne, ok := err.(net.Error); ok && ne.Timeout() {
				logger.Infof("[ws] idle timeout conn=%s", client.ConnID)
			} else {
				logger.Infof("[ws] read error conn=%s: %v", client.ConnID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		refresh()

		ev, perr := ParseEvent(raw)
		if perr != nil {
			sample := raw
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Infof("[ws] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}
		if ev.Kind == KindAuth {
			// already authenticated, re-auth frames are ignored
			continue
		}

		// inbound frames must reference a conversation the sender belongs
		// to; violations are logged, never surfaced, and the connection
		// stays active
		if !s.senderIsMember(client, ev) {
			logger.Warnf("[ws] membership violation user=%s conv=%s kind=%s",
				client.UserID, ev.ConversationID, ev.Kind)
			continue
		}

		ev.SenderID = client.UserID
		if err := s.disp.Dispatch(&Context{S: s}, ev, client); err != nil {
			logger.Infof("[ws] handler %s failed conn=%s: %v", ev.Kind, client.ConnID, err)
		}
	}
}

func (s *Server) senderIsMember(client *Client, ev *Event) bool {
	if ev.ConversationID == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	members, err := s.members.Members(ctx, ev.ConversationID)
	if err != nil {
		logger.Infof("[ws] membership lookup failed conv=%s: %v", ev.ConversationID, err)
		return false
	}
	for _, id := range members {
		if id == client.UserID {
			return true
		}
	}
	return false
}

// BroadcastPresence pushes the conversation's current online snapshot to all
// its members.
func (s *Server) BroadcastPresence(ctx context.Context, conversationID string) {
	members, err := s.members.Members(ctx, conversationID)
	if err != nil {
		logger.Infof("[presence] member lookup failed conv=%s: %v", conversationID, err)
		return
	}
	ev := BuildPresenceUpdate(conversationID, s.presence.Snapshot(conversationID))
	s.fanout.Dispatch(ev, members)
}

type errAuthExpected Kind

func (e errAuthExpected) Error() string {
	return "expected auth frame, got kind=" + string(e)
}
