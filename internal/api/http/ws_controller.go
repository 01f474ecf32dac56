package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/immxrtalbeast/debatehall/internal/auth"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/internal/realtime"
	"github.com/immxrtalbeast/debatehall/internal/repository"
	"github.com/immxrtalbeast/debatehall/internal/service"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
)

const (
	CloseMissingCredential = 4001
	CloseInvalidCredential = 4002
	CloseSessionNotFound   = 4003

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	maxFrameSize = 16 << 10
)

const (
	frameMessage  = "message"
	frameTyping   = "typing"
	frameReaction = "reaction"
	framePing     = "ping"
	frameMarkRead = "mark_read"
)

type inboundFrame struct {
	Type            string      `json:"type"`
	Message         string      `json:"message"`
	ImageURL        string      `json:"image_url"`
	ReplyTo         *int64      `json:"reply_to"`
	Action          string      `json:"action"`
	MessageID       int64       `json:"message_id"`
	Emoji           string      `json:"emoji"`
	NotificationIDs []uuid.UUID `json:"notification_ids"`
}

type SocketConfig struct {
	AllowOrigins  []string
	TypingTimeout time.Duration
}

type SocketController struct {
	resolver      PrincipalResolver
	sessions      service.SessionInteractor
	presence      service.PresenceInteractor
	chat          service.ChatInteractor
	notifications service.NotificationInteractor
	hub           *realtime.Hub
	typingTimeout time.Duration
	upgrader      websocket.Upgrader
	log           *slog.Logger
}

func NewSocketController(
	cfg SocketConfig,
	resolver PrincipalResolver,
	sessions service.SessionInteractor,
	presence service.PresenceInteractor,
	chat service.ChatInteractor,
	notifications service.NotificationInteractor,
	hub *realtime.Hub,
	log *slog.Logger,
) *SocketController {
	if log == nil {
		log = slog.Default()
	}
	if cfg.TypingTimeout <= 0 {
		cfg.TypingTimeout = 3 * time.Second
	}
	return &SocketController{
		resolver:      resolver,
		sessions:      sessions,
		presence:      presence,
		chat:          chat,
		notifications: notifications,
		hub:           hub,
		typingTimeout: cfg.TypingTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowOrigins),
		},
		log: log,
	}
}

// SessionSocket serves the debate room of a session.
func (c *SocketController) SessionSocket(ctx *gin.Context) {
	const op = "http.socket.session"
	log := c.log.With(slog.String("op", op))

	sessionID, ok := sessionParam(ctx)
	if !ok {
		return
	}

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", sl.Err(err))
		return
	}
	defer conn.Close()

	// The request context ends once the handler hijacks the connection.
	bg := context.Background()

	principal, code, err := c.authenticate(bg, ctx.Query("token"))
	if err != nil {
		closeWith(conn, code, err.Error())
		return
	}
	log = log.With(slog.String("session_id", sessionID.String()), slog.String("user_id", principal.UserID.String()))

	session, err := c.sessions.GetSession(bg, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			closeWith(conn, CloseSessionNotFound, "session not found")
			return
		}
		log.Error("failed to load session", sl.Err(err))
		closeWith(conn, websocket.CloseInternalServerErr, "internal error")
		return
	}

	role, err := c.presence.Add(bg, sessionID, principal)
	if err != nil {
		if errors.Is(err, domain.ErrNotEligible) {
			_ = writeFrame(conn, domain.NewErrorEvent(err.Error()))
			closeWith(conn, websocket.ClosePolicyViolation, "not eligible")
			return
		}
		log.Error("failed to register presence", sl.Err(err))
		closeWith(conn, websocket.CloseInternalServerErr, "internal error")
		return
	}

	client := realtime.NewClient(sessionID, principal.UserID, principal.Username)
	online, err := c.presence.List(bg, sessionID)
	if err != nil {
		log.Warn("failed to list presence", sl.Err(err))
	}
	history, err := c.sessions.ListMessages(bg, sessionID, 0)
	if err != nil {
		log.Warn("failed to load history", sl.Err(err))
	}
	client.Enqueue(domain.NewConnectionEstablishedEvent(
		sessionID, principal, role, domain.DerivePhase(session, time.Now().UTC()), online, history,
	))
	c.hub.JoinRoom(client)

	readerDone := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(conn, client, readerDone, websocket.ClosePolicyViolation)
	}()
	// Runs on every exit of the reader, including a panicking frame handler.
	defer func() {
		close(readerDone)

		kicked := isDone(client.Done())
		stillConnected := c.hub.LeaveRoom(client)
		if !kicked && !stillConnected {
			if err := c.presence.Remove(bg, sessionID, principal); err != nil {
				log.Warn("failed to remove presence", sl.Err(err))
			}
		}
		client.Close()
		<-writerDone

		log.Info("socket disconnected", slog.Bool("kicked", kicked))
	}()

	log.Info("socket connected", slog.String("role", role))

	typing := &typingState{}
	defer typing.stop()

	c.readPump(conn, client, func(frame inboundFrame) {
		var err error
		switch frame.Type {
		case frameMessage:
			_, err = c.chat.SendMessage(bg, principal, sessionID, frame.Message, frame.ImageURL, frame.ReplyTo)
			if err == nil && typing.stop() {
				_ = c.chat.Typing(bg, principal, sessionID, client.ID, service.TypingStop)
			}
		case frameTyping:
			err = c.chat.Typing(bg, principal, sessionID, client.ID, frame.Action)
			if err == nil {
				if frame.Action == service.TypingStart {
					typing.reset(c.typingTimeout, func() {
						_ = c.chat.Typing(bg, principal, sessionID, client.ID, service.TypingStop)
					})
				} else {
					typing.stop()
				}
			}
		case frameReaction:
			err = c.chat.React(bg, principal, sessionID, frame.MessageID, frame.Emoji)
		case framePing:
			client.Enqueue(domain.NewPongEvent(time.Now()))
		default:
			err = errors.New("unknown message type")
		}
		if err != nil {
			client.Enqueue(domain.NewErrorEvent(errorText(err)))
		}
	})
}

// NotificationSocket streams personal notifications of the caller.
func (c *SocketController) NotificationSocket(ctx *gin.Context) {
	const op = "http.socket.notifications"
	log := c.log.With(slog.String("op", op))

	conn, err := c.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn("failed to upgrade connection", sl.Err(err))
		return
	}
	defer conn.Close()

	bg := context.Background()

	principal, code, err := c.authenticate(bg, ctx.Query("token"))
	if err != nil {
		closeWith(conn, code, err.Error())
		return
	}

	client := realtime.NewClient(uuid.Nil, principal.UserID, principal.Username)
	count, err := c.notifications.UnreadCount(bg, principal.UserID)
	if err != nil {
		log.Warn("failed to count unread notifications", sl.Err(err))
	}
	client.Enqueue(domain.NewUnreadCountEvent(count))
	c.hub.JoinUser(client)

	readerDone := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(conn, client, readerDone, websocket.CloseNormalClosure)
	}()
	defer func() {
		close(readerDone)
		c.hub.LeaveUser(client)
		client.Close()
		<-writerDone
	}()

	c.readPump(conn, client, func(frame inboundFrame) {
		switch frame.Type {
		case frameMarkRead:
			if _, err := c.notifications.MarkRead(bg, principal.UserID, frame.NotificationIDs); err != nil {
				client.Enqueue(domain.NewErrorEvent(errorText(err)))
			}
		case framePing:
			client.Enqueue(domain.NewPongEvent(time.Now()))
		default:
			client.Enqueue(domain.NewErrorEvent("unknown message type"))
		}
	})
}

func (c *SocketController) authenticate(ctx context.Context, token string) (domain.Principal, int, error) {
	principal, err := c.resolver.Resolve(ctx, token)
	switch {
	case err == nil:
		return principal, 0, nil
	case errors.Is(err, auth.ErrMissingToken):
		return domain.Principal{}, CloseMissingCredential, auth.ErrMissingToken
	default:
		return domain.Principal{}, CloseInvalidCredential, auth.ErrInvalidToken
	}
}

// readPump decodes frames until the peer goes away or the hub drops the client.
func (c *SocketController) readPump(conn *websocket.Conn, client *realtime.Client, handle func(inboundFrame)) {
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !isDone(client.Done()) {
				c.log.Debug("socket read failed", slog.String("client_id", client.ID), sl.Err(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			client.Enqueue(domain.NewErrorEvent("malformed frame"))
			continue
		}
		handle(frame)
	}
}

// writePump is the only writer of conn. When the hub drops the client while
// the reader is still running, queued events are flushed and the peer gets a
// close frame with kickCode.
func (c *SocketController) writePump(conn *websocket.Conn, client *realtime.Client, readerDone <-chan struct{}, kickCode int) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		select {
		case event := <-client.Events:
			if err := writeFrame(conn, event); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-client.Done():
			if isDone(readerDone) {
				return
			}
			flush(conn, client)
			closeWith(conn, kickCode, "")
			return
		}
	}
}

func flush(conn *websocket.Conn, client *realtime.Client) {
	for {
		select {
		case event := <-client.Events:
			if err := writeFrame(conn, event); err != nil {
				return
			}
		default:
			return
		}
	}
}

type typingState struct {
	timer *time.Timer
}

func (t *typingState) reset(after time.Duration, fn func()) {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(after, fn)
}

// stop reports whether an auto-stop was still pending.
func (t *typingState) stop() bool {
	if t.timer == nil {
		return false
	}
	pending := t.timer.Stop()
	t.timer = nil
	return pending
}

func writeFrame(conn *websocket.Conn, event domain.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}

func isDone(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func errorText(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		return slices.Contains(allowed, origin) || slices.Contains(allowed, "*")
	}
}
