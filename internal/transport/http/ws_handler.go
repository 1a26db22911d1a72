package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/courierchat/courier-server/internal/auth"
	"github.com/courierchat/courier-server/internal/config"
	"github.com/courierchat/courier-server/internal/core"
	"github.com/courierchat/courier-server/internal/proto"
	"github.com/courierchat/courier-server/internal/store"
	"github.com/courierchat/courier-server/internal/utils"
)

// WSHandler authenticates connection attempts, upgrades them, and bridges the
// socket to a core.Session.
type WSHandler struct {
	gatekeeper *auth.Service
	registry   *core.Registry
	router     *core.Router
	store      store.Store
	cfg        *config.Config
	log        *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(gatekeeper *auth.Service, registry *core.Registry, router *core.Router,
	st store.Store, cfg *config.Config, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		gatekeeper: gatekeeper,
		registry:   registry,
		router:     router,
		store:      st,
		cfg:        cfg,
		log:        logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	// Authentication happens before the upgrade: a bad token is refused
	// without allocating any connection state.
	user, err := h.gatekeeper.Authenticate(ctx, handshakeToken(r))
	if err != nil {
		h.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("ws handshake rejected")
		stdhttp.Error(w, "unauthorized", stdhttp.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageBytes)
	}

	client := core.NewClient(user.ID, user.Username, utils.NewID())
	session := core.NewSession(user, client, h.registry, h.router, h.store, h.store, h.log)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer session.End()

	if err := session.Begin(ctx); err != nil {
		h.log.Error().Err(err).Str("username", user.Username).Msg("session start failed")
		conn.Close(websocket.StatusInternalError, "session start failed")
		return
	}

	h.log.Info().
		Str("username", user.Username).
		Str("conn_id", client.ConnID).
		Int("online", h.registry.Count()).
		Msg("client connected")

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("username", user.Username).Msg("ws connection closed with error")
		}
	}

	session.End()
	h.log.Info().
		Str("username", user.Username).
		Str("conn_id", client.ConnID).
		Msg("client disconnected")

	conn.Close(status, reason)
}

// handshakeToken extracts the credential from the upgrade request: a token
// query parameter, or a bearer Authorization header.
func handshakeToken(r *stdhttp.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			return err
		}

		protoErr, err := dispatchInbound(ctx, session, inbound)
		if err != nil {
			h.log.Warn().Err(err).Msg("failed to decode inbound frame")
			return err
		}
		if protoErr != nil {
			if writeErr := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: protoErr,
			}); writeErr != nil {
				return writeErr
			}
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
