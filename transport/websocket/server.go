package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/pkg"
)

var errRecipientGone = errors.New("recipient connection is gone")

type matchmaker interface {
	Create(ctx context.Context, playerID, playerName string) (*entity.Snapshot, error)
	Join(ctx context.Context, code, playerID, playerName string) (*entity.Snapshot, error)
	Leave(ctx context.Context, playerID string) (*entity.Snapshot, error)
	Restart(ctx context.Context, playerID string) (*entity.Snapshot, error)
	Lookup(ctx context.Context, playerID string) (*entity.Snapshot, error)
}

type gameplay interface {
	ApplyMove(ctx context.Context, playerID string, cell int) (*entity.Snapshot, error)
}

type broadcaster interface {
	Deliver(ctx context.Context, snapshot *entity.Snapshot)
	DeliverClosed(ctx context.Context, snapshot *entity.Snapshot)
}

type Server struct {
	logger *slog.Logger

	matchmaker  matchmaker
	gameplay    gameplay
	broadcaster broadcaster

	handlers map[string]func(ctx context.Context, message *Message, conn *connection) error

	connectionsMutex sync.RWMutex
	connections      map[string]*connection

	refSeq atomic.Uint64
}

func New(logger *slog.Logger, matchmaker matchmaker, gameplay gameplay) *Server {
	server := &Server{
		logger: logger.With("component", "websocket"),

		matchmaker: matchmaker,
		gameplay:   gameplay,

		handlers:    make(map[string]func(context.Context, *Message, *connection) error),
		connections: make(map[string]*connection),
	}

	server.handlers["connect"] = server.handleConnect
	server.handlers["room:new"] = server.handleNewRoom
	server.handlers["room:join"] = server.handleJoinRoom
	server.handlers["room:turn"] = server.handleRoomTurn
	server.handlers["room:restart"] = server.handleRoomRestart
	server.handlers["room:leave"] = server.handleRoomLeave

	return server
}

// SetBroadcaster - wires the delivery side after construction; the
// broadcaster needs the server as its messenger.
func (that *Server) SetBroadcaster(b broadcaster) {
	that.broadcaster = b
}

// Start - starts WebSocket server.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Send - delivers a fresh update message to the player and returns its ref.
// Implements the service messenger contract.
func (that *Server) Send(_ context.Context, playerID string, update *entity.GameUpdate) (string, error) {
	conn, ok := that.connectionByPlayer(playerID)
	if !ok {
		return "", fmt.Errorf("%w: player %s", errRecipientGone, playerID)
	}

	ref := playerID + "#" + strconv.FormatUint(that.refSeq.Add(1), 10)

	if err := conn.sendMessage("room:update", Payload{Ref: ref, Update: update}); err != nil {
		return "", fmt.Errorf("failed to send update: %w", err)
	}

	return ref, nil
}

// Edit - re-delivers an update under an existing ref; the client replaces
// the referenced message in place. A gone recipient is an ignorable failure.
func (that *Server) Edit(_ context.Context, ref string, update *entity.GameUpdate) error {
	playerID, _, ok := strings.Cut(ref, "#")
	if !ok {
		return fmt.Errorf("%w: malformed ref %q", errRecipientGone, ref)
	}

	conn, connected := that.connectionByPlayer(playerID)
	if !connected {
		return fmt.Errorf("%w: player %s", errRecipientGone, playerID)
	}

	if err := conn.sendMessage("room:update", Payload{Ref: ref, Update: update}); err != nil {
		return fmt.Errorf("failed to edit update: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection to WebSocket.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeConnection")

	if req.Header.Get("Upgrade") != "websocket" {
		http.Error(writer, "not a websocket upgrade", http.StatusBadRequest)
		return
	}

	that.setSessionCookie(writer, req)

	key := req.Header.Get("Sec-WebSocket-Key")
	acceptKey := pkg.GenerateAcceptKey(key)

	writer.Header().Set("Upgrade", "websocket")
	writer.Header().Set("Connection", "Upgrade")
	writer.Header().Set("Sec-WebSocket-Accept", acceptKey)
	writer.WriteHeader(http.StatusSwitchingProtocols)

	hijacker, ok := writer.(http.Hijacker)
	if !ok {
		log.Error("web server does not support hijacking", "error", http.StatusText(http.StatusInternalServerError))
		return
	}

	conn, bufrw, err := hijacker.Hijack()
	if err != nil {
		log.Error("failed to hijack connection", "error", err)
		return
	}

	defer conn.Close()

	log.Info("WebSocket connection established")

	wsConn := &connection{bufrw: bufrw}

	if err = that.handleMessages(ctx, wsConn); err != nil {
		log.Error("error handling messages", "error", err)
	}

	that.handleDisconnect(wsConn)
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, conn *connection) error {
	log := that.logger.With("method", "handleMessages")

	for {
		reqBody, err := readRequest(conn.bufrw)
		if err != nil {
			log.Error("error reading message", "error", err)
			return err
		}

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			log.Error("failed to unmarshal message", "error", err)
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Error("unknown action", "action", message.Action)
			continue
		}

		if err = handler(ctx, &message, conn); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}

// setSessionCookie - set user session.
func (that *Server) setSessionCookie(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "setSessionCookie")

	cookie, err := req.Cookie("user_session")
	if err != nil {
		cookie = &http.Cookie{
			Name:    "user_session",
			Value:   pkg.GenerateNewSessionID(),
			Expires: time.Now().Add(24 * time.Hour),
			Path:    "/ws",
		}
		http.SetCookie(writer, cookie)
		log.Info("session cookie not found, new one created", "cookie", cookie.Value)
		return
	}

	log.Info("session cookie found", "cookie", cookie.Value)
}

func (that *Server) registerConnection(playerID string, conn *connection) {
	that.connectionsMutex.Lock()
	that.connections[playerID] = conn
	that.connectionsMutex.Unlock()
}

func (that *Server) connectionByPlayer(playerID string) (*connection, bool) {
	that.connectionsMutex.RLock()
	conn, ok := that.connections[playerID]
	that.connectionsMutex.RUnlock()

	return conn, ok
}

func (that *Server) handleDisconnect(conn *connection) {
	log := that.logger.With("method", "handleDisconnect")

	that.connectionsMutex.Lock()
	defer that.connectionsMutex.Unlock()

	for playerID, candidate := range that.connections {
		if candidate == conn {
			delete(that.connections, playerID)
			log.Info("player disconnected", "playerID", playerID)
			return
		}
	}
}
