package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ashureev/audience-chat/internal/middleware"
	"github.com/ashureev/audience-chat/internal/protocol"
	"github.com/ashureev/audience-chat/internal/store"
	"github.com/coder/websocket"
)

const writeTimeout = 5 * time.Second

// ChatHandler serves the chat websocket endpoint. Every connection gets a
// new thread id.
type ChatHandler struct {
	repo     store.Repository
	composer *Composer
	policy   middleware.OriginPolicy
	threads  atomic.Int64
}

// NewChatHandler creates a new websocket chat handler.
func NewChatHandler(repo store.Repository, policy middleware.OriginPolicy) *ChatHandler {
	return &ChatHandler{
		repo:     repo,
		composer: NewComposer(repo),
		policy:   policy,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.policy.CheckRequest(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}

	threadID := strconv.FormatInt(h.threads.Add(1), 10)
	logger := slog.With("thread_id", threadID)
	logger.Info("Chat connection opened", "ip", r.RemoteAddr)

	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	ctx := r.Context()
	if err := write(ctx, ws, protocol.ThreadIDPrefix+threadID); err != nil {
		logger.Warn("Failed to send thread id", "error", err)
		return
	}
	if err := write(ctx, ws, Greeting); err != nil {
		logger.Warn("Failed to send greeting", "error", err)
		return
	}

	h.readLoop(ctx, ws, threadID, logger)
	logger.Info("Chat connection closed")
}

func (h *ChatHandler) readLoop(ctx context.Context, ws *websocket.Conn, threadID string, logger *slog.Logger) {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				logger.Debug("WebSocket closed by client")
			} else {
				logger.Warn("WebSocket read error", "error", err)
			}
			return
		}
		if typ != websocket.MessageText {
			logger.Debug("Ignoring binary frame", "bytes", len(data))
			continue
		}

		reply, err := h.handle(ctx, threadID, string(data), logger)
		if err != nil {
			logger.Error("Failed to handle message", "error", err)
			reply = "Sorry, something went wrong on our side. Please try again."
		}
		if reply == "" {
			continue
		}
		if err := write(ctx, ws, reply); err != nil {
			logger.Warn("Failed to send reply", "error", err)
			return
		}
	}
}

// handle returns the reply to one inbound text frame, or "" when none is due.
func (h *ChatHandler) handle(ctx context.Context, threadID, text string, logger *slog.Logger) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	sel, ok, err := protocol.DecodeSelection(text)
	if ok {
		if err != nil {
			logger.Warn("Rejected malformed selection", "error", err)
			return protocol.EncodeSelectionReceived("That selection was incomplete, please pick the categories again.")
		}
		id, err := h.repo.SaveSelection(ctx, threadID, sel.Categories)
		if err != nil {
			return "", fmt.Errorf("save selection: %w", err)
		}
		logger.Info("Selection saved", "selection_id", id, "categories", len(sel.Categories))
		return protocol.EncodeSelectionReceived(selectionSummary(sel.Categories))
	}

	return h.composer.Reply(ctx, text)
}

func write(ctx context.Context, ws *websocket.Conn, text string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, []byte(text))
}
