package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"resumeStudio/internal/api/middleware"
	"resumeStudio/internal/session"
)

const (
	wsWriteWait    = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

// WsHandler 在会话状态每次变化后向客户端推送解析后的视图。
type WsHandler struct {
	viewer
	upgrader       websocket.Upgrader
	allowedOrigins []string
}

// NewWsHandler 构造 WebSocket 处理器。allowedOrigins 为空时只允许同源。
func NewWsHandler(v viewer, allowedOrigins []string) *WsHandler {
	h := &WsHandler{
		viewer:         v,
		allowedOrigins: allowedOrigins,
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(h.allowedOrigins) == 0 {
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			}
			for _, allowed := range h.allowedOrigins {
				if origin == allowed {
					return true
				}
			}
			return false
		},
	}
	return h
}

// GET /v1/ws
// 连接建立后立即推送一次当前视图，之后每次状态变化推送一次。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	entry := middleware.SessionFromContext(c)
	logger := middleware.LoggerFromContext(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	go h.readLoop(conn, cancel)

	if err := h.pushLoop(ctx, conn, entry); err != nil {
		logger.Debug("websocket closed", slog.Any("error", err))
	}
}

// readLoop 丢弃客户端消息，只用于感知断开。
func (h *WsHandler) readLoop(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WsHandler) pushLoop(ctx context.Context, conn *websocket.Conn, entry *session.Entry) error {
	changes, unsubscribe := entry.Controller.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	if err := h.push(conn, entry); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			writeClose(conn, websocket.CloseNormalClosure, "bye")
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			if err := h.push(conn, entry); err != nil {
				return err
			}
		case <-ticker.C:
			deadline := time.Now().Add(wsWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				return err
			}
		}
	}
}

func (h *WsHandler) push(conn *websocket.Conn, entry *session.Entry) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(h.render(entry))
}

func writeClose(conn *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(wsWriteWait)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
