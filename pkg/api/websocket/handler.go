package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/aescanero/irrigation/pkg/domain"
	"github.com/aescanero/irrigation/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboards are served from any origin
	},
}

// SnapshotSource provides the state sent when a client connects.
type SnapshotSource interface {
	Snapshot() domain.Snapshot
}

// Handler handles WebSocket connections
type Handler struct {
	eventBus   ports.EventBus
	source     SnapshotSource
	bufferSize int
	logger     *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus ports.EventBus, source SnapshotSource, bufferSize int, logger *zap.Logger) *Handler {
	if bufferSize < 1 {
		bufferSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		eventBus:   eventBus,
		source:     source,
		bufferSize: bufferSize,
		logger:     logger,
	}
}

// HandleStateStream streams state-change events to one client
func (h *Handler) HandleStateStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	eventChan := make(chan domain.Event, h.bufferSize)
	if err := h.eventBus.Subscribe(ctx, domain.TopicState, h.enqueue(eventChan)); err != nil {
		h.logger.Error("failed to subscribe to state events", zap.Error(err))
		return
	}

	// Reading is only used to notice the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	initial := domain.Event{
		ID:        uuid.New().String(),
		Type:      domain.EventSnapshot,
		Timestamp: time.Now(),
		Data:      h.source.Snapshot().SensorsView(),
	}
	if err := h.write(conn, initial); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket connection closed", zap.String("client", c.ClientIP()))
			return
		case event := <-eventChan:
			if err := h.write(conn, event); err != nil {
				return
			}
		}
	}
}

// enqueue returns a bus handler that never blocks the publisher
func (h *Handler) enqueue(ch chan<- domain.Event) ports.EventHandler {
	return func(ctx context.Context, event domain.Event) error {
		select {
		case ch <- event:
		default:
			h.logger.Warn("event channel full, dropping event",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)))
		}
		return nil
	}
}

func (h *Handler) write(conn *websocket.Conn, event domain.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(event); err != nil {
		h.logger.Error("failed to write message", zap.Error(err))
		return err
	}
	return nil
}
