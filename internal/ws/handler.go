// Package ws streams printer inventory events to WebSocket clients.
package ws

import (
	"context"
	"net/http"

	"github.com/HerbHall/assetscout/internal/auth"
	"github.com/HerbHall/assetscout/internal/inventory"
	"github.com/HerbHall/assetscout/pkg/plugin"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// StreamPath is the route serving the printer event stream.
const StreamPath = "/api/v1/ws/printers"

// Handler relays inventory events to WebSocket clients.
type Handler struct {
	hub    *Hub
	bus    plugin.EventBus
	logger *zap.Logger
	unsubs []func()
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to inventory events.
func NewHandler(bus plugin.EventBus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		hub:    NewHub(logger),
		bus:    bus,
		logger: logger,
	}
	h.subscribeToEvents()
	return h
}

// Hub returns the handler's client hub.
func (h *Handler) Hub() *Hub { return h.hub }

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+StreamPath, h.handlePrinterStream)
}

// Close detaches the handler from the event bus.
func (h *Handler) Close() {
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.unsubs = nil
}

// handlePrinterStream upgrades the connection and streams inventory events
// until the client disconnects. Authentication, when enabled, has already
// run in the server middleware.
func (h *Handler) handlePrinterStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin checks are replaced by bearer-token auth.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	subject := "anonymous"
	if c := auth.ClaimsFromContext(r.Context()); c != nil {
		subject = c.Subject
	}
	client := newClient(conn, subject, h.logger)
	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	client.readPump(ctx)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// subscribeToEvents forwards inventory events to all connected clients.
func (h *Handler) subscribeToEvents() {
	if h.bus == nil {
		return
	}

	h.unsubs = append(h.unsubs, h.bus.Subscribe(inventory.TopicScanStarted, func(_ context.Context, event plugin.Event) {
		e, ok := event.Payload.(inventory.ScanEvent)
		if !ok || e.Scan == nil {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageScanStarted,
			ScanID:    e.Scan.ID,
			Timestamp: event.Timestamp,
			Data: ScanStartedData{
				Trigger:   e.Scan.Trigger,
				StartedAt: e.Scan.StartedAt,
			},
		})
	}))

	printerFound := func(isNew bool) plugin.EventHandler {
		return func(_ context.Context, event plugin.Event) {
			e, ok := event.Payload.(inventory.PrinterEvent)
			if !ok || e.Printer == nil {
				return
			}
			h.hub.Broadcast(Message{
				Type:      MessageScanPrinterFound,
				ScanID:    e.ScanID,
				Timestamp: event.Timestamp,
				Data:      PrinterFoundData{Printer: e.Printer, New: isNew},
			})
		}
	}
	h.unsubs = append(h.unsubs,
		h.bus.Subscribe(inventory.TopicPrinterDiscovered, printerFound(true)),
		h.bus.Subscribe(inventory.TopicPrinterUpdated, printerFound(false)),
	)

	h.unsubs = append(h.unsubs, h.bus.Subscribe(inventory.TopicScanCompleted, func(_ context.Context, event plugin.Event) {
		e, ok := event.Payload.(inventory.ScanEvent)
		if !ok || e.Scan == nil {
			return
		}
		h.hub.Broadcast(Message{
			Type:      MessageScanCompleted,
			ScanID:    e.Scan.ID,
			Timestamp: event.Timestamp,
			Data: ScanCompletedData{
				Status:           e.Scan.Status,
				Printers:         e.Scan.Printers,
				HostsProbed:      e.Scan.HostsProbed,
				DeadlineExceeded: e.Scan.DeadlineExceeded,
				EndedAt:          e.Scan.EndedAt,
			},
		})
	}))

	h.logger.Info("subscribed to inventory events for WebSocket broadcasting")
}
