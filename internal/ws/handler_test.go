package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/assetscout/internal/event"
	"github.com/HerbHall/assetscout/internal/inventory"
	"github.com/HerbHall/assetscout/internal/server"
	"github.com/HerbHall/assetscout/pkg/models"
	"github.com/HerbHall/assetscout/pkg/plugin"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type wireMessage struct {
	Type   MessageType `json:"type"`
	ScanID string      `json:"scan_id"`
	Data   struct {
		Printer  *models.Printer   `json:"printer"`
		New      bool              `json:"new"`
		Trigger  string            `json:"trigger"`
		Status   models.ScanStatus `json:"status"`
		Printers int               `json:"printers"`
	} `json:"data"`
}

// noModules is an empty module registry for mounting the stream on a
// full server.
type noModules struct{}

func (noModules) AllRoutes() map[string][]plugin.Route { return nil }
func (noModules) All() []plugin.Plugin                 { return nil }
func (noModules) HealthAll(context.Context) map[string]plugin.HealthStatus {
	return nil
}

func bareMux(h *Handler) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func fullServer(h *Handler) http.Handler {
	return server.New("127.0.0.1:0", noModules{}, zap.NewNop(), nil, nil, h).Handler()
}

func dialStream(t *testing.T) (*Handler, *event.Bus, *websocket.Conn, context.Context) {
	return dialStreamVia(t, bareMux)
}

func dialStreamVia(t *testing.T, mount func(*Handler) http.Handler) (*Handler, *event.Bus, *websocket.Conn, context.Context) {
	t.Helper()
	bus := event.NewBus(zap.NewNop())
	h := NewHandler(bus, zap.NewNop())
	t.Cleanup(h.Close)

	srv := httptest.NewServer(mount(h))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + StreamPath
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	require.Eventually(t, func() bool { return h.Hub().ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)
	return h, bus, conn, ctx
}

func TestPrinterStream_RelaysInventoryEvents(t *testing.T) {
	_, bus, conn, ctx := dialStream(t)

	scan := &models.ScanRun{ID: "scan-1", Trigger: "manual", Status: models.ScanStatusRunning}
	printer := &models.Printer{
		ID:            "p-1",
		PrinterRecord: models.PrinterRecord{IPAddress: "10.0.0.5", Status: models.PrinterStatusIdle},
	}

	// A payload of the wrong type is ignored.
	_ = bus.Publish(ctx, plugin.Event{Topic: inventory.TopicScanStarted, Payload: "bogus"})
	_ = bus.Publish(ctx, plugin.Event{Topic: inventory.TopicScanStarted, Timestamp: time.Now(),
		Payload: inventory.ScanEvent{Scan: scan}})
	_ = bus.Publish(ctx, plugin.Event{Topic: inventory.TopicPrinterDiscovered, Timestamp: time.Now(),
		Payload: inventory.PrinterEvent{ScanID: "scan-1", Printer: printer}})
	_ = bus.Publish(ctx, plugin.Event{Topic: inventory.TopicPrinterUpdated, Timestamp: time.Now(),
		Payload: inventory.PrinterEvent{ScanID: "scan-1", Printer: printer}})

	done := *scan
	done.Status = models.ScanStatusCompleted
	done.Printers = 1
	_ = bus.Publish(ctx, plugin.Event{Topic: inventory.TopicScanCompleted, Timestamp: time.Now(),
		Payload: inventory.ScanEvent{Scan: &done}})

	var msgs []wireMessage
	for i := 0; i < 4; i++ {
		var m wireMessage
		require.NoError(t, wsjson.Read(ctx, conn, &m))
		msgs = append(msgs, m)
	}

	assert.Equal(t, MessageScanStarted, msgs[0].Type)
	assert.Equal(t, "manual", msgs[0].Data.Trigger)

	assert.Equal(t, MessageScanPrinterFound, msgs[1].Type)
	require.NotNil(t, msgs[1].Data.Printer)
	assert.Equal(t, "10.0.0.5", msgs[1].Data.Printer.IPAddress)
	assert.True(t, msgs[1].Data.New)

	assert.Equal(t, MessageScanPrinterFound, msgs[2].Type)
	assert.False(t, msgs[2].Data.New)

	assert.Equal(t, MessageScanCompleted, msgs[3].Type)
	assert.Equal(t, models.ScanStatusCompleted, msgs[3].Data.Status)
	assert.Equal(t, 1, msgs[3].Data.Printers)
	for _, m := range msgs {
		assert.Equal(t, "scan-1", m.ScanID)
	}
}

func TestPrinterStream_ClientDisconnectUnregisters(t *testing.T) {
	h, _, conn, _ := dialStream(t)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	assert.Eventually(t, func() bool { return h.Hub().ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestHandler_CloseUnsubscribes(t *testing.T) {
	bus := event.NewBus(zap.NewNop())
	h := NewHandler(bus, zap.NewNop())
	c := newTestClient("direct")
	h.Hub().Register(c)

	h.Close()
	_ = bus.Publish(context.Background(), plugin.Event{Topic: inventory.TopicScanStarted,
		Payload: inventory.ScanEvent{Scan: &models.ScanRun{ID: "x"}}})

	assert.Empty(t, c.send)
}

func TestPrinterStream_ThroughServerMiddleware(t *testing.T) {
	_, bus, conn, ctx := dialStreamVia(t, fullServer)

	_ = bus.Publish(ctx, plugin.Event{Topic: inventory.TopicScanStarted, Timestamp: time.Now(),
		Payload: inventory.ScanEvent{Scan: &models.ScanRun{ID: "scan-9", Trigger: "schedule"}}})

	var m wireMessage
	require.NoError(t, wsjson.Read(ctx, conn, &m))
	assert.Equal(t, MessageScanStarted, m.Type)
	assert.Equal(t, "scan-9", m.ScanID)
	assert.Equal(t, "schedule", m.Data.Trigger)
}
