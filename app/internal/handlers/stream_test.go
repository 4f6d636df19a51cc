package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/commentsweep/quota-server/app/domain/entities"
	"github.com/commentsweep/quota-server/app/internal/handlers"
)

func TestStream_DeliversSnapshots(t *testing.T) {
	snapshots := make(chan entities.Snapshot, 4)
	svc := &stubService{snapshots: snapshots}
	h := handlers.NewStreamHandler(svc, zerolog.Nop())

	server := httptest.NewServer(http.HandlerFunc(h.Handle))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	snapshots <- entities.Snapshot{Used: 900, DailyLimit: 10000}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap entities.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if snap.Used != 900 {
		t.Errorf("stream snapshot Used = %d, want 900", snap.Used)
	}

	// Closing the subscription channel ends the stream cleanly.
	close(snapshots)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&snap); err == nil {
		t.Error("expected stream to end after subscription closed")
	}
}
