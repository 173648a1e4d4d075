// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/fieldgate/internal/config"
)

// cloudServer is a minimal WebSocket endpoint that records what the gateway
// sends and lets the test push envelopes to it.
type cloudServer struct {
	srv      *httptest.Server
	headers  chan http.Header
	conns    chan *websocket.Conn
	received chan Envelope
}

func newCloudServer(t *testing.T) *cloudServer {
	t.Helper()
	cs := &cloudServer{
		headers:  make(chan http.Header, 1),
		conns:    make(chan *websocket.Conn, 1),
		received: make(chan Envelope, 8),
	}
	upgrader := websocket.Upgrader{}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		cs.headers <- r.Header.Clone()
		cs.conns <- conn
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if json.Unmarshal(data, &env) == nil {
				cs.received <- env
			}
		}
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *cloudServer) endpoint() config.CloudEndpoint {
	return config.CloudEndpoint{
		Endpoint: "ws" + strings.TrimPrefix(cs.srv.URL, "http"),
		DeviceID: "gw-1",
		Token:    "tok",
	}
}

func (cs *cloudServer) next(t *testing.T) Envelope {
	t.Helper()
	select {
	case env := <-cs.received:
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
	return Envelope{}
}

func dialTest(t *testing.T, cs *cloudServer) (Client, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, config.TransportWebSocket, cs.endpoint(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, <-cs.conns
}

// ============================================================
// WebSocket transport
// ============================================================

func TestWebSocket_Handshake(t *testing.T) {
	cs := newCloudServer(t)
	dialTest(t, cs)

	h := <-cs.headers
	if h.Get(DeviceIDHeader) != "gw-1" || h.Get("Authorization") != "Bearer tok" {
		t.Errorf("handshake headers = %v", h)
	}
}

func TestWebSocket_Publish(t *testing.T) {
	cs := newCloudServer(t)
	c, _ := dialTest(t, cs)

	doc := []byte(`{"DeviceID":"AB","S1":"10"}`)
	if err := c.Publish(context.Background(), doc); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	env := cs.next(t)
	if env.Type != EnvelopeTelemetry || env.ID == "" {
		t.Errorf("envelope = %+v", env)
	}
	if string(env.Body) != string(doc) {
		t.Errorf("body = %s, want %s", env.Body, doc)
	}
}

func TestWebSocket_MethodDispatch(t *testing.T) {
	cs := newCloudServer(t)
	c, server := dialTest(t, cs)

	bodies := make(chan string, 1)
	err := c.RegisterMethod("Bond", func(body []byte) (int, []byte) {
		bodies <- string(body)
		return 414, []byte(`{"message":"address length"}`)
	})
	if err != nil {
		t.Fatalf("RegisterMethod: %v", err)
	}
	if err := c.RegisterMethod("Bond", nil); !errors.Is(err, ErrDuplicateMethod) {
		t.Errorf("duplicate register = %v", err)
	}

	call := `{"type":"method","id":"42","method":"Bond","body":{"DeviceAddress":"AA-BB"}}`
	if err := server.WriteMessage(websocket.TextMessage, []byte(call)); err != nil {
		t.Fatal(err)
	}

	env := cs.next(t)
	if env.Type != EnvelopeMethodResponse || env.ID != "42" || env.Status != 414 {
		t.Errorf("response = %+v", env)
	}
	if got := <-bodies; got != `{"DeviceAddress":"AA-BB"}` {
		t.Errorf("handler body = %s", got)
	}

	unknown := `{"type":"method","id":"43","method":"Reboot"}`
	if err := server.WriteMessage(websocket.TextMessage, []byte(unknown)); err != nil {
		t.Fatal(err)
	}
	if env := cs.next(t); env.Status != http.StatusNotFound || env.ID != "43" {
		t.Errorf("unknown method response = %+v", env)
	}
}

func TestWebSocket_PublishAfterClose(t *testing.T) {
	cs := newCloudServer(t)
	c, _ := dialTest(t, cs)
	c.Close()

	if err := c.Publish(context.Background(), []byte(`{}`)); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish after Close = %v, want ErrClosed", err)
	}
}

// ============================================================
// Dial and NATS helpers
// ============================================================

func TestDial_UnknownTransport(t *testing.T) {
	_, err := Dial(context.Background(), "Amqp", config.CloudEndpoint{Endpoint: "x", DeviceID: "y"}, zerolog.Nop())
	if !errors.Is(err, ErrUnknownTransport) {
		t.Errorf("err = %v, want ErrUnknownTransport", err)
	}
}

func TestDialWebSocket_BadScheme(t *testing.T) {
	_, err := DialWebSocket(context.Background(), config.CloudEndpoint{Endpoint: "nats://x", DeviceID: "y"}, zerolog.Nop())
	if err == nil {
		t.Error("expected scheme error")
	}
}

func TestSubjects(t *testing.T) {
	if got := TelemetrySubject("gw-1"); got != "devices.gw-1.telemetry" {
		t.Errorf("TelemetrySubject = %q", got)
	}
	if got := MethodSubject("gw-1", "Send"); got != "devices.gw-1.methods.Send" {
		t.Errorf("MethodSubject = %q", got)
	}
}

func TestMethodReply(t *testing.T) {
	msg := methodReply("_INBOX.x", 409, []byte(`{"message":"pending"}`))
	if msg.Subject != "_INBOX.x" || msg.Header.Get(StatusHeader) != "409" {
		t.Errorf("reply = %+v", msg)
	}
	if string(msg.Data) != `{"message":"pending"}` {
		t.Errorf("data = %s", msg.Data)
	}
}
