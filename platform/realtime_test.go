package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/gorilla/websocket"
)

func TestRealtimeSuspendTriggersTerminationRisk(t *testing.T) {
	upgrader := websocket.Upgrader{}

	authed := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/realtime", func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		auth := &realtimeAuth{}
		if err := json.Unmarshal(message, auth); err != nil {
			return
		}
		authed <- auth.SessionJwt

		// auth ack
		ws.WriteMessage(websocket.TextMessage, []byte(`{}`))

		eventBytes, _ := json.Marshal(&realtimeEvent{
			Type: realtimeEventSuspend,
		})
		ws.WriteMessage(websocket.TextMessage, eventBytes)

		// hold the connection open until the client goes away
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	sessionJwt := testSessionJwt(t, gojwt.MapClaims{
		"player_id": NewId().String(),
	})

	api := NewPlatformApi("http://localhost:0")
	defer api.Close()
	session := NewSessionController(context.Background(), api)
	defer session.Close()
	session.setSession(&AuthLoginResult{
		SessionJwt: sessionJwt,
	})

	lifecycle := NewLifecycleMonitor(context.Background(), &LifecycleMonitorSettings{})
	defer lifecycle.Close()

	notified := make(chan struct{}, 8)
	lifecycle.AddTerminationRiskCallback(func() {
		notified <- struct{}{}
	})

	realtimeUrl := strings.Replace(server.URL, "http", "ws", 1) + "/realtime"
	realtime := NewRealtimeChannelWithDefaults(context.Background(), realtimeUrl, session, lifecycle)
	defer realtime.Close()

	select {
	case jwt := <-authed:
		assert.Equal(t, sessionJwt, jwt)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for realtime auth")
	}

	select {
	case <-notified:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for termination risk notice")
	}
}
