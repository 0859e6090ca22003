package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	gojwt "github.com/golang-jwt/jwt/v5"
)

func TestSessionLogin(t *testing.T) {
	playerId := NewId()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		args := &AuthLoginArgs{}
		json.NewDecoder(r.Body).Decode(args)
		assert.Equal(t, "tower-blocks", args.GameId)

		token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
			"player_id": playerId.String(),
			"game_id":   args.GameId,
			"guest":     args.Guest,
		})
		sessionJwt, _ := token.SignedString([]byte("test-secret"))
		json.NewEncoder(w).Encode(&AuthLoginResult{
			SessionJwt: sessionJwt,
			Player: &AuthLoginResultPlayer{
				PlayerId: playerId,
				Guest:    args.Guest,
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	api := NewPlatformApi(server.URL)
	defer api.Close()
	session := NewSessionController(context.Background(), api)
	defer session.Close()

	assert.Equal(t, false, session.IsReady())

	result, err := session.LoginSync(&AuthLoginArgs{
		GameId:   "tower-blocks",
		DeviceId: "device-1",
		Guest:    true,
	})
	assert.Equal(t, nil, err)
	assert.NotEqual(t, "", result.SessionJwt)

	assert.Equal(t, true, session.IsReady())
	assert.Equal(t, playerId, session.Session().PlayerId)
	assert.Equal(t, true, session.Session().Guest)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	assert.Equal(t, nil, session.WaitForReady(waitCtx))
}

func TestSessionLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&AuthLoginResult{
			Error: &AuthLoginResultError{
				Message: "bad credentials",
			},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	api := NewPlatformApi(server.URL)
	defer api.Close()
	session := NewSessionController(context.Background(), api)
	defer session.Close()

	_, err := session.LoginSync(&AuthLoginArgs{
		GameId:   "tower-blocks",
		UserAuth: "alyx@example.com",
		Password: "wrong",
	})
	assert.NotEqual(t, nil, err)
	assert.Equal(t, "bad credentials", err.Error())
	assert.Equal(t, false, session.IsReady())
}

func TestSessionWaitForReady(t *testing.T) {
	playerId := NewId()

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
			"player_id": playerId.String(),
		})
		sessionJwt, _ := token.SignedString([]byte("test-secret"))
		json.NewEncoder(w).Encode(&AuthLoginResult{
			SessionJwt: sessionJwt,
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	api := NewPlatformApi(server.URL)
	defer api.Close()
	session := NewSessionController(context.Background(), api)
	defer session.Close()

	ready := make(chan error, 1)
	go func() {
		waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer waitCancel()
		ready <- session.WaitForReady(waitCtx)
	}()

	session.Login(&AuthLoginArgs{Guest: true}, NewNoopApiCallback[*AuthLoginResult]())

	select {
	case err := <-ready:
		assert.Equal(t, nil, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for session readiness")
	}
}
