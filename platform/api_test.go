package platform

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestStorageWriteReadRoundTrip(t *testing.T) {
	var lastAuth string
	var lastWrite *StorageWriteArgs
	stored := json.RawMessage(`{}`)

	mux := http.NewServeMux()
	mux.HandleFunc("/storage/write", func(w http.ResponseWriter, r *http.Request) {
		lastAuth = r.Header.Get("Authorization")
		bodyBytes, _ := io.ReadAll(r.Body)
		args := &StorageWriteArgs{}
		if err := json.Unmarshal(bodyBytes, args); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		lastWrite = args
		stored = args.Data
		json.NewEncoder(w).Encode(&StorageWriteResult{
			CommitTime: 1,
		})
	})
	mux.HandleFunc("/storage/read", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(&StorageReadResult{
			Data: stored,
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	api := NewPlatformApi(server.URL)
	defer api.Close()
	api.SetSessionJwt("test-jwt")

	// `RemoteStore` write
	err := api.Write(context.Background(), []byte(`{"level":7}`), true)
	assert.Equal(t, nil, err)
	assert.Equal(t, "Bearer test-jwt", lastAuth)
	assert.Equal(t, true, lastWrite.Immediate)
	assert.Equal(t, `{"level":7}`, string(lastWrite.Data))

	// `RemoteStore` read
	data, err := api.Read(context.Background(), nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, `{"level":7}`, string(data))
}

func TestStorageWriteError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/storage/write", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage quota exceeded", http.StatusTooManyRequests)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	api := NewPlatformApi(server.URL)
	defer api.Close()

	err := api.Write(context.Background(), []byte(`{}`), false)
	assert.NotEqual(t, nil, err)
	assert.Equal(t, "storage quota exceeded", err.Error())
}

func TestApiCallbackAsync(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/storage/read", func(w http.ResponseWriter, r *http.Request) {
		args := &StorageReadArgs{}
		json.NewDecoder(r.Body).Decode(args)
		assert.Equal(t, []string{"level", "coins"}, args.Keys)
		json.NewEncoder(w).Encode(&StorageReadResult{
			Data: json.RawMessage(`{"level":2,"coins":10}`),
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	api := NewPlatformApi(server.URL)
	defer api.Close()

	callback, c := NewBlockingApiCallback[*StorageReadResult](context.Background())
	api.StorageRead(&StorageReadArgs{
		Keys: []string{"level", "coins"},
	}, callback)
	r := <-c
	assert.Equal(t, nil, r.Error)
	assert.Equal(t, `{"level":2,"coins":10}`, string(r.Result.Data))
}
