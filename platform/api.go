package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultHttpTimeout = 30 * time.Second
const defaultHttpConnectTimeout = 5 * time.Second
const defaultHttpTlsTimeout = 5 * time.Second

func defaultClient() *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultHttpConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultHttpTlsTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   defaultHttpTimeout,
	}
}

type apiCallback[R any] interface {
	Result(result R, err error)
}

// for internal use
type simpleApiCallback[R any] struct {
	callback func(result R, err error)
}

func NewApiCallback[R any](callback func(result R, err error)) apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: callback,
	}
}

func NewNoopApiCallback[R any]() apiCallback[R] {
	return &simpleApiCallback[R]{
		callback: func(result R, err error) {},
	}
}

func (self *simpleApiCallback[R]) Result(result R, err error) {
	self.callback(result, err)
}

type ApiCallbackResult[R any] struct {
	Result R
	Error  error
}

func NewBlockingApiCallback[R any](ctx context.Context) (apiCallback[R], chan ApiCallbackResult[R]) {
	c := make(chan ApiCallbackResult[R], 1)
	apiCallback := NewApiCallback[R](func(result R, err error) {
		r := ApiCallbackResult[R]{
			Result: result,
			Error:  err,
		}
		select {
		case c <- r:
		case <-ctx.Done():
		}
	})
	return apiCallback, c
}

type PlatformApi struct {
	ctx    context.Context
	cancel context.CancelFunc

	apiUrl string
	client *http.Client

	sessionJwt string
}

func NewPlatformApi(apiUrl string) *PlatformApi {
	return NewPlatformApiWithContext(context.Background(), apiUrl)
}

func NewPlatformApiWithContext(ctx context.Context, apiUrl string) *PlatformApi {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &PlatformApi{
		ctx:    cancelCtx,
		cancel: cancel,
		apiUrl: apiUrl,
		client: defaultClient(),
	}
}

// attached to api calls made after the session is established
func (self *PlatformApi) SetSessionJwt(sessionJwt string) {
	self.sessionJwt = sessionJwt
}

func (self *PlatformApi) Close() {
	self.cancel()
}

type AuthLoginCallback apiCallback[*AuthLoginResult]

type AuthLoginArgs struct {
	GameId     string `json:"game_id"`
	DeviceId   string `json:"device_id"`
	UserAuth   string `json:"user_auth,omitempty"`
	Password   string `json:"password,omitempty"`
	Guest      bool   `json:"guest,omitempty"`
	AppVersion string `json:"app_version,omitempty"`
}

type AuthLoginResultPlayer struct {
	PlayerId   Id     `json:"player_id"`
	PlayerName string `json:"player_name,omitempty"`
	Guest      bool   `json:"guest,omitempty"`
}

type AuthLoginResult struct {
	SessionJwt string                 `json:"session_jwt,omitempty"`
	Player     *AuthLoginResultPlayer `json:"player,omitempty"`
	Error      *AuthLoginResultError  `json:"error,omitempty"`
}

type AuthLoginResultError struct {
	Message string `json:"message"`
}

func (self *PlatformApi) AuthLogin(authLogin *AuthLoginArgs, callback AuthLoginCallback) {
	go post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/auth/login", self.apiUrl),
		authLogin,
		self.sessionJwt,
		&AuthLoginResult{},
		callback,
	)
}

func (self *PlatformApi) AuthLoginSync(authLogin *AuthLoginArgs) (*AuthLoginResult, error) {
	return post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/auth/login", self.apiUrl),
		authLogin,
		self.sessionJwt,
		&AuthLoginResult{},
		NewNoopApiCallback[*AuthLoginResult](),
	)
}

type StorageWriteCallback apiCallback[*StorageWriteResult]

type StorageWriteArgs struct {
	Data json.RawMessage `json:"data"`
	// bypass store-side write buffering
	Immediate bool `json:"immediate,omitempty"`
}

type StorageWriteResult struct {
	CommitTime uint64 `json:"commit_time,omitempty"`
}

func (self *PlatformApi) StorageWrite(storageWrite *StorageWriteArgs, callback StorageWriteCallback) {
	go post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/storage/write", self.apiUrl),
		storageWrite,
		self.sessionJwt,
		&StorageWriteResult{},
		callback,
	)
}

func (self *PlatformApi) StorageWriteSync(storageWrite *StorageWriteArgs) (*StorageWriteResult, error) {
	return post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/storage/write", self.apiUrl),
		storageWrite,
		self.sessionJwt,
		&StorageWriteResult{},
		NewNoopApiCallback[*StorageWriteResult](),
	)
}

type StorageReadCallback apiCallback[*StorageReadResult]

type StorageReadArgs struct {
	// empty means all keys
	Keys []string `json:"keys,omitempty"`
}

type StorageReadResult struct {
	Data json.RawMessage `json:"data"`
}

func (self *PlatformApi) StorageRead(storageRead *StorageReadArgs, callback StorageReadCallback) {
	go post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/storage/read", self.apiUrl),
		storageRead,
		self.sessionJwt,
		&StorageReadResult{},
		callback,
	)
}

func (self *PlatformApi) StorageReadSync(storageRead *StorageReadArgs) (*StorageReadResult, error) {
	return post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/storage/read", self.apiUrl),
		storageRead,
		self.sessionJwt,
		&StorageReadResult{},
		NewNoopApiCallback[*StorageReadResult](),
	)
}

type AdLoadCallback apiCallback[*AdLoadResult]

type AdLoadArgs struct {
	Placement string `json:"placement"`
}

type AdLoadResult struct {
	AdId Id   `json:"ad_id,omitempty"`
	Fill bool `json:"fill"`
}

func (self *PlatformApi) AdLoad(adLoad *AdLoadArgs, callback AdLoadCallback) {
	go post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/ad/load", self.apiUrl),
		adLoad,
		self.sessionJwt,
		&AdLoadResult{},
		callback,
	)
}

func (self *PlatformApi) AdLoadSync(adLoad *AdLoadArgs) (*AdLoadResult, error) {
	return post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/ad/load", self.apiUrl),
		adLoad,
		self.sessionJwt,
		&AdLoadResult{},
		NewNoopApiCallback[*AdLoadResult](),
	)
}

type AdCompleteCallback apiCallback[*AdCompleteResult]

type AdCompleteArgs struct {
	AdId Id `json:"ad_id"`
}

type AdCompleteResult struct {
	RewardGranted bool `json:"reward_granted"`
}

func (self *PlatformApi) AdComplete(adComplete *AdCompleteArgs, callback AdCompleteCallback) {
	go post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/ad/complete", self.apiUrl),
		adComplete,
		self.sessionJwt,
		&AdCompleteResult{},
		callback,
	)
}

func (self *PlatformApi) AdCompleteSync(adComplete *AdCompleteArgs) (*AdCompleteResult, error) {
	return post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/ad/complete", self.apiUrl),
		adComplete,
		self.sessionJwt,
		&AdCompleteResult{},
		NewNoopApiCallback[*AdCompleteResult](),
	)
}

type GetLocaleCallback apiCallback[*GetLocaleResult]

type GetLocaleResult struct {
	Locale string `json:"locale"`
}

func (self *PlatformApi) GetLocale(callback GetLocaleCallback) {
	go get(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/player/locale", self.apiUrl),
		self.sessionJwt,
		&GetLocaleResult{},
		callback,
	)
}

func (self *PlatformApi) GetLocaleSync() (*GetLocaleResult, error) {
	return get(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/player/locale", self.apiUrl),
		self.sessionJwt,
		&GetLocaleResult{},
		NewNoopApiCallback[*GetLocaleResult](),
	)
}

type SetLocaleCallback apiCallback[*SetLocaleResult]

type SetLocaleArgs struct {
	Locale string `json:"locale"`
}

type SetLocaleResult struct {
	Locale string `json:"locale"`
}

func (self *PlatformApi) SetLocale(setLocale *SetLocaleArgs, callback SetLocaleCallback) {
	go post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/player/locale", self.apiUrl),
		setLocale,
		self.sessionJwt,
		&SetLocaleResult{},
		callback,
	)
}

func (self *PlatformApi) SetLocaleSync(setLocale *SetLocaleArgs) (*SetLocaleResult, error) {
	return post(
		self.ctx,
		self.client,
		fmt.Sprintf("%s/player/locale", self.apiUrl),
		setLocale,
		self.sessionJwt,
		&SetLocaleResult{},
		NewNoopApiCallback[*SetLocaleResult](),
	)
}

func post[R any](ctx context.Context, client *http.Client, url string, args any, sessionJwt string, result R, callback apiCallback[R]) (R, error) {
	var requestBodyBytes []byte
	if args == nil {
		requestBodyBytes = make([]byte, 0)
	} else {
		var err error
		requestBodyBytes, err = json.Marshal(args)
		if err != nil {
			var empty R
			callback.Result(empty, err)
			return empty, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBodyBytes))
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	req.Header.Add("Content-Type", "application/json")

	if sessionJwt != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", sessionJwt))
	}

	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if http.StatusOK != r.StatusCode {
		// the response body is the error message
		errorMessage := strings.TrimSpace(string(responseBodyBytes))
		err = errors.New(errorMessage)
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}

func get[R any](ctx context.Context, client *http.Client, url string, sessionJwt string, result R, callback apiCallback[R]) (R, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	if sessionJwt != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", sessionJwt))
	}

	r, err := client.Do(req)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}
	defer r.Body.Close()

	responseBodyBytes, err := io.ReadAll(r.Body)

	if http.StatusOK != r.StatusCode {
		errorMessage := strings.TrimSpace(string(responseBodyBytes))
		err = errors.New(errorMessage)
		callback.Result(result, err)
		return result, err
	}

	if err != nil {
		callback.Result(result, err)
		return result, err
	}

	err = json.Unmarshal(responseBodyBytes, &result)
	if err != nil {
		var empty R
		callback.Result(empty, err)
		return empty, err
	}

	callback.Result(result, nil)
	return result, nil
}

// `RemoteStore`

func (self *PlatformApi) Write(ctx context.Context, payload []byte, immediate bool) error {
	_, err := self.StorageWriteSync(&StorageWriteArgs{
		Data:      json.RawMessage(payload),
		Immediate: immediate,
	})
	return err
}

func (self *PlatformApi) Read(ctx context.Context, keys []string) ([]byte, error) {
	result, err := self.StorageReadSync(&StorageReadArgs{
		Keys: keys,
	})
	if err != nil {
		return nil, err
	}
	return []byte(result.Data), nil
}
