package platform

import (
	"context"
	"errors"
	"sync"

	"github.com/golang/glog"
)

// owns the platform session: device login, the session jwt, and the
// decoded player identity. implements the readiness gate consumed by
// the save scheduler.
type SessionController struct {
	ctx    context.Context
	cancel context.CancelFunc

	api *PlatformApi

	readyMonitor *Monitor

	stateLock  sync.Mutex
	sessionJwt string
	session    *SessionJwt
}

func NewSessionController(ctx context.Context, api *PlatformApi) *SessionController {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &SessionController{
		ctx:          cancelCtx,
		cancel:       cancel,
		api:          api,
		readyMonitor: NewMonitor(),
	}
}

func (self *SessionController) Login(authLogin *AuthLoginArgs, callback AuthLoginCallback) {
	self.api.AuthLogin(authLogin, NewApiCallback[*AuthLoginResult](func(result *AuthLoginResult, err error) {
		if err == nil {
			err = self.setSession(result)
		}
		HandleError(func() {
			callback.Result(result, err)
		})
	}))
}

func (self *SessionController) LoginSync(authLogin *AuthLoginArgs) (*AuthLoginResult, error) {
	result, err := self.api.AuthLoginSync(authLogin)
	if err != nil {
		return result, err
	}
	if err := self.setSession(result); err != nil {
		return result, err
	}
	return result, nil
}

// resumes a previously established session from a stored jwt
func (self *SessionController) Resume(sessionJwt string) error {
	return self.setSession(&AuthLoginResult{
		SessionJwt: sessionJwt,
	})
}

func (self *SessionController) setSession(result *AuthLoginResult) error {
	if result.Error != nil {
		return errors.New(result.Error.Message)
	}
	if result.SessionJwt == "" {
		return errors.New("login did not establish a session")
	}

	session, err := ParseSessionJwtUnverified(result.SessionJwt)
	if err != nil {
		return err
	}

	self.stateLock.Lock()
	self.sessionJwt = result.SessionJwt
	self.session = session
	self.stateLock.Unlock()

	self.api.SetSessionJwt(result.SessionJwt)

	glog.Infof("[session]established player_id = %s\n", session.PlayerId)
	self.readyMonitor.NotifyAll()
	return nil
}

// `SessionGate`

func (self *SessionController) IsReady() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.sessionJwt != ""
}

func (self *SessionController) SessionJwt() string {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.sessionJwt
}

func (self *SessionController) Session() *SessionJwt {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.session
}

// blocks until a session is established or the context is done
func (self *SessionController) WaitForReady(ctx context.Context) error {
	for {
		notify := self.readyMonitor.NotifyChannel()
		if self.IsReady() {
			return nil
		}
		select {
		case <-notify:
		case <-ctx.Done():
			return ctx.Err()
		case <-self.ctx.Done():
			return self.ctx.Err()
		}
	}
}

func (self *SessionController) Close() {
	self.cancel()
}
