package platform

import (
	"context"
	"strings"
	"sync"
)

// cached player locale with pass-through get/set against the platform

type LocaleController struct {
	ctx    context.Context
	cancel context.CancelFunc

	api  *PlatformApi
	gate SessionGate

	stateLock sync.Mutex
	locale    string
}

func NewLocaleController(ctx context.Context, api *PlatformApi, gate SessionGate) *LocaleController {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &LocaleController{
		ctx:    cancelCtx,
		cancel: cancel,
		api:    api,
		gate:   gate,
	}
}

// lowercase language, uppercase region, dash separated.
// accepts underscore separators.
func NormalizeLocale(locale string) string {
	parts := strings.Split(strings.ReplaceAll(locale, "_", "-"), "-")
	for i, part := range parts {
		switch i {
		case 0:
			parts[i] = strings.ToLower(part)
		case 1:
			parts[i] = strings.ToUpper(part)
		}
	}
	return strings.Join(parts, "-")
}

func (self *LocaleController) LocaleSync() (string, error) {
	self.stateLock.Lock()
	locale := self.locale
	self.stateLock.Unlock()
	if locale != "" {
		return locale, nil
	}

	if !self.gate.IsReady() {
		return "", ErrNotReady
	}

	result, err := self.api.GetLocaleSync()
	if err != nil {
		return "", err
	}
	locale = NormalizeLocale(result.Locale)

	self.stateLock.Lock()
	self.locale = locale
	self.stateLock.Unlock()
	return locale, nil
}

func (self *LocaleController) Locale(callback GetLocaleCallback) {
	go HandleError(func() {
		locale, err := self.LocaleSync()
		if err != nil {
			callback.Result(nil, err)
			return
		}
		callback.Result(&GetLocaleResult{Locale: locale}, nil)
	})
}

func (self *LocaleController) SetLocaleSync(locale string) (string, error) {
	if !self.gate.IsReady() {
		return "", ErrNotReady
	}

	locale = NormalizeLocale(locale)
	result, err := self.api.SetLocaleSync(&SetLocaleArgs{
		Locale: locale,
	})
	if err != nil {
		return "", err
	}
	locale = NormalizeLocale(result.Locale)

	self.stateLock.Lock()
	self.locale = locale
	self.stateLock.Unlock()
	return locale, nil
}

func (self *LocaleController) SetLocale(locale string, callback SetLocaleCallback) {
	go HandleError(func() {
		setLocale, err := self.SetLocaleSync(locale)
		if err != nil {
			callback.Result(nil, err)
			return
		}
		callback.Result(&SetLocaleResult{Locale: setLocale}, nil)
	})
}

func (self *LocaleController) Close() {
	self.cancel()
}
