package platform

import (
	"context"

	"github.com/golang/glog"
)

// top level sdk handle. composes the api client, session controller,
// save scheduler, lifecycle monitor, realtime channel, ads, and locale,
// and wires a forced save flush on every termination-risk event.

type PlatformSdkSettings struct {
	ApiUrl string
	// empty disables the realtime channel
	RealtimeUrl string

	SaveSettings      *SaveSchedulerSettings
	RealtimeSettings  *RealtimeChannelSettings
	LifecycleSettings *LifecycleMonitorSettings
}

func DefaultPlatformSdkSettings(apiUrl string, realtimeUrl string) *PlatformSdkSettings {
	return &PlatformSdkSettings{
		ApiUrl:            apiUrl,
		RealtimeUrl:       realtimeUrl,
		SaveSettings:      DefaultSaveSchedulerSettings(),
		RealtimeSettings:  DefaultRealtimeChannelSettings(),
		LifecycleSettings: DefaultLifecycleMonitorSettings(),
	}
}

type PlatformSdk struct {
	ctx    context.Context
	cancel context.CancelFunc

	api       *PlatformApi
	session   *SessionController
	saves     *SaveScheduler
	lifecycle *LifecycleMonitor
	realtime  *RealtimeChannel
	ads       *AdController
	locale    *LocaleController

	removeFlushCallback func()
}

func NewPlatformSdkWithDefaults(ctx context.Context, apiUrl string, realtimeUrl string) *PlatformSdk {
	return NewPlatformSdk(ctx, DefaultPlatformSdkSettings(apiUrl, realtimeUrl))
}

func NewPlatformSdk(ctx context.Context, settings *PlatformSdkSettings) *PlatformSdk {
	cancelCtx, cancel := context.WithCancel(ctx)

	api := NewPlatformApiWithContext(cancelCtx, settings.ApiUrl)
	session := NewSessionController(cancelCtx, api)
	saves := NewSaveScheduler(cancelCtx, api, session, NewSystemClock(), settings.SaveSettings)
	lifecycle := NewLifecycleMonitor(cancelCtx, settings.LifecycleSettings)
	var realtime *RealtimeChannel
	if settings.RealtimeUrl != "" {
		realtime = NewRealtimeChannel(cancelCtx, settings.RealtimeUrl, session, lifecycle, settings.RealtimeSettings)
	}
	ads := NewAdController(cancelCtx, api, session)
	locale := NewLocaleController(cancelCtx, api, session)

	sdk := &PlatformSdk{
		ctx:       cancelCtx,
		cancel:    cancel,
		api:       api,
		session:   session,
		saves:     saves,
		lifecycle: lifecycle,
		realtime:  realtime,
		ads:       ads,
		locale:    locale,
	}

	sdk.removeFlushCallback = lifecycle.AddTerminationRiskCallback(func() {
		glog.Infof("[sdk]termination risk flush\n")
		if _, err := saves.FlushSync(); err != nil {
			glog.Infof("[sdk]termination risk flush error = %s\n", err)
		}
	})

	return sdk
}

func (self *PlatformSdk) Api() *PlatformApi {
	return self.api
}

func (self *PlatformSdk) Session() *SessionController {
	return self.session
}

func (self *PlatformSdk) Saves() *SaveScheduler {
	return self.saves
}

func (self *PlatformSdk) Lifecycle() *LifecycleMonitor {
	return self.lifecycle
}

func (self *PlatformSdk) Ads() *AdController {
	return self.ads
}

func (self *PlatformSdk) Locale() *LocaleController {
	return self.locale
}

// flushes any pending save, then tears everything down
func (self *PlatformSdk) Close() {
	if _, err := self.saves.FlushSync(); err != nil {
		glog.Infof("[sdk]close flush error = %s\n", err)
	}
	self.removeFlushCallback()

	if self.realtime != nil {
		self.realtime.Close()
	}
	self.lifecycle.Close()
	self.ads.Close()
	self.locale.Close()
	self.saves.Close()
	self.session.Close()
	self.api.Close()
	self.cancel()
}
