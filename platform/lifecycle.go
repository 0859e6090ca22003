package platform

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
)

// invoked when the process may be destroyed without further notice
type TerminationRiskFunction func()

type LifecycleMonitorSettings struct {
	// os signals treated as termination risk.
	// empty disables signal watching.
	Signals []os.Signal
}

func DefaultLifecycleMonitorSettings() *LifecycleMonitorSettings {
	return &LifecycleMonitorSettings{
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// fans termination-risk events out to registered callbacks.
// events come from os signals and from the realtime channel
// (platform-side suspend and visibility notices).
type LifecycleMonitor struct {
	ctx    context.Context
	cancel context.CancelFunc

	settings *LifecycleMonitorSettings

	callbacks *callbackList[TerminationRiskFunction]
}

func NewLifecycleMonitorWithDefaults(ctx context.Context) *LifecycleMonitor {
	return NewLifecycleMonitor(ctx, DefaultLifecycleMonitorSettings())
}

func NewLifecycleMonitor(ctx context.Context, settings *LifecycleMonitorSettings) *LifecycleMonitor {
	cancelCtx, cancel := context.WithCancel(ctx)

	lifecycleMonitor := &LifecycleMonitor{
		ctx:       cancelCtx,
		cancel:    cancel,
		settings:  settings,
		callbacks: newCallbackList[TerminationRiskFunction](),
	}
	if 0 < len(settings.Signals) {
		go lifecycleMonitor.watchSignals()
	}
	return lifecycleMonitor
}

func (self *LifecycleMonitor) watchSignals() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, self.settings.Signals...)
	defer signal.Stop(signals)

	for {
		select {
		case s := <-signals:
			glog.Infof("[lifecycle]termination risk signal = %s\n", s)
			self.NotifyTerminationRisk()
		case <-self.ctx.Done():
			return
		}
	}
}

// returns a remove function
func (self *LifecycleMonitor) AddTerminationRiskCallback(callback TerminationRiskFunction) func() {
	return self.callbacks.add(callback)
}

func (self *LifecycleMonitor) NotifyTerminationRisk() {
	for _, callback := range self.callbacks.get() {
		HandleError(callback)
	}
}

func (self *LifecycleMonitor) Close() {
	self.cancel()
}
