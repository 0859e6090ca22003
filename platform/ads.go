package platform

import (
	"context"
	"errors"
	"sync"

	"github.com/golang/glog"
)

var ErrAdBusy = errors.New("ad presentation already in progress")
var ErrAdNoFill = errors.New("no ad fill for placement")

type RewardedAdCallback apiCallback[*RewardedAdResult]

type RewardedAdResult struct {
	AdId Id
	// true only when the platform confirmed completion
	RewardGranted bool
}

// presents rewarded ads. one presentation at a time; the reward is
// granted only on a platform-confirmed completion round trip.
type AdController struct {
	ctx    context.Context
	cancel context.CancelFunc

	api  *PlatformApi
	gate SessionGate

	stateLock  sync.Mutex
	presenting bool
}

func NewAdController(ctx context.Context, api *PlatformApi, gate SessionGate) *AdController {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &AdController{
		ctx:    cancelCtx,
		cancel: cancel,
		api:    api,
		gate:   gate,
	}
}

func (self *AdController) ShowRewarded(placement string, callback RewardedAdCallback) error {
	if !self.gate.IsReady() {
		return ErrNotReady
	}

	self.stateLock.Lock()
	if self.presenting {
		self.stateLock.Unlock()
		return ErrAdBusy
	}
	self.presenting = true
	self.stateLock.Unlock()

	go HandleError(func() {
		self.showRewarded(placement, callback)
	}, func(err error) {
		self.endPresentation()
	})
	return nil
}

func (self *AdController) ShowRewardedSync(placement string) (*RewardedAdResult, error) {
	callback, c := NewBlockingApiCallback[*RewardedAdResult](self.ctx)
	if err := self.ShowRewarded(placement, callback); err != nil {
		return nil, err
	}
	select {
	case r := <-c:
		return r.Result, r.Error
	case <-self.ctx.Done():
		return nil, self.ctx.Err()
	}
}

func (self *AdController) showRewarded(placement string, callback RewardedAdCallback) {
	defer self.endPresentation()

	load, err := self.api.AdLoadSync(&AdLoadArgs{
		Placement: placement,
	})
	if err != nil {
		HandleError(func() {
			callback.Result(nil, err)
		})
		return
	}
	if !load.Fill {
		glog.V(1).Infof("[ad]no fill placement = %s\n", placement)
		HandleError(func() {
			callback.Result(nil, ErrAdNoFill)
		})
		return
	}

	complete, err := self.api.AdCompleteSync(&AdCompleteArgs{
		AdId: load.AdId,
	})
	if err != nil {
		HandleError(func() {
			callback.Result(nil, err)
		})
		return
	}

	glog.V(1).Infof("[ad]completed placement = %s reward = %t\n", placement, complete.RewardGranted)
	HandleError(func() {
		callback.Result(&RewardedAdResult{
			AdId:          load.AdId,
			RewardGranted: complete.RewardGranted,
		}, nil)
	})
}

func (self *AdController) endPresentation() {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.presenting = false
}

func (self *AdController) Close() {
	self.cancel()
}
