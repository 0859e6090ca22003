package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
)

// the save scheduler rate limits writes of the player save blob to the
// remote store. intake calls coalesce into a single pending slot where
// only the most recent payload survives, so any burst of saves inside
// one rate-limit window commits exactly one write carrying the latest
// state. `Flush` bypasses the rate limit for termination-risk paths.

// the remote store the scheduler writes the save blob to.
// write and read are blocking; the scheduler runs them on
// their own goroutines.
type RemoteStore interface {
	Write(ctx context.Context, payload []byte, immediate bool) error
	Read(ctx context.Context, keys []string) ([]byte, error)
}

// reports whether a platform session is established.
// saves and loads are meaningless without one.
type SessionGate interface {
	IsReady() bool
}

var ErrNotReady = errors.New("session not ready")
var ErrSaveBusy = errors.New("save write already in flight")

// the store rejected or errored a write. the scheduler does not retry;
// retry policy belongs to the caller.
type RemoteWriteError struct {
	Cause error
}

func (self *RemoteWriteError) Error() string {
	return fmt.Sprintf("remote write failed: %s", self.Cause)
}

func (self *RemoteWriteError) Unwrap() error {
	return self.Cause
}

type RemoteReadError struct {
	Cause error
}

func (self *RemoteReadError) Error() string {
	return fmt.Sprintf("remote read failed: %s", self.Cause)
}

func (self *RemoteReadError) Unwrap() error {
	return self.Cause
}

type SaveCallback apiCallback[*SaveResult]

type SaveResult struct {
	// false when the request was absorbed into an already
	// scheduled write and has not individually committed
	Committed bool
}

type LoadCallback apiCallback[*LoadResult]

type LoadResult struct {
	Data []byte
}

type SaveSchedulerSettings struct {
	// minimum spacing between committed writes
	SaveInterval time.Duration
}

func DefaultSaveSchedulerSettings() *SaveSchedulerSettings {
	return &SaveSchedulerSettings{
		SaveInterval: 60 * time.Second,
	}
}

// the latest not-yet-committed save. at most one exists per scheduler;
// a new request always replaces rather than queues.
type pendingSave struct {
	payload   []byte
	immediate bool
}

type SaveScheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	store RemoteStore
	gate  SessionGate
	clock Clock

	settings *SaveSchedulerSettings

	traceLog LogFunction

	stateLock      sync.Mutex
	pending        *pendingSave
	lastCommitTime time.Time
	scheduledTimer ClockTimer
	timerId        uint64
	writeInFlight  bool
}

func NewSaveSchedulerWithDefaults(
	ctx context.Context,
	store RemoteStore,
	gate SessionGate,
) *SaveScheduler {
	return NewSaveScheduler(ctx, store, gate, NewSystemClock(), DefaultSaveSchedulerSettings())
}

func NewSaveScheduler(
	ctx context.Context,
	store RemoteStore,
	gate SessionGate,
	clock Clock,
	settings *SaveSchedulerSettings,
) *SaveScheduler {
	cancelCtx, cancel := context.WithCancel(ctx)

	return &SaveScheduler{
		ctx:      cancelCtx,
		cancel:   cancel,
		store:    store,
		gate:     gate,
		clock:    clock,
		settings: settings,
		traceLog: LogFn(2, "save"),
	}
}

// never blocks. the payload unconditionally replaces any pending save
// (last write wins). when the rate-limit window has elapsed the write
// begins before this returns; otherwise the save is coalesced and the
// callback resolves immediately with `Committed: false`, before the
// deferred write runs.
func (self *SaveScheduler) RequestSave(payload []byte, callback SaveCallback) error {
	return self.requestSave(payload, true, callback)
}

// like `RequestSave` but allows the store to buffer the write
// on its side
func (self *SaveScheduler) RequestSaveBuffered(payload []byte, callback SaveCallback) error {
	return self.requestSave(payload, false, callback)
}

func (self *SaveScheduler) RequestSaveSync(payload []byte) (*SaveResult, error) {
	callback, c := NewBlockingApiCallback[*SaveResult](self.ctx)
	if err := self.requestSave(payload, true, callback); err != nil {
		return nil, err
	}
	r := <-c
	return r.Result, r.Error
}

func (self *SaveScheduler) requestSave(payload []byte, immediate bool, callback SaveCallback) error {
	if !self.gate.IsReady() {
		return ErrNotReady
	}

	self.stateLock.Lock()

	save := &pendingSave{
		payload:   payload,
		immediate: immediate,
	}
	self.pending = save

	elapsed := self.clock.Now().Sub(self.lastCommitTime)
	if self.settings.SaveInterval <= elapsed && !self.writeInFlight {
		self.cancelTimer()
		self.pending = nil
		err := self.executeWrite(save, callback)
		self.stateLock.Unlock()
		if err != nil {
			// cannot happen, in flight was checked inside the lock
			return err
		}
		self.traceLog("intake immediate")
		return nil
	}

	// coalesce. a deferred write will carry this payload or a later one.
	if self.scheduledTimer == nil && !self.writeInFlight {
		self.schedule()
	}
	self.stateLock.Unlock()

	self.traceLog("intake coalesced")
	// resolves optimistically on scheduling, not on commit
	HandleError(func() {
		callback.Result(&SaveResult{}, nil)
	})
	return nil
}

// arms the deferred-write timer for the remainder of the current
// rate-limit window. must be called inside the state lock, with no
// timer currently armed and a pending save set.
func (self *SaveScheduler) schedule() {
	elapsed := self.clock.Now().Sub(self.lastCommitTime)
	timeout := self.settings.SaveInterval - elapsed
	if timeout < 0 {
		timeout = 0
	}
	self.timerId += 1
	timerId := self.timerId
	self.scheduledTimer = self.clock.AfterFunc(timeout, func() {
		self.timerFire(timerId)
	})
	self.traceLog("scheduled write in %s", timeout)
}

// must be called inside the state lock
func (self *SaveScheduler) cancelTimer() {
	if self.scheduledTimer != nil {
		self.scheduledTimer.Stop()
		self.scheduledTimer = nil
		// invalidate a callback that may have already fired
		// and is waiting on the state lock
		self.timerId += 1
	}
}

func (self *SaveScheduler) timerFire(timerId uint64) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	if timerId != self.timerId {
		// canceled or superseded
		return
	}
	self.scheduledTimer = nil
	if self.pending == nil {
		return
	}
	if self.writeInFlight {
		// keep the pending save. write completion re-arms the timer.
		return
	}
	save := self.pending
	self.pending = nil
	self.executeWrite(save, NewNoopApiCallback[*SaveResult]())
}

// begins a single-flight write attempt. the commit clock starts at
// attempt start, not success, so a slow or failing store call cannot
// be used to bypass the rate limit. must be called inside the state
// lock; the store call itself runs on a new goroutine.
func (self *SaveScheduler) executeWrite(save *pendingSave, callback SaveCallback) error {
	if self.writeInFlight {
		return ErrSaveBusy
	}
	self.writeInFlight = true
	self.lastCommitTime = self.clock.Now()

	go HandleError(func() {
		self.write(save, callback)
	})
	return nil
}

func (self *SaveScheduler) write(save *pendingSave, callback SaveCallback) {
	err := self.store.Write(self.ctx, save.payload, save.immediate)

	self.stateLock.Lock()
	self.writeInFlight = false
	if self.pending != nil && self.scheduledTimer == nil {
		// a save accumulated while the write was in flight.
		// arm the timer so the latest payload still lands.
		self.schedule()
	}
	self.stateLock.Unlock()

	if err != nil {
		glog.V(1).Infof("[save]write failed = %s\n", err)
		HandleError(func() {
			callback.Result(nil, &RemoteWriteError{Cause: err})
		})
		return
	}

	glog.V(1).Infof("[save]write committed\n")
	HandleError(func() {
		callback.Result(&SaveResult{Committed: true}, nil)
	})
}

// bypasses the rate limit. used when the process may terminate
// without further notice. if a write is already in flight it carries
// the most recent coalesced payload, so flush is a no-op; repeated
// flushes after the first produce no further writes.
func (self *SaveScheduler) Flush(callback SaveCallback) {
	self.stateLock.Lock()
	self.cancelTimer()
	if self.pending == nil || self.writeInFlight {
		self.stateLock.Unlock()
		HandleError(func() {
			callback.Result(&SaveResult{}, nil)
		})
		return
	}
	save := self.pending
	self.pending = nil
	self.executeWrite(save, callback)
	self.stateLock.Unlock()

	glog.V(1).Infof("[save]flush write\n")
}

func (self *SaveScheduler) FlushSync() (*SaveResult, error) {
	callback, c := NewBlockingApiCallback[*SaveResult](self.ctx)
	self.Flush(callback)
	select {
	case r := <-c:
		return r.Result, r.Error
	case <-self.ctx.Done():
		return nil, self.ctx.Err()
	}
}

// pass-through read of the save blob. no interaction with the
// pending save or the rate limit.
func (self *SaveScheduler) Load(keys []string, callback LoadCallback) error {
	if !self.gate.IsReady() {
		return ErrNotReady
	}
	go HandleError(func() {
		data, err := self.store.Read(self.ctx, keys)
		if err != nil {
			callback.Result(nil, &RemoteReadError{Cause: err})
			return
		}
		callback.Result(&LoadResult{Data: data}, nil)
	})
	return nil
}

func (self *SaveScheduler) LoadSync(keys []string) (*LoadResult, error) {
	callback, c := NewBlockingApiCallback[*LoadResult](self.ctx)
	if err := self.Load(keys, callback); err != nil {
		return nil, err
	}
	select {
	case r := <-c:
		return r.Result, r.Error
	case <-self.ctx.Done():
		return nil, self.ctx.Err()
	}
}

// reports whether a save is waiting for the current
// rate-limit window to elapse
func (self *SaveScheduler) HasPendingSave() bool {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	return self.pending != nil
}

func (self *SaveScheduler) Close() {
	self.cancel()

	self.stateLock.Lock()
	defer self.stateLock.Unlock()
	self.cancelTimer()
	self.pending = nil
}
