package platform

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/golang/glog"
)

// notifies listeners of state changes by closing the current
// update channel and replacing it with a new one
type Monitor struct {
	mutex  sync.Mutex
	update chan struct{}
}

func NewMonitor() *Monitor {
	return &Monitor{
		update: make(chan struct{}),
	}
}

func (self *Monitor) NotifyChannel() <-chan struct{} {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	return self.update
}

func (self *Monitor) NotifyAll() {
	self.mutex.Lock()
	defer self.mutex.Unlock()
	close(self.update)
	self.update = make(chan struct{})
}

// makes a copy of the list on update so that iteration
// never holds the lock while callbacks run
type callbackList[T any] struct {
	mutex          sync.Mutex
	nextCallbackId int
	callbacks      map[int]T
	ordered        []int
}

func newCallbackList[T any]() *callbackList[T] {
	return &callbackList[T]{
		callbacks: map[int]T{},
	}
}

func (self *callbackList[T]) add(callback T) func() {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	callbackId := self.nextCallbackId
	self.nextCallbackId += 1
	self.callbacks[callbackId] = callback
	self.ordered = append(self.ordered, callbackId)
	return func() {
		self.remove(callbackId)
	}
}

func (self *callbackList[T]) remove(callbackId int) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	delete(self.callbacks, callbackId)
	for i, orderedId := range self.ordered {
		if orderedId == callbackId {
			self.ordered = append(self.ordered[0:i], self.ordered[i+1:]...)
			break
		}
	}
}

func (self *callbackList[T]) get() []T {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	callbacks := make([]T, 0, len(self.ordered))
	for _, callbackId := range self.ordered {
		callbacks = append(callbacks, self.callbacks[callbackId])
	}
	return callbacks
}

// runs `do` and converts unexpected panics into logged errors
// so that a misbehaving user callback cannot wedge internal state
func HandleError(do func(), handlers ...func(error)) {
	defer func() {
		if r := recover(); r != nil {
			glog.Warningf("[util]unexpected error: %s\n%s", r, string(debug.Stack()))
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%s", r)
			}
			for _, handler := range handlers {
				handler(err)
			}
		}
	}()
	do()
}
