package platform

import (
	"errors"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestCallbackList(t *testing.T) {
	callbacks := newCallbackList[func()]()

	counts := map[string]int{}
	removeA := callbacks.add(func() {
		counts["a"] += 1
	})
	removeB := callbacks.add(func() {
		counts["b"] += 1
	})

	for _, callback := range callbacks.get() {
		callback()
	}
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 1, counts["b"])

	removeA()
	for _, callback := range callbacks.get() {
		callback()
	}
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 2, counts["b"])

	// remove is idempotent
	removeA()
	removeB()
	assert.Equal(t, 0, len(callbacks.get()))
}

func TestMonitor(t *testing.T) {
	monitor := NewMonitor()

	notify := monitor.NotifyChannel()
	select {
	case <-notify:
		t.Fatal("channel closed before notify")
	default:
	}

	monitor.NotifyAll()
	select {
	case <-notify:
	default:
		t.Fatal("channel not closed after notify")
	}

	// a new channel is armed after each notify
	next := monitor.NotifyChannel()
	select {
	case <-next:
		t.Fatal("next channel closed before notify")
	default:
	}
}

func TestHandleError(t *testing.T) {
	var handled error
	HandleError(func() {
		panic(errors.New("callback failure"))
	}, func(err error) {
		handled = err
	})
	assert.NotEqual(t, nil, handled)
	assert.Equal(t, "callback failure", handled.Error())

	HandleError(func() {
		panic("not an error value")
	}, func(err error) {
		handled = err
	})
	assert.Equal(t, "not an error value", handled.Error())
}
