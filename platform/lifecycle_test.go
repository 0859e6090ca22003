package platform

import (
	"context"
	"os"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestLifecycleCallbacks(t *testing.T) {
	lifecycle := NewLifecycleMonitor(context.Background(), &LifecycleMonitorSettings{
		Signals: []os.Signal{},
	})
	defer lifecycle.Close()

	counts := map[string]int{}
	removeA := lifecycle.AddTerminationRiskCallback(func() {
		counts["a"] += 1
	})
	lifecycle.AddTerminationRiskCallback(func() {
		counts["b"] += 1
	})

	lifecycle.NotifyTerminationRisk()
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 1, counts["b"])

	removeA()
	lifecycle.NotifyTerminationRisk()
	assert.Equal(t, 1, counts["a"])
	assert.Equal(t, 2, counts["b"])
}

func TestLifecyclePanickingCallbackDoesNotBlockOthers(t *testing.T) {
	lifecycle := NewLifecycleMonitor(context.Background(), &LifecycleMonitorSettings{
		Signals: []os.Signal{},
	})
	defer lifecycle.Close()

	count := 0
	lifecycle.AddTerminationRiskCallback(func() {
		panic("broken handler")
	})
	lifecycle.AddTerminationRiskCallback(func() {
		count += 1
	})

	lifecycle.NotifyTerminationRisk()
	assert.Equal(t, 1, count)
}
