package platform

import (
	"fmt"

	"github.com/golang/glog"
)

// Logging convention for the platform sdk:
// Warning:
//     unexpected errors, including suppressed panics from user callbacks
// Info:
//     infrequent events useful for monitoring: session established,
//     realtime channel connect/disconnect, termination-risk flushes
// V(1):
//     per-operation outcomes: write committed, write failed, ad round trips
// V(2):
//     frequent trace events: save intake decisions, timer scheduling
//
// every message carries a bracketed component tag, e.g. [save], [session]

type LogFunction func(format string, a ...any)

func LogFn(v glog.Level, tag string) LogFunction {
	return func(format string, a ...any) {
		if glog.V(v) {
			m := fmt.Sprintf(format, a...)
			glog.InfoDepthf(1, "[%s]%s", tag, m)
		}
	}
}
