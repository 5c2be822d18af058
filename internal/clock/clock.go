package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// NowMillis returns the current time as Unix milliseconds, the resolution of
// transition trace records.
func NowMillis() int64 { return NowFunc().UnixMilli() }
