package linker

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger type accepted by [SetLogger], a thin
// alias over logiface's generic Logger bound to stumpy's JSON event,
// mirroring eventloop's own package-level structured-logger injection
// point (SetStructuredLogger).
type Logger = logiface.Logger[*stumpy.Event]

var (
	globalLoggerMu sync.RWMutex
	globalLogger   *Logger
)

// SetLogger installs the package-level structured logger used for the
// warning/error/critical log sites documented in SPEC_FULL.md. A nil
// logger (the default) disables logging entirely at zero cost to
// callers that never opt in.
func SetLogger(l *Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = l
}

func currentLogger() *Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

func logHeapExhausted(zone string) {
	l := currentLogger()
	if l == nil {
		return
	}
	l.Warning().Str("zone", zone).Log("node heap exhausted")
}

func logSafeZoneViolation(baseTick, playheadTick, safeZoneTicks uint32) {
	l := currentLogger()
	if l == nil {
		return
	}
	l.Warning().
		Uint64("base_tick", uint64(baseTick)).
		Uint64("playhead_tick", uint64(playheadTick)).
		Uint64("safe_zone_ticks", uint64(safeZoneTicks)).
		Log("safe zone violation")
}

func logKernelPanic(where string, spins uint64) {
	l := currentLogger()
	if l == nil {
		return
	}
	l.Crit().Str("where", where).Uint64("spins", spins).Log("dead-man's switch tripped, arena poisoned")
}

func logLoadFactorWarning(used, capacity uint32) {
	l := currentLogger()
	if l == nil {
		return
	}
	l.Warning().
		Uint64("used", uint64(used)).
		Uint64("capacity", uint64(capacity)).
		Float64("load_factor", float64(used)/float64(capacity)).
		Log("identity table load factor warning")
}

func logCommandQueueOverflow(capacity uint32) {
	l := currentLogger()
	if l == nil {
		return
	}
	l.Err().Uint64("capacity", uint64(capacity)).Log("command ring overflow")
}

func logIdentityUpdateFailed(sourceID uint32, err error) {
	l := currentLogger()
	if l == nil {
		return
	}
	l.Warning().Uint64("source_id", uint64(sourceID)).Str("error", err.Error()).Log("identity table update failed during splice")
}

func logUnknownOpcode(op uint32) {
	l := currentLogger()
	if l == nil {
		return
	}
	l.Warning().Uint64("opcode", uint64(op)).Log("unknown command opcode skipped")
}

// logContentionFlush reports an accumulated count of audio-thread
// versioned-read contention events. It is called periodically by the
// worker, never synchronously from the audio thread itself, since the
// audio thread must never block on a logger's I/O.
func logContentionFlush(count uint64) {
	l := currentLogger()
	if l == nil || count == 0 {
		return
	}
	l.Info().Uint64("count", count).Log("audio thread versioned-read contention since last flush")
}
