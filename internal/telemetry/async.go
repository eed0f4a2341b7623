package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"attendance-ledger/backend/internal/telemetry/domain"
)

// emitTimeout bounds one background emit.
const emitTimeout = 5 * time.Second

// inflight counts background emits that have not returned yet. idle is closed whenever the count
// drops to zero and replaced when it rises again.
var inflight struct {
	mu   sync.Mutex
	n    int
	idle chan struct{}
}

func beginEmit() {
	inflight.mu.Lock()
	if inflight.n == 0 {
		inflight.idle = make(chan struct{})
	}
	inflight.n++
	inflight.mu.Unlock()
}

func endEmit() {
	inflight.mu.Lock()
	inflight.n--
	if inflight.n == 0 {
		close(inflight.idle)
	}
	inflight.mu.Unlock()
}

// EmitAsync hands event to emitter on a goroutine and returns at once. Failures are logged.
// A nil emitter or event is a no-op. The emit runs on its own context so a finished request
// does not cancel it.
func EmitAsync(emitter EventEmitter, event *domain.Event) {
	if emitter == nil || event == nil {
		return
	}
	beginEmit()
	go func() {
		defer endEmit()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(ctx, event); err != nil {
			log.Printf("telemetry: %s emit failed: %v", event.EventType, err)
		}
	}()
}

// Drain waits for background emits started by EmitAsync. It returns ctx.Err() if ctx ends first.
// Call it after the servers stop and before the exporters shut down.
func Drain(ctx context.Context) error {
	inflight.mu.Lock()
	idle := inflight.idle
	inflight.mu.Unlock()
	if idle == nil {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DrainTimeout is the longest a shutdown should wait in Drain.
const DrainTimeout = emitTimeout
