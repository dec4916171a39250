package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/pidone/internal/events"
)

// eventBuffer is the per-connection queue. Events are dropped for slow
// readers rather than stalling the supervision loop.
const eventBuffer = 64

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Live stream of reaps, orphan transitions, command lifecycle and trapped signals",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"process-reaped":       events.ProcessReapedEvent{},
		"orphan-state-changed": events.OrphanStateChangedEvent{},
		"command-spawned":      events.CommandSpawnedEvent{},
		"command-rekeyed":      events.CommandRekeyedEvent{},
		"command-dropped":      events.CommandDroppedEvent{},
		"signal-received":      events.SignalReceivedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, eventBuffer)
		unsubscribe := events.SubscribeAll(s.options.EventBus, eventCh)
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
