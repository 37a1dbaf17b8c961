package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/magnifier/internal/events"
	"github.com/smazurov/magnifier/internal/session"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time session state, zoom, notices, dropped frames and display changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"state":         events.SessionStateChangedEvent{},
		"zoom":          events.ZoomChangedEvent{},
		"notice":        events.NoticeEvent{},
		"frame-dropped": events.FrameDroppedEvent{},
		"display":       events.DisplayChangedEvent{},
		"session-ended": events.SessionEndedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.SessionStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ZoomChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.NoticeEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.FrameDroppedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.DisplayChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionEndedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Start every connection with the current state
		var status session.Status
		if err := s.options.Executor.Do(ctx, func() { status = s.options.Session.Status() }); err == nil {
			if err := send.Data(stateEvent(status)); err != nil {
				return
			}
		}

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

func stateEvent(st session.Status) events.SessionStateChangedEvent {
	return events.SessionStateChangedEvent{
		Phase:           string(st.Phase),
		ZoomRatio:       st.ZoomRatio,
		SliderProgress:  st.SliderProgress,
		TorchOn:         st.TorchOn,
		Inverted:        st.Inverted,
		Frozen:          st.Frozen,
		Degraded:        st.Degraded,
		ControlsEnabled: st.ControlsEnabled,
		Timestamp:       time.Now().Format(time.RFC3339),
	}
}
