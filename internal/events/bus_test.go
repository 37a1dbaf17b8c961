package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan NoticeEvent, 1)

	unsub := bus.Subscribe(func(e NoticeEvent) {
		received <- e
	})
	defer unsub()

	event := NoticeEvent{
		Level:     "error",
		Message:   "Camera initialization failed",
		Timestamp: "2025-01-27T10:30:00Z",
	}
	bus.Publish(event)

	got := <-received
	if got.Message != event.Message {
		t.Errorf("message = %q, want %q", got.Message, event.Message)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan SessionStateChangedEvent, 1)
	received2 := make(chan SessionStateChangedEvent, 1)

	unsub1 := bus.Subscribe(func(e SessionStateChangedEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e SessionStateChangedEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(SessionStateChangedEvent{Phase: "live", ZoomRatio: 1})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan FrameDroppedEvent, 1)

	unsub := bus.Subscribe(func(e FrameDroppedEvent) {
		received <- e
	})

	bus.Publish(FrameDroppedEvent{Seq: 1, Stage: "decode"})
	<-received

	unsub()

	bus.Publish(FrameDroppedEvent{Seq: 2, Stage: "decode"})
	select {
	case <-received:
		t.Fatal("received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	zoomReceived := make(chan bool, 1)
	displayReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ ZoomChangedEvent) {
		zoomReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ DisplayChangedEvent) {
		displayReceived <- true
	})
	defer unsub2()

	bus.Publish(ZoomChangedEvent{Ratio: 2})
	<-zoomReceived

	select {
	case <-displayReceived:
		t.Fatal("display subscriber received ZoomChangedEvent")
	case <-time.After(10 * time.Millisecond):
	}

	bus.Publish(DisplayChangedEvent{Visible: "processed"})
	<-displayReceived

	select {
	case <-zoomReceived:
		t.Fatal("zoom subscriber received DisplayChangedEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(_ string) {})
	unsub()
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ FrameDroppedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(FrameDroppedEvent{
					Stage:     "decode",
					Timestamp: time.Now().Format(time.RFC3339),
				})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	bus := New()

	tests := []struct {
		name  string
		event Event
	}{
		{"SessionStateChanged", SessionStateChangedEvent{Phase: "live"}},
		{"ZoomChanged", ZoomChangedEvent{Ratio: 2}},
		{"Notice", NoticeEvent{Message: "hello"}},
		{"FrameDropped", FrameDroppedEvent{Stage: "orient"}},
		{"DisplayChanged", DisplayChangedEvent{Visible: "preview"}},
		{"SessionEnded", SessionEndedEvent{Reason: "denied"}},
		{"LogEntry", LogEntryEvent{Message: "log"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(_ *testing.T) {
			received := make(chan Event, 1)

			var unsub func()
			switch tt.event.(type) {
			case SessionStateChangedEvent:
				unsub = bus.Subscribe(func(e SessionStateChangedEvent) { received <- e })
			case ZoomChangedEvent:
				unsub = bus.Subscribe(func(e ZoomChangedEvent) { received <- e })
			case NoticeEvent:
				unsub = bus.Subscribe(func(e NoticeEvent) { received <- e })
			case FrameDroppedEvent:
				unsub = bus.Subscribe(func(e FrameDroppedEvent) { received <- e })
			case DisplayChangedEvent:
				unsub = bus.Subscribe(func(e DisplayChangedEvent) { received <- e })
			case SessionEndedEvent:
				unsub = bus.Subscribe(func(e SessionEndedEvent) { received <- e })
			case LogEntryEvent:
				unsub = bus.Subscribe(func(e LogEntryEvent) { received <- e })
			}
			defer unsub()

			bus.Publish(tt.event)
			<-received
		})
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[SessionEndedEvent](bus, ch)
	defer unsub()

	bus.Publish(SessionEndedEvent{Reason: "camera permission denied"})

	select {
	case got := <-ch:
		ev, ok := got.(SessionEndedEvent)
		if !ok {
			t.Fatalf("channel value type = %T, want SessionEndedEvent", got)
		}
		if ev.Reason != "camera permission denied" {
			t.Errorf("reason = %q, want %q", ev.Reason, "camera permission denied")
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered to channel")
	}
}

func TestSubscribeToChannelCountsDrops(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)

	unsub := SubscribeToChannel[NoticeEvent](bus, ch)
	defer unsub()

	for range 3 {
		bus.Publish(NoticeEvent{Message: "zoom unavailable"})
	}

	deadline := time.Now().Add(time.Second)
	for bus.Dropped() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Dropped() = %d, want 2", bus.Dropped())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(ch) != 1 {
		t.Errorf("channel holds %d events, want 1", len(ch))
	}
}

func TestEventJSONSerialization(t *testing.T) {
	tests := []struct {
		name   string
		event  any
		fields []string
	}{
		{
			"SessionStateChangedEvent",
			SessionStateChangedEvent{Phase: "frozen", ZoomRatio: 3, SliderProgress: 20, Frozen: true},
			[]string{"phase", "zoom_ratio", "slider_progress", "torch_on", "inverted", "frozen", "degraded", "controls_enabled"},
		},
		{
			"ZoomChangedEvent",
			ZoomChangedEvent{Ratio: 2, Progress: 10, Label: "2.0x"},
			[]string{"ratio", "progress", "label"},
		},
		{
			"FrameDroppedEvent",
			FrameDroppedEvent{Seq: 7, Stage: "decode", Error: "short buffer"},
			[]string{"seq", "stage", "error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var result map[string]any
			if unmarshalErr := json.Unmarshal(data, &result); unmarshalErr != nil {
				t.Fatalf("Unmarshal() error = %v", unmarshalErr)
			}

			for _, field := range tt.fields {
				if _, ok := result[field]; !ok {
					t.Errorf("field %q missing from %s", field, data)
				}
			}
		})
	}
}
