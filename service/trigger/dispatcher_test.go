package trigger

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/params"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/transmit"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/waveform"
)

// fakeTransmitter counts invocations and can hold a transmission open
// until released.
type fakeTransmitter struct {
	err      error
	hold     chan struct{}
	active   int32
	maxSeen  int32
	attempts int32
}

var _ transmit.Transmitter = (*fakeTransmitter)(nil)

func (f *fakeTransmitter) Transmit(ctx context.Context, positive, negative waveform.Waveform) error {
	atomic.AddInt32(&f.attempts, 1)
	active := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if active <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, active) {
			break
		}
	}
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func newTestDispatcher(tr transmit.Transmitter) (Dispatcher, params.Store) {
	store := params.NewStore()
	d := NewDispatcher(Dependencies{
		Log:         zerolog.Nop(),
		Params:      store,
		Transmitter: tr,
	})
	return d, store
}

func TestRequestTriggerDropsWhileGenerating(t *testing.T) {
	tr := &fakeTransmitter{hold: make(chan struct{})}
	d, _ := newTestDispatcher(tr)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- d.RequestTrigger(context.Background(), SourceButton)
	}()

	// Wait for the first generation to hold the lock.
	deadline := time.Now().Add(time.Second)
	for !d.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("first generation never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := d.RequestTrigger(context.Background(), SourceNetwork); !IsBusy(err) {
		t.Errorf("expected BusyError, got %v", err)
	}

	close(tr.hold)
	if err := <-firstDone; err != nil {
		t.Errorf("first generation failed: %v", err)
	}
	if got := atomic.LoadInt32(&tr.attempts); got != 1 {
		t.Errorf("expected 1 transmission, got %d", got)
	}
}

// TestRequestTriggerStress fires simultaneous button and network triggers
// and verifies at most one generation is ever in flight.
func TestRequestTriggerStress(t *testing.T) {
	tr := &fakeTransmitter{}
	d, _ := newTestDispatcher(tr)

	const goroutines = 16
	const iterations = 50
	var wg sync.WaitGroup
	var succeeded int32
	for g := 0; g < goroutines; g++ {
		source := SourceButton
		if g%2 == 0 {
			source = SourceNetwork
		}
		wg.Add(1)
		go func(source Source) {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				if err := d.RequestTrigger(context.Background(), source); err == nil {
					atomic.AddInt32(&succeeded, 1)
				} else if !IsBusy(err) {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}(source)
	}
	wg.Wait()

	if max := atomic.LoadInt32(&tr.maxSeen); max > 1 {
		t.Errorf("observed %d concurrent transmissions", max)
	}
	if succeeded == 0 {
		t.Error("no trigger ever succeeded")
	}
}

func TestRequestTriggerOverflowReleasesLock(t *testing.T) {
	tr := &fakeTransmitter{}
	d, store := newTestDispatcher(tr)

	huge := uint32(waveform.MaxTicks/waveform.TicksPerMicro + 1)
	store.Apply(model.ParameterUpdate{Pulse2Low: &huge})

	err := d.RequestTrigger(context.Background(), SourceNetwork)
	if err == nil {
		t.Fatal("expected overflow error")
	}
	if atomic.LoadInt32(&tr.attempts) != 0 {
		t.Error("no hardware load may happen on overflow")
	}
	if d.Busy() {
		t.Error("lock left held after failed compilation")
	}

	// The next trigger with sane parameters must run.
	store.Reset()
	if err := d.RequestTrigger(context.Background(), SourceNetwork); err != nil {
		t.Errorf("trigger after overflow failed: %v", err)
	}
}

// ctxRecordingTransmitter fails when the generation context arrives
// already cancelled.
type ctxRecordingTransmitter struct {
	sawCancelled int32
}

var _ transmit.Transmitter = (*ctxRecordingTransmitter)(nil)

func (f *ctxRecordingTransmitter) Transmit(ctx context.Context, positive, negative waveform.Waveform) error {
	if ctx.Err() != nil {
		atomic.StoreInt32(&f.sawCancelled, 1)
		return ctx.Err()
	}
	return nil
}

// TestRequestTriggerOutlivesRequester verifies that cancelling the
// requesting context, as a disconnecting HTTP client does, no longer
// reaches the generation once it owns the lock.
func TestRequestTriggerOutlivesRequester(t *testing.T) {
	tr := &ctxRecordingTransmitter{}
	d, _ := newTestDispatcher(tr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.RequestTrigger(ctx, SourceNetwork); err != nil {
		t.Errorf("generation aborted by requester cancellation: %v", err)
	}
	if atomic.LoadInt32(&tr.sawCancelled) == 1 {
		t.Error("cancelled requester context reached the transmitter")
	}
}

func TestGenerationEventsPublished(t *testing.T) {
	tr := &fakeTransmitter{}
	d, _ := newTestDispatcher(tr)

	events := make(chan GenerationEvent, 1)
	cancel := d.RegisterGenerationEventReceiver(func(ev GenerationEvent) {
		select {
		case events <- ev:
		default:
		}
	})
	defer cancel()

	if err := d.RequestTrigger(context.Background(), SourceButton); err != nil {
		t.Fatalf("RequestTrigger failed: %v", err)
	}
	select {
	case ev := <-events:
		if ev.Source != SourceButton {
			t.Errorf("expected source button, got %s", ev.Source)
		}
		if ev.Error != "" {
			t.Errorf("expected no error, got %s", ev.Error)
		}
		if ev.Params != model.DefaultPulseParameters() {
			t.Errorf("unexpected parameter snapshot %+v", ev.Params)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for generation event")
	}
}
