package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/devices"
	"github.com/kevinxiey/Double-Pulse-Test-DPT/service/mqtt"
)

// slowFailingMqtt takes a while to configure and then reports the
// broker as unreachable. Every publish fails.
type slowFailingMqtt struct {
	publishes int32
}

var _ mqtt.Service = (*slowFailingMqtt)(nil)

func (m *slowFailingMqtt) Configure(ctx context.Context) error {
	time.Sleep(time.Millisecond * 20)
	return errors.New("broker unreachable")
}

func (m *slowFailingMqtt) Close() error {
	return nil
}

func (m *slowFailingMqtt) Publish(ctx context.Context, msg interface{}, topicSuffix string) error {
	atomic.AddInt32(&m.publishes, 1)
	return errors.New("not connected")
}

// TestRunSurvivesMqttConfigureFailure hammers the API while Run is still
// configuring (and then failing to configure) the MQTT client.
// Run under the race detector this guards the invariant that the service
// never mutates its MQTT dependency after construction.
func TestRunSurvivesMqttConfigureFailure(t *testing.T) {
	broker := &slowFailingMqtt{}
	svc, err := NewService(Config{
		TriggerDelay:     time.Millisecond,
		ButtonPressDelay: time.Millisecond,
		ButtonRearmDelay: time.Millisecond,
	}, Dependencies{
		Log:      zerolog.Nop(),
		Positive: devices.NewStubPulseChannel(false),
		Negative: devices.NewStubPulseChannel(true),
		Button:   devices.NewStubButton(),
		Mqtt:     broker,
	})
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() {
		runDone <- svc.Run(ctx)
	}()

	// Updates racing with the MQTT configuration in Run.
	deadline := time.Now().Add(time.Millisecond * 50)
	value := uint32(7)
	for time.Now().Before(deadline) {
		result, err := svc.SetParameters(context.Background(), model.ParameterUpdate{Pulse1High: &value})
		if err != nil {
			t.Fatalf("SetParameters failed: %v", err)
		}
		if result.Pulse1High != value {
			t.Fatalf("expected p1h %d, got %d", value, result.Pulse1High)
		}
	}

	// The broker never came up; the API must still work.
	if _, err := svc.GetParameters(context.Background()); err != nil {
		t.Errorf("GetParameters failed: %v", err)
	}

	cancel()
	select {
	case err := <-runDone:
		if err != nil {
			t.Errorf("Run failed: %v", err)
		}
	case <-time.After(time.Second * 2):
		t.Fatal("timeout waiting for Run to return")
	}
}
