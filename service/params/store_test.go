package params

import (
	"sync"
	"testing"

	"github.com/kevinxiey/Double-Pulse-Test-DPT/model"
)

func uint32p(v uint32) *uint32 {
	return &v
}

func TestStoreDefaults(t *testing.T) {
	s := NewStore()
	got := s.Snapshot()
	want := model.PulseParameters{Pulse1High: 5, Pulse1Low: 1, Pulse2High: 3, Pulse2Low: 10000}
	if got != want {
		t.Errorf("Snapshot: got %+v, want %+v", got, want)
	}
}

func TestStorePartialApply(t *testing.T) {
	s := NewStore()
	s.Apply(model.ParameterUpdate{
		Pulse1High: uint32p(42),
		Pulse2Low:  uint32p(9000),
	})
	got := s.Snapshot()
	want := model.PulseParameters{Pulse1High: 42, Pulse1Low: 1, Pulse2High: 3, Pulse2Low: 9000}
	if got != want {
		t.Errorf("Snapshot after partial apply: got %+v, want %+v", got, want)
	}
}

func TestStoreReset(t *testing.T) {
	s := NewStore()
	s.Apply(model.ParameterUpdate{Pulse1Low: uint32p(77)})
	s.Reset()
	if got, want := s.Snapshot(), model.DefaultPulseParameters(); got != want {
		t.Errorf("Snapshot after reset: got %+v, want %+v", got, want)
	}
}

// TestStoreAtomicity interleaves writers that always set all four fields
// to the same value with readers that must never observe a mixed record.
func TestStoreAtomicity(t *testing.T) {
	s := NewStore()
	const iterations = 2000

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			v := uint32(i)
			s.Apply(model.ParameterUpdate{
				Pulse1High: &v,
				Pulse1Low:  &v,
				Pulse2High: &v,
				Pulse2Low:  &v,
			})
		}
	}()
	errc := make(chan model.PulseParameters, 1)
	go func() {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			got := s.Snapshot()
			if got == model.DefaultPulseParameters() {
				// Writer has not run yet
				continue
			}
			if got.Pulse1Low != got.Pulse1High || got.Pulse2High != got.Pulse1High || got.Pulse2Low != got.Pulse1High {
				select {
				case errc <- got:
				default:
				}
				return
			}
		}
	}()
	wg.Wait()
	select {
	case got := <-errc:
		t.Errorf("observed torn snapshot %+v", got)
	default:
	}
}
