package mixer

import (
	"testing"

	"github.com/wingfc/firmware/internal/config"
	"github.com/wingfc/firmware/internal/flightstate"
)

func TestPIDUpdateAccumulatesIntegralAndDerivative(t *testing.T) {
	p := NewPID(1, 1, 1)

	out1 := p.Update(1, 0.1)
	if out1 <= 0 {
		t.Fatalf("expected a positive output for a positive error, got %v", out1)
	}

	out2 := p.Update(1, 0.1)
	if out2 <= out1 {
		t.Errorf("expected integral accumulation to grow the output on a sustained error, got %v then %v", out1, out2)
	}
}

func TestPIDResetClearsHistory(t *testing.T) {
	p := NewPID(1, 1, 1)
	p.Update(5, 0.1)
	p.Reset()

	out := p.Update(0, 0.1)
	if out != 0 {
		t.Errorf("expected a reset controller to produce zero output for zero error, got %v", out)
	}
}

func TestWingMixerThrottlePassesThroughUnscaled(t *testing.T) {
	cfg := config.MixerConfig{DemandRateLimit: 1998}
	m := NewWingMixer(cfg, 0.5, 0.1, 0.2)

	demands := flightstate.Demands{Throttle: 0.75}
	out := m.Step(demands, flightstate.VehicleState{}, false, 0)

	if len(out) != 3 {
		t.Fatalf("expected 3 outputs (ESC, left elevon, right elevon), got %d", len(out))
	}
	if out[0] != 0.75 {
		t.Errorf("expected throttle row to pass through unscaled, got %v", out[0])
	}
	if out[1] != 0.5 || out[2] != 0.5 {
		t.Errorf("expected centered elevons with zero rate error, got %v %v", out[1], out[2])
	}
}

func TestWingMixerElevonsDivergeOnRollDemand(t *testing.T) {
	cfg := config.MixerConfig{DemandRateLimit: 1998}
	m := NewWingMixer(cfg, 0.5, 0, 0)

	demands := flightstate.Demands{Roll: 500}
	out := m.Step(demands, flightstate.VehicleState{}, false, 1000)

	if out[1] == out[2] {
		t.Errorf("expected a roll demand to drive the two elevons apart, got equal outputs %v", out[1])
	}
}

func TestStepClampsOutputsToUnitRange(t *testing.T) {
	cfg := config.MixerConfig{DemandRateLimit: 1}
	m := NewWingMixer(cfg, 10, 0, 0)

	demands := flightstate.Demands{Roll: 1998}
	out := m.Step(demands, flightstate.VehicleState{}, false, 1000)

	for i, v := range out {
		if v < 0 || v > 1 {
			t.Errorf("output %d = %v outside [0,1]", i, v)
		}
	}
}

func TestResetFlagClearsPidHistory(t *testing.T) {
	cfg := config.MixerConfig{DemandRateLimit: 1998}
	m := NewWingMixer(cfg, 0, 1, 0)

	demands := flightstate.Demands{Roll: 100}
	m.Step(demands, flightstate.VehicleState{}, false, 1000)
	m.Step(demands, flightstate.VehicleState{}, false, 2000)
	withoutReset := m.Step(demands, flightstate.VehicleState{}, false, 3000)

	m2 := NewWingMixer(cfg, 0, 1, 0)
	m2.Step(demands, flightstate.VehicleState{}, false, 1000)
	m2.Step(demands, flightstate.VehicleState{}, false, 2000)
	withReset := m2.Step(demands, flightstate.VehicleState{}, true, 3000)

	if withoutReset[1] == withReset[1] {
		t.Errorf("expected Reset=true to clear accumulated integral history and change the output")
	}
}

func TestQuadMixerProducesFourMotors(t *testing.T) {
	cfg := config.MixerConfig{DemandRateLimit: 1998}
	m := NewQuadMixer(cfg, 0.5, 0.1, 0.2)

	out := m.Step(flightstate.Demands{Throttle: 0.5}, flightstate.VehicleState{}, false, 0)
	if len(out) != 4 {
		t.Fatalf("expected 4 motor outputs, got %d", len(out))
	}
}
