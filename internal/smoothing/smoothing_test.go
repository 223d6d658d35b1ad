package smoothing

import (
	"testing"
	"time"

	"github.com/wingfc/firmware/internal/config"
)

func testConfig() config.SmoothingConfig {
	return config.SmoothingConfig{
		StartupDelay:      0,
		TrainingSamples:   10,
		RetrainingSamples: 5,
		RetrainingDelay:   time.Second,
		RateChangePercent: 20,
		RateMin:           500 * time.Microsecond,
		RateMax:           50 * time.Millisecond,
		CutoffFloorHz:     15,
		Smoothness:        30,
	}
}

func TestFilterPassesThroughBeforeTraining(t *testing.T) {
	cfg := testConfig()
	boot := time.Now()
	f := NewFilter(cfg, boot)

	if got := f.Apply(0.5); got != 0.5 {
		t.Errorf("untrained filter should pass input through unchanged, got %v", got)
	}
}

func TestFilterTrainsAfterEnoughSamples(t *testing.T) {
	cfg := testConfig()
	boot := time.Now()
	f := NewFilter(cfg, boot)

	now := boot
	interval := 4 * time.Millisecond
	for i := 0; i < cfg.TrainingSamples; i++ {
		now = now.Add(interval)
		f.OnFrame(now)
	}

	if f.AverageFrameTimeUs() == 0 {
		t.Fatalf("expected filter to have completed training after %d samples", cfg.TrainingSamples)
	}
	if f.CutoffHz() < cfg.CutoffFloorHz {
		t.Errorf("cutoff %v fell below configured floor %v", f.CutoffHz(), cfg.CutoffFloorHz)
	}
}

func TestFilterRejectsOutOfRangeInterval(t *testing.T) {
	cfg := testConfig()
	boot := time.Now()
	f := NewFilter(cfg, boot)

	f.OnFrame(boot)
	ok := f.OnFrame(boot.Add(cfg.RateMax + time.Second))
	if ok {
		t.Errorf("an interval beyond RateMax should be reported invalid")
	}
}

func TestFilterRetrainsOnRateChange(t *testing.T) {
	cfg := testConfig()
	boot := time.Now()
	f := NewFilter(cfg, boot)

	now := boot
	for i := 0; i < cfg.TrainingSamples; i++ {
		now = now.Add(4 * time.Millisecond)
		f.OnFrame(now)
	}
	firstCutoff := f.CutoffHz()

	// Double the frame rate (half the interval): well past the
	// configured RateChangePercent threshold.
	for i := 0; i < cfg.RetrainingSamples; i++ {
		now = now.Add(2 * time.Millisecond)
		f.OnFrame(now)
	}

	if f.CutoffHz() == firstCutoff {
		t.Errorf("expected cutoff to change after a sustained rate change triggered retraining")
	}
}

func TestBankAdvancesAllFiltersTogether(t *testing.T) {
	cfg := testConfig()
	boot := time.Now()
	bank := NewBank(cfg, boot)

	now := boot.Add(time.Millisecond)
	bank.OnFrame(now)

	// Passthrough check: none of the bank's filters has trained yet.
	if got := bank.Throttle.Apply(1); got != 1 {
		t.Errorf("expected bank filters to still be untrained passthroughs, got %v", got)
	}
}
