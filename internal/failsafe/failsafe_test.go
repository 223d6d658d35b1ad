package failsafe

import (
	"testing"
	"time"

	"github.com/wingfc/firmware/internal/config"
)

func testConfig() config.FailsafeConfig {
	return config.FailsafeConfig{
		BootDelay:      time.Second,
		NoSignalWindow: 100 * time.Millisecond,
	}
}

func TestMonitorStaysIdleUntilBootDelay(t *testing.T) {
	cfg := testConfig()
	boot := time.Now()
	m := NewMonitor(cfg, boot)

	m.Tick(boot.Add(cfg.BootDelay / 2))
	if m.IsMonitoring() {
		t.Errorf("monitor should remain idle before BootDelay elapses")
	}

	m.Tick(boot.Add(cfg.BootDelay + time.Millisecond))
	if !m.IsMonitoring() {
		t.Errorf("monitor should begin monitoring once BootDelay elapses")
	}
}

func TestMonitorTripsOnStaleness(t *testing.T) {
	cfg := testConfig()
	boot := time.Now()
	m := NewMonitor(cfg, boot)

	now := boot.Add(cfg.BootDelay + time.Millisecond)
	m.Tick(now)
	m.OnValidDataReceived(now)

	stale := now.Add(cfg.NoSignalWindow + time.Millisecond)
	m.OnValidDataFailed(stale)

	if !m.Tripped() {
		t.Errorf("expected monitor to trip after NoSignalWindow of staleness")
	}
}

func TestMonitorRecoversOnlyAfterFrameAndSwitchCycle(t *testing.T) {
	cfg := testConfig()
	boot := time.Now()
	m := NewMonitor(cfg, boot)

	now := boot.Add(cfg.BootDelay + time.Millisecond)
	m.Tick(now)
	m.OnValidDataReceived(now)
	m.OnValidDataFailed(now.Add(cfg.NoSignalWindow + time.Millisecond))
	if !m.Tripped() {
		t.Fatalf("setup failed: expected Tripped before testing recovery")
	}

	recoverTime := now.Add(200 * time.Millisecond)
	m.OnValidDataReceived(recoverTime)
	if m.StateValue() != Recovering {
		t.Fatalf("expected Recovering after a fresh frame while tripped, got %v", m.StateValue())
	}
	if m.Tripped() {
		t.Errorf("Recovering must not still report Tripped")
	}

	// A fresh frame alone is not enough; only the switch-cycle-off
	// observation completes the transition back to Monitoring.
	m.OnValidDataReceived(recoverTime.Add(time.Millisecond))
	if m.StateValue() != Recovering {
		t.Errorf("a second valid frame alone must not leave Recovering")
	}

	m.OnSwitchCycledOff()
	if m.StateValue() != Monitoring {
		t.Errorf("expected Monitoring once the arm switch cycled off while Recovering, got %v", m.StateValue())
	}
}

func TestSwitchCycledOffIsNoopOutsideRecovering(t *testing.T) {
	cfg := testConfig()
	boot := time.Now()
	m := NewMonitor(cfg, boot)

	m.Tick(boot.Add(cfg.BootDelay + time.Millisecond))
	before := m.StateValue()

	m.OnSwitchCycledOff()
	if m.StateValue() != before {
		t.Errorf("switch-cycled-off outside Recovering should not change state")
	}
}
