// Package smoothing implements the adaptive third-order low-pass
// filter bank, ported from the constants and three-phase
// training/retraining state machine of the original Hackflight
// receiver.h (no flight-control package elsewhere in this repo uses
// anything beyond a flat exponential LPF for the IMU path).
package smoothing

import (
	"math"
	"time"

	"github.com/wingfc/firmware/internal/config"
)

// pt3ScaleFactor is C = 1/sqrt(2^(1/3) - 1), the constant that turns a
// single-pole RC time constant into the gain of one stage of a
// third-order Butterworth-like cascade.
const pt3ScaleFactor = 1.9615

// Filter is one channel's third-order IIR low-pass, with an adaptive
// cutoff frequency retrained from the observed frame interval.
type Filter struct {
	cfg config.SmoothingConfig

	state    [3]float64
	k        float64
	cutoffHz float64

	bootTime time.Time

	initialized bool
	training    bool
	trainStart  time.Time

	sampleCount int
	sum, min, max float64

	lastFrameTime     time.Time
	haveLastFrameTime bool
	averageFrameTimeUs float64

	retraining        bool
	retrainStart      time.Time
	retrainGuardUntil time.Time
}

// NewFilter creates a filter bank entry anchored at bootTime, the
// moment power-on (or the process start, in tests) occurred.
func NewFilter(cfg config.SmoothingConfig, bootTime time.Time) *Filter {
	return &Filter{
		cfg:      cfg,
		bootTime: bootTime,
		cutoffHz: cfg.CutoffFloorHz,
	}
}

// computeCutoff derives cutoff_hz from the trained average frame
// interval and the configured smoothness factor, floored per spec.
func computeCutoff(cfg config.SmoothingConfig, avgFrameTimeUs float64) float64 {
	if avgFrameTimeUs <= 0 {
		return cfg.CutoffFloorHz
	}
	hz := (1e6 / avgFrameTimeUs) * 1.5 / (1 + float64(cfg.Smoothness)/10)
	return math.Max(cfg.CutoffFloorHz, hz)
}

// recomputeGain sets k from the current cutoff and period dt.
func (f *Filter) recomputeGain(dt float64) {
	rc := 1.0 / (2 * math.Pi * f.cutoffHz * pt3ScaleFactor)
	f.k = dt / (rc + dt)
}

// OnFrame feeds one new frame arrival at time now, running the
// startup-delay / training / retraining lifecycle. It returns false
// if the interval was rate_invalid and therefore excluded from
// training.
func (f *Filter) OnFrame(now time.Time) bool {
	if !f.haveLastFrameTime {
		f.lastFrameTime = now
		f.haveLastFrameTime = true
		return true
	}

	interval := now.Sub(f.lastFrameTime)
	f.lastFrameTime = now

	if interval < f.cfg.RateMin || interval > f.cfg.RateMax {
		return false
	}

	intervalUs := float64(interval.Microseconds())

	if now.Sub(f.bootTime) < f.cfg.StartupDelay {
		return true
	}

	if !f.initialized {
		f.accumulateTraining(intervalUs, f.cfg.TrainingSamples, now)
		return true
	}

	// Already initialized: watch for a rate change large enough to
	// begin retraining.
	if !f.retraining {
		if f.averageFrameTimeUs > 0 &&
			math.Abs(intervalUs-f.averageFrameTimeUs) >= f.averageFrameTimeUs*float64(f.cfg.RateChangePercent)/100 &&
			now.After(f.retrainGuardUntil) {
			f.retraining = true
			f.retrainStart = now
			f.sampleCount = 0
			f.sum, f.min, f.max = 0, 0, 0
		} else {
			return true
		}
	} else if math.Abs(intervalUs-f.averageFrameTimeUs) < f.averageFrameTimeUs*float64(f.cfg.RateChangePercent)/100 {
		// A sample that isn't divergent enough breaks the block: retraining
		// needs a contiguous run of divergent samples, so start the count
		// over rather than letting a single stray sample through.
		f.sampleCount, f.sum, f.min, f.max = 0, 0, 0, 0
		return true
	}

	f.accumulateTraining(intervalUs, f.cfg.RetrainingSamples, now)
	return true
}

func (f *Filter) accumulateTraining(intervalUs float64, target int, now time.Time) {
	if f.sampleCount == 0 {
		f.min, f.max = intervalUs, intervalUs
	} else {
		f.min = math.Min(f.min, intervalUs)
		f.max = math.Max(f.max, intervalUs)
	}
	f.sum += intervalUs
	f.sampleCount++

	if f.sampleCount < target {
		return
	}

	// Discard one min and one max sample, average the remainder.
	usable := float64(target - 2)
	if usable <= 0 {
		usable = float64(target)
	}
	f.averageFrameTimeUs = (f.sum - f.min - f.max) / usable

	f.cutoffHz = computeCutoff(f.cfg, f.averageFrameTimeUs)
	f.recomputeGain(f.averageFrameTimeUs / 1e6)

	f.initialized = true
	if f.retraining {
		f.retraining = false
		f.retrainGuardUntil = now.Add(f.cfg.RetrainingDelay)
	}
	f.sampleCount, f.sum, f.min, f.max = 0, 0, 0, 0
}

// AverageFrameTimeUs returns the currently trained average frame
// interval, or zero before the first training pass completes.
func (f *Filter) AverageFrameTimeUs() float64 { return f.averageFrameTimeUs }

// CutoffHz returns the filter's current cutoff frequency.
func (f *Filter) CutoffHz() float64 { return f.cutoffHz }

// Apply runs one third-order IIR stage over input x and returns the
// smoothed output. Before the filter has ever trained, k is zero and
// Apply is a no-op passthrough (matching the "apply only once
// initialized" behavior of the original pt3 filter bank).
func (f *Filter) Apply(x float64) float64 {
	if f.k == 0 {
		return x
	}
	f.state[0] += f.k * (x - f.state[0])
	f.state[1] += f.k * (f.state[0] - f.state[1])
	f.state[2] += f.k * (f.state[1] - f.state[2])
	return f.state[2]
}

// Bank owns one Filter per smoothed channel: throttle, roll, pitch,
// yaw, feedforward, and level-mode deflection.
type Bank struct {
	Throttle, Roll, Pitch, Yaw, Feedforward, Level *Filter
}

// NewBank constructs a full filter bank anchored at bootTime.
func NewBank(cfg config.SmoothingConfig, bootTime time.Time) *Bank {
	return &Bank{
		Throttle:    NewFilter(cfg, bootTime),
		Roll:        NewFilter(cfg, bootTime),
		Pitch:       NewFilter(cfg, bootTime),
		Yaw:         NewFilter(cfg, bootTime),
		Feedforward: NewFilter(cfg, bootTime),
		Level:       NewFilter(cfg, bootTime),
	}
}

// OnFrame advances every filter's frame-interval training together,
// since they all observe the same receiver frame cadence.
func (b *Bank) OnFrame(now time.Time) {
	b.Throttle.OnFrame(now)
	b.Roll.OnFrame(now)
	b.Pitch.OnFrame(now)
	b.Yaw.OnFrame(now)
	b.Feedforward.OnFrame(now)
	b.Level.OnFrame(now)
}
