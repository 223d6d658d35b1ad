package scheduler

import (
	"time"

	"github.com/wingfc/firmware/internal/clock"
	"github.com/wingfc/firmware/internal/config"
	"github.com/wingfc/firmware/internal/flightstate"
	"github.com/wingfc/firmware/internal/imu"
)

// Mixer is the capability the governor needs from the mixing stage:
// a pure function from demands/state to per-motor values in [0,1].
type Mixer interface {
	Step(demands flightstate.Demands, state flightstate.VehicleState, resetFlag bool, nowUs uint32) []float64
}

// MotorWriter is the capability the governor needs from the ESC
// output layer: clamp and issue a motor frame.
type MotorWriter interface {
	Write(values []float64, armed bool)
}

// Governor is the core loop: it phase-locks the inner tick to the
// gyro interrupt rate, invokes the mixer and motor writer each tick,
// and periodically retunes its own timing. Ported from board.h's
// checkCoreTasks.
type Governor struct {
	clock clock.Clock
	imu   imu.Imu
	mixer Mixer
	motors MotorWriter
	cfg   config.SchedulerConfig

	state      *flightstate.VehicleState
	demandsFn  func() flightstate.Demands
	armedFn    func() bool
	overrideFn func() []float64

	desiredPeriodCycles uint32
	nextTargetCycles    uint32

	terminalGyroRateCount uint32
	sampleRateStartCycles uint32

	terminalGyroLockCount uint32
	gyroSkewAccum         int64

	tasks *Table

	missedGyroSamples uint32
}

// New returns a Governor. demandsFn/armedFn/overrideFn are the
// capability record the orchestrator supplies in place of the
// original's board-pointer callbacks.
func New(
	clk clock.Clock,
	dev imu.Imu,
	mixer Mixer,
	motors MotorWriter,
	cfg config.SchedulerConfig,
	state *flightstate.VehicleState,
	demandsFn func() flightstate.Demands,
	armedFn func() bool,
	overrideFn func() []float64,
	tasks *Table,
) *Governor {
	g := &Governor{
		clock: clk, imu: dev, mixer: mixer, motors: motors, cfg: cfg,
		state: state, demandsFn: demandsFn, armedFn: armedFn, overrideFn: overrideFn,
		tasks: tasks,
	}
	g.nextTargetCycles = clk.NowCycles()
	return g
}

// Tick runs one inner-loop iteration: spin-wait for phase, read the
// gyro if ready, mix and write motors, then retune timing. It returns
// once the tick (and any admitted outer task slack) has been spent.
func (g *Governor) Tick(nowUs uint32) {
	for clock.Intcmp(g.clock.NowCycles(), g.nextTargetCycles) < 0 {
		// busy-wait for phase lock
	}
	nowCycles := g.clock.NowCycles()

	if g.imu.GyroReady() {
		gyro := g.imu.ReadGyroDps()
		g.state.DPhi, g.state.DTheta, g.state.DPsi = gyro.X, gyro.Y, gyro.Z

		demands := g.demandsFn()
		armed := g.armedFn()

		motors := g.mixer.Step(demands, *g.state, demands.Reset, nowUs)
		if !armed {
			motors = g.overrideFn()
		}
		g.motors.Write(motors, armed)
	} else {
		// Gyro sample missed: skip mixer invocation this tick; the
		// skew accumulator below still records the gap.
		g.missedGyroSamples++
	}

	g.retuneRate(nowCycles)
	g.correctSkew(nowCycles)

	g.nextTargetCycles += g.desiredPeriodCycles

	// Grant the task prioritizer the remaining slack before the next
	// deadline, governed by the dynamic guard-cycle margin.
	if g.tasks != nil {
		g.tasks.RunDue(time.Now(), g.clock, g.nextTargetCycles)
	}
}

// retuneRate implements step 5: every CoreRateCount gyro interrupts,
// measure elapsed cycles and reset desiredPeriodCycles.
func (g *Governor) retuneRate(nowCycles uint32) {
	count := g.imu.GyroInterruptCount()

	if g.terminalGyroRateCount == 0 {
		g.terminalGyroRateCount = count + g.cfg.CoreRateCount
		g.sampleRateStartCycles = nowCycles
		return
	}

	if clock.Intcmp(count, g.terminalGyroRateCount) >= 0 {
		sampleCycles := nowCycles - g.sampleRateStartCycles
		g.desiredPeriodCycles = sampleCycles / g.cfg.CoreRateCount
		g.sampleRateStartCycles = nowCycles
		g.terminalGyroRateCount += g.cfg.CoreRateCount
	}
}

// correctSkew implements step 6: every GyroLockCount interrupts,
// accumulate gyro skew and pull nextTargetCycles into phase before
// Tick advances it by desiredPeriodCycles for the following tick.
func (g *Governor) correctSkew(nowCycles uint32) {
	count := g.imu.GyroInterruptCount()

	skew := g.imu.GyroSkew(g.nextTargetCycles, g.desiredPeriodCycles)
	g.gyroSkewAccum += int64(skew)

	if g.terminalGyroLockCount == 0 {
		g.terminalGyroLockCount = count + g.cfg.GyroLockCount
		return
	}

	if clock.Intcmp(count, g.terminalGyroLockCount) >= 0 {
		g.terminalGyroLockCount += g.cfg.GyroLockCount
		g.nextTargetCycles -= uint32(g.gyroSkewAccum / int64(g.cfg.GyroLockCount))
		g.gyroSkewAccum = 0
	}
}

// DesiredPeriodCycles exposes the governor's current phase-lock
// period, chiefly for tests asserting the scheduler phase-lock
// invariant.
func (g *Governor) DesiredPeriodCycles() uint32 { return g.desiredPeriodCycles }

// MissedGyroSamples counts inner ticks where no gyro sample was ready.
func (g *Governor) MissedGyroSamples() uint32 { return g.missedGyroSamples }
