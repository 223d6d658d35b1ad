// Command wingfc is the top-level flight controller orchestrator:
// hardware bring-up, capability-record wiring of every component, and
// the cold-boot state machine, generalized from an
// INITIALIZATION/WAITING/CALIBRATING/FLIGHT_MODE/FAILSAFE switch onto
// the phase-locked core governor plus outer task table instead of a
// fixed-rate ticker.
package main

import (
	"machine"
	"time"

	"github.com/wingfc/firmware/internal/arming"
	"github.com/wingfc/firmware/internal/clock"
	"github.com/wingfc/firmware/internal/config"
	"github.com/wingfc/firmware/internal/failsafe"
	"github.com/wingfc/firmware/internal/flightstate"
	"github.com/wingfc/firmware/internal/imu"
	"github.com/wingfc/firmware/internal/led"
	"github.com/wingfc/firmware/internal/msp"
	"github.com/wingfc/firmware/internal/receiver"
	"github.com/wingfc/firmware/internal/scheduler"
	"github.com/wingfc/firmware/internal/smoothing"
)

const version = "0.1.0"

// cyclesPerSecond is the free-running timer rate the governor
// phase-locks against; on real hardware this would be a configured
// timer peripheral frequency.
const cyclesPerSecond = 1_000_000

func main() {
	time.Sleep(2 * time.Second)
	println("wingfc", version)

	cfg := config.Default()
	bootTime := time.Now()

	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: 115200, TX: machine.NoPin, RX: machine.UART_RX_PIN})
	println("receiver UART configured")

	i2c := machine.I2C0
	i2c.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz})

	clk := clock.NewSystemClock(cyclesPerSecond)

	dev, err := imu.NewLsm6ds3trDevice(i2c, clk, 0.01)
	if err != nil {
		for {
			println("imu init failed:", err.Error())
			time.Sleep(time.Second)
		}
	}
	println("LSM6DS3TR initialized")

	println("calibrating gyro/accel, keep still...")
	if err := dev.Calibrate(1000); err != nil {
		println("calibration failed:", err.Error())
	}
	println("calibration complete")

	motors := newMotorBank(cfg.Mixer)
	armingMachine := arming.New(cfg.Arming, motors)
	armingMachine.SetCalibration(true, true)

	mix := newMixer(cfg.Mixer)
	state := &flightstate.VehicleState{}

	pipeline := receiver.NewPipeline(receiver.NewDecoder(), cfg.Receiver)
	smoothBank := smoothing.NewBank(cfg.Smoothing, bootTime)
	failsafeMon := failsafe.NewMonitor(cfg.Failsafe, bootTime)
	statusLED := led.New(machine.LED)

	overrideBuf := idleOutput()
	var manualOverride *msp.MotorOverride

	telemetry := msp.NewHandler(
		func() []float64 { return pipeline.ChannelsAsFloats(time.Now()) },
		func() flightstate.VehicleState { return *state },
		func() bool { return armingMachine.Record().IsArmed },
		func(o msp.MotorOverride) { manualOverride = &o },
	)

	tasks := scheduler.NewTable(cfg.Scheduler.GuardCyclesMin, cfg.Scheduler.GuardCyclesStep)

	tasks.Add(&scheduler.Task{
		Name:   "receiver",
		Period: time.Millisecond,
		Run: func(now time.Time) {
			for uart.Buffered() > 0 {
				b, err := uart.ReadByte()
				if err != nil {
					break
				}
				pipeline.Feed(b, now)
			}

			demands := pipeline.Demands(now)
			if cfg.Features.RateSmoothing {
				smoothBank.OnFrame(now)
				demands.Throttle = smoothBank.Throttle.Apply(demands.Throttle)
				demands.Roll = smoothBank.Roll.Apply(demands.Roll)
				demands.Pitch = smoothBank.Pitch.Apply(demands.Pitch)
				demands.Yaw = smoothBank.Yaw.Apply(demands.Yaw)
			}
			latestDemands = demands

			wasRecovering := failsafeMon.StateValue() == failsafe.Recovering

			if pipeline.HaveSignal() {
				failsafeMon.OnValidDataReceived(now)
			} else {
				failsafeMon.OnValidDataFailed(now)
			}
			if failsafeMon.Tripped() {
				pipeline.SetSignalLost()
			}

			aux := pipeline.AuxIsSet(now)
			armingMachine.UpdateFromReceiver(now, pipeline.ThrottleIsDown(now), aux, pipeline.HaveSignal())
			if !aux {
				failsafeMon.OnSwitchCycledOff()
			}

			// got_failsafe only clears once a valid frame has resumed
			// (Tripped -> Recovering happened on the OnValidDataReceived
			// call above) and the arm switch has cycled off (Recovering
			// -> Monitoring, just above).
			if wasRecovering && failsafeMon.StateValue() == failsafe.Monitoring {
				armingMachine.ClearFailsafe()
			}

			armingMachine.AttemptToArm(now, aux)
		},
	})

	tasks.Add(&scheduler.Task{
		Name:   "attitude",
		Period: 10 * time.Millisecond,
		Run: func(now time.Time) {
			eu := dev.EulerAngles()
			state.Phi, state.Theta, state.Psi = eu.Phi, eu.Theta, eu.Psi
			armingMachine.UpdateImuStatus(dev.IsLevel(cfg.Arming.MaxArmingAngleDeg))

			failsafeMon.Tick(now)

			switch armingMachine.Warning() {
			case arming.WarningBlink:
				statusLED.Set(led.SlowFlash)
			case arming.WarningOn:
				statusLED.Set(led.On)
			default:
				if armingMachine.Record().IsArmed {
					statusLED.Set(led.On)
				} else if failsafeMon.Tripped() {
					statusLED.Set(led.FastFlash)
				} else {
					statusLED.Set(led.Off)
				}
			}
			statusLED.Update(now)
		},
	})

	tasks.Add(&scheduler.Task{
		Name:   "telemetry",
		Period: 10 * time.Millisecond,
		Run: func(now time.Time) {
			if !cfg.Features.Telemetry || !cfg.Telemetry.Enabled {
				return
			}
			for machine.Serial.Buffered() > 0 {
				b, err := machine.Serial.ReadByte()
				if err != nil {
					break
				}
				if out := telemetry.Feed(b); out != nil {
					machine.Serial.Write(out)
				}
			}
			if cfg.Features.MotorTest && manualOverride != nil && !armingMachine.Record().IsArmed {
				idx := int(manualOverride.Index)
				if idx < len(overrideBuf) {
					overrideBuf[idx] = float64(manualOverride.Percent) / 100
				}
				manualOverride = nil
			}
		},
	})

	governor := scheduler.New(
		clk, dev, mix, motors, cfg.Scheduler, state,
		func() flightstate.Demands { return latestDemands },
		func() bool { return armingMachine.Record().IsArmed },
		func() []float64 { return overrideBuf },
		tasks,
	)

	motors.Stop()
	time.Sleep(2 * time.Second)

	watchdog := machine.Watchdog
	watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 500})
	watchdog.Start()

	println("entering run loop")
	for {
		nowUs := clk.NowUs()
		governor.Tick(nowUs)
		watchdog.Update()
	}
}

// latestDemands is the scratch/swap point between the receiver task
// (writer) and the governor's mixer invocation
// (reader): both run in the single main context, so a plain package
// variable updated only at task boundaries satisfies the no-partial-
// write guarantee without a lock.
var latestDemands flightstate.Demands
