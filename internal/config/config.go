// Package config holds the compiled-in configuration for WingFC.
//
// Values here mirror an earlier flat constant-block layout but grouped
// per component so each package can take just the slice it needs
// instead of reaching into a single global block.
package config

import "time"

// ReceiverProtocol selects which wire protocol the receiver decoder speaks.
type ReceiverProtocol int

const (
	ProtocolIBus ReceiverProtocol = iota
	ProtocolCRSF
	ProtocolELRS
)

// NumChannels is the number of RC channels carried end to end.
const NumChannels = 18

// FailsafeChannelMode is the per-channel fallback policy applied when a
// pulse cannot be recovered from a hold window.
type FailsafeChannelMode int

const (
	FailsafeModeAuto FailsafeChannelMode = iota
	FailsafeModeHold
	FailsafeModeSet
	FailsafeModeInvalid
)

// FailsafeChannelConfig is the per-channel fallback rule.
type FailsafeChannelConfig struct {
	Mode FailsafeChannelMode
	Step int
}

// ReceiverConfig configures channel ranging and failsafe fallback.
type ReceiverConfig struct {
	Protocol        ReceiverProtocol
	PulseMin        uint16
	PulseMax        uint16
	MaxInvalidHold  time.Duration
	ChannelFailsafe [NumChannels]FailsafeChannelConfig
}

// SmoothingConfig configures the adaptive pt3 filter bank.
type SmoothingConfig struct {
	StartupDelay      time.Duration
	TrainingDelay     time.Duration
	TrainingSamples   int
	RetrainingSamples int
	RetrainingDelay   time.Duration
	RateChangePercent int
	RateMin           time.Duration
	RateMax           time.Duration
	CutoffFloorHz     float64
	Smoothness        int
}

// FailsafeConfig configures the staleness watchdog.
type FailsafeConfig struct {
	BootDelay      time.Duration
	NoSignalWindow time.Duration
}

// ArmingConfig configures arming preconditions.
type ArmingConfig struct {
	MaxArmingAngleDeg float64
}

// SchedulerConfig configures the core loop governor and task prioritizer.
type SchedulerConfig struct {
	CoreRateCount   uint32
	GyroLockCount   uint32
	GuardCyclesMin  int32
	GuardCyclesStep int32
}

// MixerConfig configures the mixer/ESC output stage.
type MixerConfig struct {
	DigitalIdleOffset float64
	DemandRateLimit   float64
}

// TelemetryConfig configures the MSP bridge.
type TelemetryConfig struct {
	Enabled bool
}

// FeatureFlags mirrors a Betaflight-style feature bitset, adapted to
// this repo's component set.
type FeatureFlags struct {
	Telemetry     bool
	MotorTest     bool
	RateSmoothing bool
}

// Config is the full compiled-in configuration tree for one vehicle.
type Config struct {
	Receiver  ReceiverConfig
	Smoothing SmoothingConfig
	Failsafe  FailsafeConfig
	Arming    ArmingConfig
	Scheduler SchedulerConfig
	Mixer     MixerConfig
	Telemetry TelemetryConfig
	Features  FeatureFlags
}

// Default returns the stock WingFC configuration, carrying forward
// the original Hackflight source's tuned smoothing-filter and
// failsafe timing constants.
func Default() Config {
	cfg := Config{
		Receiver: ReceiverConfig{
			Protocol:       ProtocolIBus,
			PulseMin:       885,
			PulseMax:       2115,
			MaxInvalidHold: 300 * time.Millisecond,
		},
		Smoothing: SmoothingConfig{
			StartupDelay:      5000 * time.Millisecond,
			TrainingDelay:     1000 * time.Millisecond,
			TrainingSamples:   50,
			RetrainingSamples: 20,
			RetrainingDelay:   2000 * time.Millisecond,
			RateChangePercent: 20,
			RateMin:           950 * time.Microsecond,
			RateMax:           65500 * time.Microsecond,
			CutoffFloorHz:     15,
			Smoothness:        30,
		},
		Failsafe: FailsafeConfig{
			BootDelay:      5 * time.Second,
			NoSignalWindow: 100 * time.Millisecond,
		},
		Arming: ArmingConfig{
			MaxArmingAngleDeg: 25,
		},
		Scheduler: SchedulerConfig{
			CoreRateCount:   25000,
			GyroLockCount:   400,
			GuardCyclesMin:  10,
			GuardCyclesStep: 5,
		},
		Mixer: MixerConfig{
			DigitalIdleOffset: 0.045,
			DemandRateLimit:   1998,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		Features: FeatureFlags{
			Telemetry:     true,
			MotorTest:     true,
			RateSmoothing: true,
		},
	}

	for i := range cfg.Receiver.ChannelFailsafe {
		cfg.Receiver.ChannelFailsafe[i] = FailsafeChannelConfig{Mode: FailsafeModeAuto, Step: 30}
	}
	// Throttle (slot 0 in the channel-frame layout) defaults to a
	// shallower step, matching the original source's throttle-channel override.
	cfg.Receiver.ChannelFailsafe[0] = FailsafeChannelConfig{Mode: FailsafeModeAuto, Step: 5}

	return cfg
}
