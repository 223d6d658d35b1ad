package imu

import (
	"machine"

	"tinygo.org/x/drivers/lsm6ds3tr"

	"github.com/wingfc/firmware/internal/clock"
)

// Lsm6ds3trDevice binds the LSM6DS3TR 6-axis sensor to the Imu
// contract. Register access, unit conversion (micro-g/micro-dps to
// m/s^2 and rad/s) and the gyro-bias calibration loop are carried
// forward from an earlier main.go/helpers.go pairing; what's new is
// the explicit interrupt-count/skew bookkeeping the core governor
// requires, and wrapping the IMU+Kalman pair behind the Imu interface
// so the orchestrator never reaches into sensor internals.
type Lsm6ds3trDevice struct {
	sensor *lsm6ds3tr.Device
	clock  clock.Clock

	estimator *EulerEstimator

	gyroBiasX, gyroBiasY, gyroBiasZ    float64
	accelBiasX, accelBiasY, accelBiasZ float64

	sampleReady bool

	interruptPin    machine.Pin
	hasInterrupt    bool
	interruptCount  uint32
	lastLatchCycles uint32
}

// NewLsm6ds3trDevice configures the sensor over the given I2C bus and
// returns a device ready for calibration. dt is the attitude
// estimator's sample period in seconds.
func NewLsm6ds3trDevice(i2c *machine.I2C, clk clock.Clock, dt float64) (*Lsm6ds3trDevice, error) {
	sensor := lsm6ds3tr.New(i2c)
	err := sensor.Configure(lsm6ds3tr.Configuration{
		AccelRange:      lsm6ds3tr.ACCEL_8G,
		AccelSampleRate: lsm6ds3tr.ACCEL_SR_104,
		GyroRange:       lsm6ds3tr.GYRO_1000DPS,
		GyroSampleRate:  lsm6ds3tr.GYRO_SR_104,
	})
	if err != nil {
		return nil, err
	}
	if !sensor.Connected() {
		return nil, errNotConnected
	}

	return &Lsm6ds3trDevice{
		sensor:    sensor,
		clock:     clk,
		estimator: NewEulerEstimator(dt),
	}, nil
}

// WithInterruptPin wires a GPIO interrupt line as the gyro-ready
// signal, using machine.Pin.SetInterrupt: the ISR only increments a
// counter and latches the cycle it fired on. It must never touch
// vehicle state or demands.
func (d *Lsm6ds3trDevice) WithInterruptPin(pin machine.Pin) error {
	d.interruptPin = pin
	d.hasInterrupt = true
	pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return pin.SetInterrupt(machine.PinRising, func(machine.Pin) {
		d.interruptCount++
		d.lastLatchCycles = d.clock.NowCycles()
		d.sampleReady = true
	})
}

// Calibrate averages sampleSize readings while the aircraft is known
// to be stationary and level, following the original calibrate().
func (d *Lsm6ds3trDevice) Calibrate(sampleSize int) error {
	var accelXSum, accelYSum, accelZSum float64
	var gyroXSum, gyroYSum, gyroZSum float64

	for i := 0; i < sampleSize; i++ {
		ax, ay, az, err := d.sensor.ReadAcceleration()
		if err != nil {
			return err
		}
		gx, gy, gz, err := d.sensor.ReadRotation()
		if err != nil {
			return err
		}
		accelXSum += float64(ax) * microGToMS2
		accelYSum += float64(ay) * microGToMS2
		accelZSum += float64(az) * microGToMS2
		gyroXSum += float64(gx) * microDPSToRadS
		gyroYSum += float64(gy) * microDPSToRadS
		gyroZSum += float64(gz) * microDPSToRadS
	}

	n := float64(sampleSize)
	d.accelBiasX, d.accelBiasY, d.accelBiasZ = accelXSum/n, accelYSum/n, accelZSum/n
	d.gyroBiasX, d.gyroBiasY, d.gyroBiasZ = gyroXSum/n, gyroYSum/n, gyroZSum/n
	return nil
}

// GyroReady reports whether a fresh sample is pending. Without a
// wired interrupt pin, every call is treated as ready (poll mode).
func (d *Lsm6ds3trDevice) GyroReady() bool {
	if !d.hasInterrupt {
		return true
	}
	return d.sampleReady
}

// ReadGyroDps reads and bias-corrects the current rotation and
// acceleration, feeds the attitude estimator, and returns angular
// velocity in degrees/second.
func (d *Lsm6ds3trDevice) ReadGyroDps() Vec3 {
	d.sampleReady = false

	ax, ay, az, _ := d.sensor.ReadAcceleration()
	gx, gy, gz, _ := d.sensor.ReadRotation()

	accel := Vec3{
		X: float64(ax)*microGToMS2 - d.accelBiasX,
		Y: float64(ay)*microGToMS2 - d.accelBiasY,
		Z: float64(az)*microGToMS2 - d.accelBiasZ,
	}
	gyroRad := Vec3{
		X: float64(gx)*microDPSToRadS - d.gyroBiasX,
		Y: float64(gy)*microDPSToRadS - d.gyroBiasY,
		Z: float64(gz)*microDPSToRadS - d.gyroBiasZ,
	}

	d.estimator.Ingest(accel, gyroRad)

	return Vec3{X: gyroRad.X * radToDeg, Y: gyroRad.Y * radToDeg, Z: gyroRad.Z * radToDeg}
}

func (d *Lsm6ds3trDevice) GyroInterruptCount() uint32 { return d.interruptCount }

// GyroSkew returns the signed difference between the cycle the most
// recent sample latched and the scheduler's predicted latch time,
// following board.h's getGyroSkew contract.
func (d *Lsm6ds3trDevice) GyroSkew(targetCycles, periodCycles uint32) int32 {
	return clock.Intcmp(d.lastLatchCycles, targetCycles)
}

func (d *Lsm6ds3trDevice) EulerAngles() Euler { return d.estimator.Euler() }

func (d *Lsm6ds3trDevice) IsLevel(maxAngleDeg float64) bool {
	return d.estimator.IsLevel(maxAngleDeg)
}

type sensorError string

func (e sensorError) Error() string { return string(e) }

const errNotConnected = sensorError("imu: lsm6ds3tr not connected")
