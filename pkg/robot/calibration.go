package robot

import "math"

// StepsPerRevolution is the resolution of an STS servo.
const StepsPerRevolution = 4096

// MotorCalibration holds calibration data for a single servo.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// Calibration holds calibration data for all servos, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// Raw converts an angle in degrees from home to a raw servo position.
// DriveMode 1 inverts the direction. The result is clamped to the
// recorded range when one is set.
func (c MotorCalibration) Raw(degrees float64) int {
	steps := degrees / 360 * StepsPerRevolution
	if c.DriveMode == 1 {
		steps = -steps
	}
	raw := c.HomingOffset + int(math.Round(steps))
	if c.RangeMax > c.RangeMin {
		raw = max(c.RangeMin, min(c.RangeMax, raw))
	}
	return raw
}

// Degrees converts a raw servo position to an angle in degrees from home.
func (c MotorCalibration) Degrees(raw int) float64 {
	deg := float64(raw-c.HomingOffset) / StepsPerRevolution * 360
	if c.DriveMode == 1 {
		deg = -deg
	}
	return deg
}

// ByID returns motor name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (MotorName, MotorCalibration, bool) {
	for name, mc := range c {
		if mc.ID == id {
			return name, mc, true
		}
	}
	return "", MotorCalibration{}, false
}
