// Package robot provides the hardware-facing abstractions of the vehicle:
// the drive base, the downward color sensors and the cage servo.
package robot

// MotorName identifies a servo on the Feetech bus.
type MotorName string

// CageMotor is the servo that lifts and lowers the cage. The drive wheels
// belong to the hub and are reached through Drive, not the servo bus.
const CageMotor MotorName = "cage"

// SensorName identifies a color sensor on the vehicle.
type SensorName string

// Sensor names. Left and right straddle the line; side faces the field slots.
const (
	LeftSensor  SensorName = "left"
	RightSensor SensorName = "right"
	SideSensor  SensorName = "side"
)
