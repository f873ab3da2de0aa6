// Package linebot provides line following and field scanning for a
// two-sensor differential-drive competition robot.
//
// The robot follows a floor line until it reaches a junction, scans six
// field slots with a color sensor, and works out which slots to collect.
// Everything runs against two narrow hardware interfaces, so a mission can
// be rehearsed on the built-in simulator before it touches the field.
//
// # Installation
//
//	go install github.com/gwillem/linebot/cmd/linebot@latest
//
// # Usage
//
// First, run setup to pick the cage servo port and a speed profile:
//
//	linebot setup
//
// Then run the configured mission (simulated unless --hardware is given):
//
//	linebot run
//
// Work out a grab plan from six scan intensities by hand:
//
//	linebot resolve 5 9 3 7 1 6
//
// List the scans stored in the history:
//
//	linebot scans -n 20
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/linebot: CLI with setup, run, resolve and scans commands
//   - pkg/robot: Drive and sensor interfaces, cage servo and calibration
//   - pkg/linefollow: Line-following control loop and junction detection
//   - pkg/slots: Field scan, slot classification and grab resolution
//   - pkg/storage: Scan persistence (hub blob and SQLite history)
//   - pkg/sim: Simulated vehicle, track and cage
//   - pkg/mission: Mission configuration and step runner
package linebot
