package robot

// CageConfig holds the cage servo connection and its two presets.
type CageConfig struct {
	Port        string      `json:"port"`
	Calibration Calibration `json:"calibration,omitempty"`

	// Preset angles in degrees from home.
	Up   float64 `json:"up"`
	Down float64 `json:"down"`

	// Tolerance is how close (in degrees) the servo must get to a preset
	// before a blocking move returns.
	Tolerance float64 `json:"tolerance"`
	TimeoutMs int     `json:"timeout_ms"`
}

// DefaultCageConfig returns the presets of the standard cage.
func DefaultCageConfig() CageConfig {
	return CageConfig{
		Up:        145,
		Down:      53,
		Tolerance: 3,
		TimeoutMs: 2000,
	}
}

// IsCalibrated returns true if the cage servo has calibration data
func (c *CageConfig) IsCalibrated() bool {
	_, ok := c.Calibration[CageMotor]
	return ok
}
