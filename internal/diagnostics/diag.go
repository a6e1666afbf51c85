package diagnostics

import "fmt"

type Severity string

const (
	Info Severity = "info"
	Warn Severity = "warning"
	Err  Severity = "error"
)

type Diagnostic struct {
	Severity       Severity       `json:"severity"`
	Code           string         `json:"code"`
	Summary        string         `json:"summary"`
	Detail         string         `json:"detail,omitempty"`
	LikelyCauses   []string       `json:"likely_causes,omitempty"`
	SuggestedFixes []string       `json:"suggested_fixes,omitempty"`
	Evidence       map[string]any `json:"evidence,omitempty"`
}

// ThermalLock is raised when the panel exceeded its temperature ceiling.
func ThermalLock(summary string, temp, max float64) Diagnostic {
	return Diagnostic{
		Severity: Err,
		Code:     "THERMAL.LOCKED",
		Summary:  "Display blanked: over temperature",
		Detail:   summary,
		LikelyCauses: []string{
			"sustained high brightness in an enclosed case",
			"power budget set above what the supply and wiring can dissipate",
		},
		SuggestedFixes: []string{
			"lower the brightness or the power ceiling",
			"improve ventilation, then send resetThermal",
		},
		Evidence: map[string]any{
			"temperature_c": temp,
			"max_c":         max,
		},
	}
}

// DriverFault reports an output driver that failed to send a frame.
func DriverFault(driver string, err error) Diagnostic {
	return Diagnostic{
		Severity: Warn,
		Code:     "DRIVER.WRITE",
		Summary:  fmt.Sprintf("Output driver %q failed to send a frame", driver),
		Detail:   err.Error(),
		SuggestedFixes: []string{
			"check the data line and the SPI device permissions",
			"for OPC, check the server address",
		},
	}
}
