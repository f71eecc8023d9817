package fit

import "github.com/divelogio/divecore/internal/divetypes"

// eventInfo names one FIT EVENT.event enum value's display name and
// default severity, for the subset of codes that are meaningful to a
// dive log (spec.md §4.7). Codes outside this table still surface as a
// generic event, named by number, at info severity.
type eventInfo struct {
	name     string
	severity divetypes.EventSeverity
}

var eventTable = map[int]eventInfo{
	0:  {"timer", divetypes.SeverityInfo},
	3:  {"workout", divetypes.SeverityInfo},
	15: {"battery_low", divetypes.SeverityWarning},
	24: {"ccr_setpoint_low", divetypes.SeverityInfo},
	25: {"ccr_setpoint_high", divetypes.SeverityInfo},
	36: {"safety_stop", divetypes.SeverityWarning},
	38: {"gas_switch_required", divetypes.SeverityWarning},
	41: {"ascent_rate", divetypes.SeverityViolation},
	42: {"violation", divetypes.SeverityViolation},
	43: {"bookmark", divetypes.SeverityInfo},
	56: {"ndl_exceeded", divetypes.SeverityViolation},
	57: {"gas_switch", divetypes.SeverityInfo},
	71: {"tank_pressure_reserve", divetypes.SeverityWarning},
	72: {"tank_pressure_critical", divetypes.SeverityViolation},
}

// eventGasSwitch is the EVENT.event code whose data field packs a gas mix
// index directly, rather than naming a generic occurrence (spec.md §4.7:
// "code 57 decodes event.data as a gas mix index and emits a GasMix sample
// directly instead of a generic Event sample").
const eventGasSwitch = 57

// eventSetpointLow and eventSetpointHigh are the two EVENT.event codes
// that synthesize a SetpointChange pending record instead of a generic
// Event sample (spec.md §4.7).
const (
	eventSetpointLow  = 24
	eventSetpointHigh = 25
)

func describeEvent(code int) (name string, severity divetypes.EventSeverity) {
	if info, ok := eventTable[code]; ok {
		return info.name, info.severity
	}
	return "event-" + itoa(code), divetypes.SeverityInfo
}
