package vedirect

import "fmt"

// MPPTState is the maximum power point tracker operating state (tag "MPPT").
type MPPTState int

const (
	MPPTOff     MPPTState = 0
	MPPTLimited MPPTState = 1
	MPPTActive  MPPTState = 2
)

// MPPTStateFromValue maps the integer value of the "MPPT" tag to its enum.
func MPPTStateFromValue(value int) (MPPTState, error) {
	switch value {
	case 0:
		return MPPTOff, nil
	case 1:
		return MPPTLimited, nil
	case 2:
		return MPPTActive, nil
	default:
		return 0, fmt.Errorf("%w: MPPT=%d", ErrInvalidValue, value)
	}
}

func (s MPPTState) String() string {
	switch s {
	case MPPTOff:
		return "Off"
	case MPPTLimited:
		return "Limited"
	case MPPTActive:
		return "Active"
	default:
		return fmt.Sprintf("MPPTState(%d)", int(s))
	}
}

var chargeStateNames = map[int]string{
	0:   "Off",
	2:   "Fault",
	3:   "Bulk",
	4:   "Absorption",
	5:   "Float",
	6:   "Storage",
	7:   "Equalize (manual)",
	245: "Starting-up",
	247: "Auto equalize",
}

// ChargeStateString returns the name of a charger operating state (tag "CS").
func ChargeStateString(state int) string {
	if name, ok := chargeStateNames[state]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", state)
}

var errorNames = map[int]string{
	0:   "No error",
	2:   "Battery voltage too high",
	17:  "Charger temperature too high",
	18:  "Charger over current",
	19:  "Charger current reversed",
	20:  "Bulk time limit exceeded",
	21:  "Current sensor issue",
	26:  "Terminals overheated",
	33:  "Input voltage too high (solar panel)",
	34:  "Input current too high (solar panel)",
	38:  "Input shutdown (excessive battery voltage)",
	116: "Factory calibration data lost",
	117: "Invalid/incompatible firmware",
	119: "User settings invalid",
}

// ErrorString returns the name of a charger error code (tag "ERR").
func ErrorString(code int) string {
	if name, ok := errorNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", code)
}

var productNames = map[string]string{
	"0xA040": "BlueSolar MPPT 75/50",
	"0xA042": "BlueSolar MPPT 75/15",
	"0xA043": "BlueSolar MPPT 100/15",
	"0xA044": "BlueSolar MPPT 100/30",
	"0xA045": "BlueSolar MPPT 100/50",
	"0xA046": "BlueSolar MPPT 150/70",
	"0xA047": "BlueSolar MPPT 150/100",
	"0xA049": "BlueSolar MPPT 100/50 rev2",
	"0xA04A": "BlueSolar MPPT 100/30 rev2",
	"0xA050": "SmartSolar MPPT 250/100",
	"0xA051": "SmartSolar MPPT 150/100",
	"0xA052": "SmartSolar MPPT 150/85",
	"0xA053": "SmartSolar MPPT 75/15",
	"0xA054": "SmartSolar MPPT 75/10",
	"0xA055": "SmartSolar MPPT 100/15",
	"0xA056": "SmartSolar MPPT 100/30",
	"0xA057": "SmartSolar MPPT 100/50",
	"0xA058": "SmartSolar MPPT 150/35",
}

// ProductName maps a product ID to its marketing name, or the raw ID if unknown.
func ProductName(pid string) string {
	if name, ok := productNames[pid]; ok {
		return name
	}
	return pid
}
