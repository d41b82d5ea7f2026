package monitor

import "fmt"

// Sample fields read by the default rules.
const (
	FieldLoad     = "adc_vl_f"
	FieldCurrent  = "adc_il_f"
	FieldPing     = "ping"
	FieldLEDState = "led_state"
)

// CriticalLEDState is the lowest LED state code in the critical-failure range.
const CriticalLEDState = 12

// Rule names, also used as the "rule" metric label.
const (
	RulePowerDrop     = "power_drop"
	RuleCommLoss      = "comm_loss"
	RuleCriticalState = "critical_state"
)

// Rule is one transition condition.
//
// Keys lists the Sample fields the rule reads; now and then passed to Fires
// and Message hold those fields' values, in Keys order, from the current and
// previous Sample.
type Rule struct {
	Name    string
	Keys    []string
	Fires   func(now, then []float64) bool
	Message func(now, then []float64) string
}

// DefaultRules returns the monitor's rule set in evaluation order.
// threshold is the power level, in watts, below which power counts as lost.
func DefaultRules(threshold float64) []Rule {
	return []Rule{
		PowerDropRule(threshold),
		CommLossRule(),
		CriticalStateRule(),
	}
}

// PowerDropRule fires when load × current falls from above threshold to
// below it.
func PowerDropRule(threshold float64) Rule {
	power := func(v []float64) float64 { return v[0] * v[1] }
	return Rule{
		Name: RulePowerDrop,
		Keys: []string{FieldLoad, FieldCurrent},
		Fires: func(now, then []float64) bool {
			return power(now) < threshold && power(then) > threshold
		},
		Message: func(now, then []float64) string {
			return fmt.Sprintf("Power has dropped from %.2f to %.2f.", power(then), power(now))
		},
	}
}

// CommLossRule fires when ping goes from zero (reachable) to nonzero.
func CommLossRule() Rule {
	return Rule{
		Name: RuleCommLoss,
		Keys: []string{FieldPing},
		Fires: func(now, then []float64) bool {
			return now[0] != 0 && then[0] == 0
		},
		Message: func(_, _ []float64) string {
			return "No communication with sensor!"
		},
	}
}

// CriticalStateRule fires when the LED state is critical and differs from
// the previous tick's state.
func CriticalStateRule() Rule {
	return Rule{
		Name: RuleCriticalState,
		Keys: []string{FieldLEDState},
		Fires: func(now, then []float64) bool {
			return now[0] >= CriticalLEDState && now[0] != then[0]
		},
		Message: func(now, _ []float64) string {
			return fmt.Sprintf("Critical failure with charge controller. LED state: %v.", now[0])
		},
	}
}
