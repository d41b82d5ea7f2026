// Package monitor implements the charge controller state monitor: a pipeline
// step that compares each tick's Sample with the previous one and sends a
// notification when a watched condition is entered.
//
// rules.go defines the fixed rule set (power drop, communication loss,
// critical LED state). Every rule is an edge trigger: it fires on the tick
// the condition is entered, not on every tick it persists.
//
// evaluator.go runs the rules with per-rule fault isolation. A missing field,
// a non-numeric value or a panic in one rule is collected into a single
// *EvaluationError and never stops the other rules.
//
// step.go holds the only state: the previous Sample. The first tick seeds it
// and never fires. After every tick the stored Sample is replaced by the
// tick's input, whether or not evaluation or delivery failed.
package monitor
