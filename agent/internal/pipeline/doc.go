// Package pipeline defines the data handed between agent processing steps.
//
// A Sample is one tick's full set of named readings (field name → DataValue).
// Steps receive the Sample produced by the previous step and return the Sample
// for the next one; observer steps such as the state monitor return their
// input unchanged.
//
// Pipeline.Tick runs every registered Step in order. A Step error is logged
// and does not stop the remaining steps.
package pipeline
