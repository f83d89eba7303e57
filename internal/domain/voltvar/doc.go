// Package voltvar contains core domain types for the voltage/VAR control verification logic.
//
// It defines the per-transformer control record and the per-substation control state carried
// across control cycles, the tolerance classifier that decides whether an issued control took
// effect, the tie-breaker guard, and the Event type routed to alarm/log sinks.
package voltvar
