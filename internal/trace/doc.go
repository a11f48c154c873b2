// Package trace is the debug/trace sink of the evaluation engine.
//
// A Sink receives the beginning and end of every evaluation pass and one event
// per evaluated operation node. Operation bodies can add their own events
// through a Printer, with subdata, indexed subdata, typed parent and time
// variants. Sinks only observe: nothing they do feeds back into scheduling.
package trace
