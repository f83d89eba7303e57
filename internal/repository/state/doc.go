// Package state persists substation control state between controller runs.
//
// The FileRepository stores the fleet as a protobuf JSON document on disk so that
// pending controls issued by one run are verified by the next one.
package state
