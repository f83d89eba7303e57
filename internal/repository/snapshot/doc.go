// Package snapshot provides the acquisition readings a control cycle works from.
package snapshot
