// Package pipeline connects a capture source to the key matcher.
//
// The capture handler runs on the tap thread and only classifies and
// enqueues events. A single consumer goroutine pops chords in order, feeds
// them to the engine under the daemon lock and dispatches resolved actions
// with the lock released, so an action may call back into the daemon.
package pipeline
