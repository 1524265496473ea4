// Package audit buffers audit events and relays them to a Sink from one
// background goroutine.
//
// The package does not decide which events to emit; the Engine does. It
// imports nothing from authgate and performs no I/O beyond what a
// caller-supplied Sink does.
package audit
