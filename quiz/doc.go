// Package quiz is the pure state machine for one quiz attempt: question
// cursor, option selection, answer checking, scoring, and per-question
// feedback capture. It performs no I/O and has no dependency on the network
// layer; answer submission to the server is the host's concern.
//
// Every guard condition is a no-op rather than an error, so the machine is
// safe under duplicate or out-of-order UI events.
package quiz
