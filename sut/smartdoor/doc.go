// Package smartdoor implements the adapter.Handler for the SmartDoor SUT.
//
// The SmartDoor API is a WebSocket endpoint speaking plain text commands:
// the handler sends upper-cased commands (OPEN, CLOSE, LOCK:<passcode>,
// UNLOCK:<passcode>, RESET) and receives replies it maps to lower-cased
// response labels on the "matrix" channel (opened, closed, locked,
// unlocked, invalid_command, invalid_passcode, incorrect_passcode,
// shut_off). The RESET_PERFORMED reply is special: it signals that the SUT
// reached its initial state and becomes a Ready signal to the broker
// instead of a response label.
//
// Lifecycle per broker session: Start dials the endpoint from the current
// configuration and sends RESET; the eventual RESET_PERFORMED triggers
// SendReady. Reset sends another RESET. Stop closes the connection and
// joins the read loop.
package smartdoor
