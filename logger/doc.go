// Package logger provides structured logging for relaykit built on zerolog.
//
// Components obtain a tagged logger with WithComponent and log state
// transitions, denials, and terminal failures with the standard field keys
// defined in fields.go.
package logger
