// Package logx is gw2bot's structured logging.
//
// Logger wraps zerolog. Console output is human readable, file output is
// JSON, and an optional ops-chat sink forwards warnings to a Telegram chat
// under a rate limit.
package logx
