// Command server runs the memsweep service: a working-set trimming
// engine behind a small HTTP and WebSocket surface for UI clients.
//
// Usage:
//
//	server [-host 127.0.0.1] [-port 8090]
//
// Configuration is read from MEMSWEEP_* environment variables; flags
// override the listener address.
package main
