// Package server serves the host emulator to remote bridge clients.
//
// # Endpoints
//
//   - GET /bridge: websocket. Every text frame is a {"eventType","eventData"}
//     command for the host emulator; every event the emulator emits in reply is
//     written back on the same socket in the same envelope.
//   - POST /event: broadcasts the posted {"eventType","eventData"} to all
//     connected bridge clients, e.g. to simulate a host-initiated theme change.
//   - GET /health: liveness and the number of open bridge connections.
//
// Each connection gets its own emulator, so an event produced by one client's
// command is only seen by that client. State written through secure storage is
// shared through the server's storage directory.
//
// # Usage
//
//	store := storage.New(paths.Data)
//	srv := server.New(server.DefaultConfig(), store)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
