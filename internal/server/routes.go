package server

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Get("/health", s.health)

	// Bridge websocket
	r.Get("/bridge", s.bridge)

	// Broadcast an event to every connected bridge client
	r.Post("/event", s.broadcast)
}
