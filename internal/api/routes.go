package api

import "github.com/gorilla/mux"

func registerRoutes(r *mux.Router, s *Server) {
	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET", "OPTIONS")
	r.HandleFunc("/land/{n}/state/", s.handleLandState).Methods("GET", "OPTIONS")
	r.HandleFunc("/land/states/", s.cachedHandler(s.aggregateTTL, s.handleLandStates)).Methods("GET", "OPTIONS")
	r.HandleFunc("/lands/states/stream/", s.handleStream).Methods("GET", "OPTIONS")
}
