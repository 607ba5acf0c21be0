package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.loggingMw, s.maxBytesMw)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.health()).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.stats()).Methods(http.MethodGet)
	api.PathPrefix("").Handler(http.NotFoundHandler())

	return r
}
