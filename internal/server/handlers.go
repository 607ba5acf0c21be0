package server

import (
	"encoding/json"
	"net/http"
)

func (s Server) writeJsonResponse(w http.ResponseWriter, response any, statusCode int) {
	if resp, err := json.Marshal(response); err != nil {
		s.Logger.Errorf("Error encoding response: %+v, err: %v", response, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	} else {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(statusCode)
		if _, err = w.Write(resp); err != nil {
			s.Logger.Errorf("Error writing JSON response: %s, err: %v", resp, err)
		}
	}
}

func (s Server) health() http.HandlerFunc {
	type response struct {
		Status string `json:"status"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.DB.Client().Ping(r.Context(), nil); err != nil {
			tc := getTraceContext(r.Context())
			s.Logger.Errorf("health: Error pinging DB, err: %v, TraceID: %s", err, tc.traceID)
			s.writeJsonResponse(w, response{Status: "degraded"}, http.StatusServiceUnavailable)
			return
		}
		s.writeJsonResponse(w, response{Status: "ok"}, http.StatusOK)
	}
}

func (s Server) stats() http.HandlerFunc {
	type response struct {
		Users    int64 `json:"users"`
		Products int64 `json:"products"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		tc := getTraceContext(r.Context())

		users, err := s.DB.UsersCount(r.Context())
		if err != nil {
			s.Logger.Errorf("stats: Error counting Users, err: %v, TraceID: %s", err, tc.traceID)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		products, err := s.DB.ProductsCount(r.Context())
		if err != nil {
			s.Logger.Errorf("stats: Error counting Products, err: %v, TraceID: %s", err, tc.traceID)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		s.writeJsonResponse(w, response{Users: users, Products: products}, http.StatusOK)
	}
}
