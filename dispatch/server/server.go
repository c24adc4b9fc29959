// Package server exposes a dispatch registry over the synchronous HTTP JSON
// request/response channel. POST carries one call; GET answers readiness
// probes. Faults travel in-band so transport status stays orthogonal to
// dispatch results.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rcrowley/go-metrics"
	log "github.com/sirupsen/logrus"

	"github.com/jive-vlbi/adder/dispatch"
)

type Server struct {
	registry *dispatch.Registry
	calls    metrics.Counter
	faults   metrics.Counter
	latency  metrics.Timer
}

func New(registry *dispatch.Registry) *Server {
	return &Server{
		registry: registry,
		calls:    metrics.GetOrRegisterCounter("dispatch.server.calls", nil),
		faults:   metrics.GetOrRegisterCounter("dispatch.server.faults", nil),
		latency:  metrics.GetOrRegisterTimer("dispatch.server.latency", nil),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		w.Write([]byte("ok"))
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer s.latency.UpdateSince(time.Now())

	var req dispatch.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.calls.Inc(1)

	result, err := s.registry.Call(req.Method, req.Params...)
	resp := dispatch.CallResponse{Result: result}
	if err != nil {
		s.faults.Inc(1)
		resp = dispatch.CallResponse{Fault: dispatch.FaultFromError(err)}
		log.WithFields(log.Fields{
			"method": req.Method,
			"error":  err,
		}).Info("Dispatch fault")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.WithFields(log.Fields{
			"method": req.Method,
			"error":  err,
		}).Error("Error encoding dispatch response")
	}
}

// ListenAndServe runs the dispatch server on addr until it fails.
func ListenAndServe(addr string, registry *dispatch.Registry) error {
	log.WithFields(log.Fields{"addr": addr}).Info("Serving dispatch")
	return http.ListenAndServe(addr, New(registry))
}
