package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server exposes the state of registered deliveries over HTTP so
// operators can watch long-running runs.
type Server struct {
	logger     *zap.Logger
	deliveries map[string]*Delivery
	mu         sync.RWMutex
}

type DeliveryInfo struct {
	Name  string `json:"name"`
	State State  `json:"state"`

	Stats Stats `json:"stats,omitempty"`
}

func NewServer(logger *zap.Logger) *Server {
	return &Server{
		logger:     logger,
		deliveries: make(map[string]*Delivery),
	}
}

func (s *Server) RegisterDelivery(d *Delivery) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deliveries[d.Name()] = d
	s.logger.Info("delivery registered",
		zap.String("delivery_name", d.Name()),
		zap.String("state", string(d.State.Current())))
}

func (s *Server) UnregisterDelivery(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d, exists := s.deliveries[name]; exists {
		delete(s.deliveries, name)
		s.logger.Info("delivery unregistered",
			zap.String("delivery_name", name),
			zap.String("state", string(d.State.Current())))
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Route("/api/v1/deliveries", func(r chi.Router) {
		r.Get("/", s.listDeliveries)
		r.Get("/{name}", s.getDelivery)
	})

	return r
}

func (s *Server) listDeliveries(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	deliveries := make([]DeliveryInfo, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		deliveries = append(deliveries, DeliveryInfo{
			Name:  d.Name(),
			State: d.State.Current(),
			Stats: d.Stats(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"deliveries": deliveries,
		"count":      len(deliveries),
	})
}

func (s *Server) getDelivery(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.mu.RLock()
	d, exists := s.deliveries[name]
	s.mu.RUnlock()

	if !exists {
		http.Error(w, "delivery not found", http.StatusNotFound)
		return
	}

	info := DeliveryInfo{
		Name:  d.Name(),
		State: d.State.Current(),
		Stats: d.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
	}

	s.logger.Info("starting delivery server", zap.String("addr", addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down delivery server")
		srv.Shutdown(context.Background())
	}()

	return srv.ListenAndServe()
}
