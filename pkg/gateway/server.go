package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/Scilence2022/CodeXomics-sub009/pkg/classifier"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/orchestrator"
	"github.com/Scilence2022/CodeXomics-sub009/pkg/registry"
)

// Server is the dispatch gateway
type Server struct {
	port           int
	server         *http.Server
	upgrader       websocket.Upgrader
	auth           *AuthHandler
	orch           *orchestrator.Orchestrator
	classifier     *classifier.Classifier
	adapters       []registry.Adapter
	metricsHandler http.Handler
	logger         zerolog.Logger
	inFlightReqs   sync.WaitGroup
}

// Config holds server configuration
type Config struct {
	Port           int
	SharedSecret   string
	Orchestrator   *orchestrator.Orchestrator
	Classifier     *classifier.Classifier
	Adapters       []registry.Adapter
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewServer creates a new gateway server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if cfg.Classifier == nil {
		cfg.Classifier = classifier.New()
	}

	return &Server{
		port:           cfg.Port,
		auth:           NewAuthHandler(cfg.SharedSecret),
		orch:           cfg.Orchestrator,
		classifier:     cfg.Classifier,
		adapters:       cfg.Adapters,
		metricsHandler: cfg.MetricsHandler,
		logger:         cfg.Logger.With().Str("component", "gateway").Logger(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Assistant layer runs on the same host
			},
		},
	}, nil
}

// Handler returns the gateway's HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/batch", s.handleBatch)
	mux.HandleFunc("/catalog", s.handleCatalog)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if s.metricsHandler != nil {
		mux.Handle("/metrics", s.metricsHandler)
	}
	return mux
}

// Start starts the gateway server
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().Int("port", s.port).Msg("Starting gateway")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Gateway server error")
		}
	}()

	return nil
}

// Stop gracefully stops the gateway
func (s *Server) Stop() error {
	s.logger.Info().Msg("Shutting down gateway")

	done := make(chan struct{})
	go func() {
		s.inFlightReqs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		s.logger.Warn().Msg("Shutdown timeout reached, forcing close")
	}

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// handleBatch runs one call batch posted as a JSON array
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.auth.Authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.inFlightReqs.Add(1)
	defer s.inFlightReqs.Done()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 4<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	results, err := s.orch.RunBatchJSON(r.Context(), body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(results); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode batch response")
	}
}

// handleCatalog lists every callable function with its execution class
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var catalog []CatalogEntry
	for _, adapter := range s.adapters {
		for _, entry := range adapter.Entries() {
			catalog = append(catalog, CatalogEntry{
				Name:        entry.QualifiedName,
				Description: entry.Description,
				SourceID:    entry.SourceID,
				Class:       string(s.classifier.Classify(entry.QualifiedName, adapter.Kind())),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(catalog); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode catalog response")
	}
}

// handleWebSocket serves the bidirectional batch channel. Each inbound
// message is one batch; responses carry the message ID so batches may
// run concurrently.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.auth.Authorize(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	clientID, _ := gonanoid.New()
	s.logger.Debug().Str("client", clientID).Msg("Assistant client connected")

	var writeMu sync.Mutex
	write := func(msg ResultMessage) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(msg); err != nil {
			s.logger.Warn().Err(err).Str("client", clientID).Msg("Failed to write response")
		}
	}

	ctx := r.Context()
	for {
		var msg BatchMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Str("client", clientID).Msg("Websocket read error")
			}
			return
		}

		if len(msg.Calls) == 0 {
			write(ResultMessage{ID: msg.ID, Error: "malformed batch: no calls"})
			continue
		}

		s.inFlightReqs.Add(1)
		go func(msg BatchMessage) {
			defer s.inFlightReqs.Done()
			results := s.orch.RunBatch(ctx, msg.Calls)
			write(ResultMessage{ID: msg.ID, Results: results})
		}(msg)
	}
}
