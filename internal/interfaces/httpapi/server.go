package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ethtracker/internal/application"
	"ethtracker/internal/domain"
)

const maxBatchAddresses = 50

type AddressProcessor interface {
	ProcessAddress(ctx context.Context, req application.AddressRequest) (*application.AddressResult, error)
	ProcessBatch(ctx context.Context, addresses []string, template application.AddressRequest) []application.BatchResult
}

type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

type Server struct {
	tracker   AddressProcessor
	metrics   *Metrics
	buildInfo BuildInfo
}

func NewServer(tracker AddressProcessor, metrics *Metrics, buildInfo BuildInfo) (*Server, error) {
	if tracker == nil {
		return nil, errors.New("http server dependencies must not be nil")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{tracker: tracker, metrics: metrics, buildInfo: buildInfo}, nil
}

func (s *Server) MetricsObserver() *Metrics {
	return s.metrics
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.instrument("healthz", s.handleHealth))
	mux.HandleFunc("/version", s.instrument("version", s.handleVersion))
	mux.HandleFunc("/transactions", s.instrument("transactions", s.handleTransactions))
	mux.HandleFunc("/batch", s.instrument("batch", s.handleBatch))
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.buildInfo)
}

type transactionsResponse struct {
	*application.AddressResult
	Transactions []domain.UnifiedTransaction `json:"transactions"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	req, err := parseAddressRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Address = r.URL.Query().Get("address")

	result, err := s.tracker.ProcessAddress(r.Context(), req)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	transactions := result.Transactions
	if transactions == nil {
		transactions = []domain.UnifiedTransaction{}
	}
	respondJSON(w, http.StatusOK, transactionsResponse{AddressResult: result, Transactions: transactions})
}

type batchRequest struct {
	Addresses []string `json:"addresses"`
}

type batchItem struct {
	Address string                     `json:"address"`
	Result  *application.AddressResult `json:"result,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	template, err := parseAddressRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var payload batchRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if len(payload.Addresses) == 0 {
		respondError(w, http.StatusBadRequest, "addresses is required")
		return
	}
	if len(payload.Addresses) > maxBatchAddresses {
		respondError(w, http.StatusBadRequest, "too many addresses")
		return
	}

	results := s.tracker.ProcessBatch(r.Context(), payload.Addresses, template)
	items := make([]batchItem, 0, len(results))
	for _, result := range results {
		item := batchItem{Address: result.Address, Result: result.Result}
		if result.Err != nil {
			item.Error = result.Err.Error()
		}
		items = append(items, item)
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(recorder, r)
		s.metrics.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func parseAddressRequest(r *http.Request) (application.AddressRequest, error) {
	query := r.URL.Query()
	start, err := parseUintParam(query.Get("start_block"), "start_block")
	if err != nil {
		return application.AddressRequest{}, err
	}
	end, err := parseUintParam(query.Get("end_block"), "end_block")
	if err != nil {
		return application.AddressRequest{}, err
	}
	limit, err := parseLimit(query.Get("limit"))
	if err != nil {
		return application.AddressRequest{}, err
	}
	export := false
	if raw := query.Get("export"); raw != "" {
		export, err = strconv.ParseBool(raw)
		if err != nil {
			return application.AddressRequest{}, errors.New("invalid export")
		}
	}
	return application.AddressRequest{
		StartBlock:      start,
		EndBlock:        end,
		MaxTransactions: limit,
		Export:          export,
	}, nil
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		return 0, errors.New("invalid limit")
	}
	return value, nil
}

func parseUintParam(raw, key string) (uint64, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return value, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
