// server.go - REST API for the staking ledger daemon.
//
// Mutating commands pass through the rate limiter and are audit-logged with
// their outcome; queries are served directly from the contract.

package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DickTrevelyan/shield-stake-estate/api"
	"github.com/DickTrevelyan/shield-stake-estate/internal/estate"
	"github.com/DickTrevelyan/shield-stake-estate/internal/nonce"
	"github.com/DickTrevelyan/shield-stake-estate/internal/property"
)

const version = "1.0.0"

type server struct {
	cfg      *Config
	logger   *Logger
	metrics  *MetricsCollector
	limiter  *RateLimiter
	health   *HealthChecker
	contract *estate.Contract
}

// routes registers all endpoints on a fresh mux.
func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/info", s.handleInfo)
	mux.HandleFunc("/property/create", s.limited(s.handleCreateProperty))
	mux.HandleFunc("/property/stake", s.limited(s.handleStake))
	mux.HandleFunc("/property/unstake", s.limited(s.handleUnstake))
	mux.HandleFunc("/property/close", s.limited(s.handleCloseProperty))
	mux.HandleFunc("/property", s.handleGetProperty)
	mux.HandleFunc("/properties/active", s.handleActiveProperties)
	mux.HandleFunc("/properties/count", s.handlePropertyCount)
	mux.HandleFunc("/properties/batch-active", s.handleBatchActive)
	mux.HandleFunc("/stake", s.handleGetStake)
	mux.HandleFunc("/stake/authorized", s.limited(s.handleAuthorizedRead))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	return mux
}

// limited wraps a handler with the token-bucket rate limiter.
func (s *server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.metrics.IncrementCounter(MetricRateLimitedCount)
			s.writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next(w, r)
	}
}

func (s *server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (s *server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: err.Error()})
}

// statusFor maps a command rejection to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, estate.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, nonce.ErrAlreadyUsed):
		return http.StatusConflict
	case errors.Is(err, property.ErrOnlyOwner):
		return http.StatusForbidden
	case errors.Is(err, property.ErrDoesNotExist):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

// rejectOrCommit finishes a mutating command uniformly: audit, metrics,
// response.
func (s *server) rejectOrCommit(w http.ResponseWriter, command, caller string, counter string, err error, resp interface{}) {
	s.logger.AuditCommand(command, caller, err)
	if err != nil {
		s.metrics.IncrementCounter(MetricRejectedCount)
		s.logger.Warn("%s rejected for %s: %v", command, caller, err)
		s.writeError(w, statusFor(err), err)
		return
	}
	s.metrics.IncrementCounter(counter)
	if resp == nil {
		resp = map[string]string{"status": "ok"}
	}
	s.writeJSON(w, resp)
}

func (s *server) handleInfo(w http.ResponseWriter, r *http.Request) {
	pk := s.contract.EncryptionKey()
	pkBytes := pk.Bytes()
	s.writeJSON(w, api.InfoResponse{
		Address:       s.contract.Address(),
		ChainID:       s.contract.ChainID(),
		EncryptionKey: hex.EncodeToString(pkBytes[:]),
		Version:       version,
	})
}

func (s *server) handleCreateProperty(w http.ResponseWriter, r *http.Request) {
	var req api.CreatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	start := time.Now()
	id, err := s.contract.CreateProperty(estate.CreatePropertyParams{
		From:         req.From,
		Name:         req.Name,
		Location:     req.Location,
		ImageURL:     req.ImageURL,
		TargetAmount: req.TargetAmount,
		ROI:          req.ROI,
		Nonce:        req.Nonce,
		Signature:    req.Signature,
	})
	s.metrics.timeCommand("create_property", start)
	var resp interface{}
	if err == nil {
		resp = api.CreatePropertyResponse{ID: id}
	}
	s.rejectOrCommit(w, "create_property", req.From.Hex(), MetricCreateCount, err, resp)
}

func (s *server) handleStake(w http.ResponseWriter, r *http.Request) {
	var req api.StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	start := time.Now()
	err := s.contract.Stake(estate.StakeParams{
		From:       req.From,
		PropertyID: req.PropertyID,
		Value:      req.Value,
		Deposit:    req.Deposit,
		Nonce:      req.Nonce,
		Signature:  req.Signature,
	})
	s.metrics.RecordHistogram(MetricProofVerifyTime, float64(time.Since(start).Milliseconds()))
	s.rejectOrCommit(w, "stake", req.From.Hex(), MetricStakeCount, err, nil)
}

func (s *server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	var req api.UnstakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	err := s.contract.Unstake(estate.UnstakeParams{
		From:       req.From,
		PropertyID: req.PropertyID,
		Deposit:    req.Deposit,
		Nonce:      req.Nonce,
		Signature:  req.Signature,
	})
	s.rejectOrCommit(w, "unstake", req.From.Hex(), MetricUnstakeCount, err, nil)
}

func (s *server) handleCloseProperty(w http.ResponseWriter, r *http.Request) {
	var req api.ClosePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	err := s.contract.CloseProperty(req.PropertyID, req.Caller)
	s.rejectOrCommit(w, "close_property", req.Caller.Hex(), MetricCloseCount, err, nil)
}

func (s *server) handleGetProperty(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid property id"))
		return
	}
	p, err := s.contract.GetProperty(id)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, p)
}

func (s *server) handleActiveProperties(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, api.ActiveResponse{IDs: s.contract.GetActiveProperties()})
}

func (s *server) handlePropertyCount(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, api.CountResponse{Count: s.contract.GetPropertyCount()})
}

func (s *server) handleBatchActive(w http.ResponseWriter, r *http.Request) {
	var req api.BatchActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, api.BatchActiveResponse{Active: s.contract.BatchCheckActive(req.IDs)})
}

func (s *server) handleGetStake(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.URL.Query().Get("property_id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid property id"))
		return
	}
	holderHex := r.URL.Query().Get("holder")
	if !common.IsHexAddress(holderHex) {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid holder address"))
		return
	}
	stake := s.contract.GetUserStake(id, common.HexToAddress(holderHex))
	s.writeJSON(w, api.StakeResponse{Stake: stake})
}

func (s *server) handleAuthorizedRead(w http.ResponseWriter, r *http.Request) {
	var req api.AuthorizedReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	stake, err := s.contract.GetUserStakeWithSignature(req.PropertyID, req.Nonce, req.Signature)
	var resp interface{}
	if err == nil {
		resp = api.StakeResponse{Stake: stake}
	}
	s.rejectOrCommit(w, "authorized_read", "", MetricAuthorizedReadCount, err, resp)
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.health.CheckHealth()
	if health.OverallStatus != Healthy {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(health)
		return
	}
	s.writeJSON(w, health)
}

func (s *server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.metrics.Summary())
}
