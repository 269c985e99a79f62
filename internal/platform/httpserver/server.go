package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	ballotservice "quorum/contexts/governance/ballot-service"
	ballotdomainerrors "quorum/contexts/governance/ballot-service/domain/errors"
	ballothttp "quorum/contexts/governance/ballot-service/transport/http"
	"quorum/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "quorum/internal/platform/httpserver/docs"
)

type Server struct {
	mux     *http.ServeMux
	logger  *slog.Logger
	addr    string
	ballot  ballotservice.Module
	metrics *metrics.BallotMetrics
}

func New(
	ballot ballotservice.Module,
	ballotMetrics *metrics.BallotMetrics,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:     http.NewServeMux(),
		logger:  logger,
		addr:    addr,
		ballot:  ballot,
		metrics: ballotMetrics,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.Handler())
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /v1/proposals", s.handleCreateProposal)
	s.mux.HandleFunc("GET /v1/proposals", s.handleListProposals)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}", s.handleGetProposal)
	s.mux.HandleFunc("GET /v1/proposals/{proposal_id}/result", s.handleProposalResult)
	s.mux.HandleFunc("POST /v1/proposals/{proposal_id}/votes", s.handleCastVote)

	s.mux.HandleFunc("POST /v1/voters/{identity}/credits", s.handleGrantCredits)
	s.mux.HandleFunc("GET /v1/voters/{identity}", s.handleGetVoter)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req ballothttp.CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballot.Handler.CreateProposalHandler(r.Context(), req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ProposalsCreated.Inc()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListProposals(w http.ResponseWriter, r *http.Request) {
	at, ok := resolveAt(w, r)
	if !ok {
		return
	}
	resp, err := s.ballot.Handler.ListProposalsHandler(r.Context(), at)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := resolveProposalID(w, r)
	if !ok {
		return
	}
	at, ok := resolveAt(w, r)
	if !ok {
		return
	}
	resp, err := s.ballot.Handler.GetProposalHandler(r.Context(), proposalID, at)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProposalResult(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := resolveProposalID(w, r)
	if !ok {
		return
	}
	at, ok := resolveAt(w, r)
	if !ok {
		return
	}
	resp, err := s.ballot.Handler.ProposalResultHandler(r.Context(), proposalID, at)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := resolveProposalID(w, r)
	if !ok {
		return
	}
	caller := strings.TrimSpace(r.Header.Get("X-Voter-Id"))
	if caller == "" {
		writeBallotError(w, http.StatusUnauthorized, "missing_voter", "X-Voter-Id header is required")
		return
	}

	var req ballothttp.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballot.Handler.CastVoteHandler(r.Context(), proposalID, caller, req)
	if err != nil {
		if s.metrics != nil {
			_, code := ballotErrorStatus(err)
			s.metrics.VotesRejected.WithLabelValues(code).Inc()
		}
		writeBallotDomainError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.VotesCast.WithLabelValues(strconv.FormatUint(proposalID, 10)).Inc()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGrantCredits(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")

	var req ballothttp.GrantCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.ballot.Handler.GrantCreditsHandler(r.Context(), identity, req)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")
	resp, err := s.ballot.Handler.VoterHandler(r.Context(), identity)
	if err != nil {
		writeBallotDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func resolveProposalID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := r.PathValue("proposal_id")
	proposalID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_proposal_id", "proposal_id must be a non-negative integer")
		return 0, false
	}
	return proposalID, true
}

// resolveAt reads the optional "at" query parameter so read endpoints
// can be evaluated against an explicit instant instead of wall time.
func resolveAt(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("at"))
	if raw == "" {
		return time.Time{}, true
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeBallotError(w, http.StatusBadRequest, "invalid_at", "at must be an RFC 3339 timestamp")
		return time.Time{}, false
	}
	return at.UTC(), true
}

func ballotErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ballotdomainerrors.ErrProposalNotFound):
		return http.StatusNotFound, "proposal_not_found"
	case errors.Is(err, ballotdomainerrors.ErrVoterNotFound):
		return http.StatusNotFound, "voter_not_found"
	case errors.Is(err, ballotdomainerrors.ErrProposalClosed):
		return http.StatusConflict, "proposal_closed"
	case errors.Is(err, ballotdomainerrors.ErrProposalStillOpen):
		return http.StatusConflict, "proposal_still_open"
	case errors.Is(err, ballotdomainerrors.ErrInsufficientCredits):
		return http.StatusConflict, "insufficient_credits"
	case errors.Is(err, ballotdomainerrors.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, ballotdomainerrors.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, ballotdomainerrors.ErrInvalidIdentity):
		return http.StatusBadRequest, "invalid_identity"
	case errors.Is(err, ballotdomainerrors.ErrInvalidProposalInput):
		return http.StatusBadRequest, "invalid_proposal_input"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeBallotDomainError(w http.ResponseWriter, err error) {
	status, code := ballotErrorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	writeBallotError(w, status, code, message)
}

func writeBallotError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ballothttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
