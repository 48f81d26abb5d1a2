package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	votingengine "github.com/TADABA21/voting-app/contexts/election/voting-engine"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	votinghttp "github.com/TADABA21/voting-app/contexts/election/voting-engine/transport/http"

	httpSwagger "github.com/swaggo/http-swagger"
	_ "github.com/TADABA21/voting-app/internal/platform/httpserver/docs"
)

const (
	maxJSONBody      = 1 << 20
	maxMultipartBody = 10 << 20
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	mux    *http.ServeMux
	logger *slog.Logger
	addr   string
	voting votingengine.Module
	health HealthCheck
	server *http.Server
}

func New(voting votingengine.Module, health HealthCheck, logger *slog.Logger, addr string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:    http.NewServeMux(),
		logger: logger,
		addr:   addr,
		voting: voting,
		health: health,
	}
	s.registerRoutes()
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called, which makes it return nil.
func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server stopping",
		"event", "http_server_stopping",
		"module", "internal/platform/httpserver",
		"layer", "platform",
	)
	return s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	s.mux.HandleFunc("POST /api/auth/change-password", s.authenticated(s.handleChangePassword))

	s.mux.HandleFunc("GET /api/vote/check", s.authenticated(s.handleSession))
	s.mux.HandleFunc("GET /api/vote/candidates", s.handleListCandidates)
	s.mux.HandleFunc("POST /api/vote/submit", s.authenticated(s.handleSubmitVote))
	s.mux.HandleFunc("GET /api/vote/results", s.authenticated(s.handleResults))
	s.mux.HandleFunc("GET /api/results", s.handlePublicResults)

	s.mux.HandleFunc("GET /api/admin/check", s.authenticated(s.handleAdminCheck))
	s.mux.HandleFunc("GET /api/admin/candidates", s.authenticated(s.handleAdminListCandidates))
	s.mux.HandleFunc("POST /api/admin/candidates", s.authenticated(s.handleAddCandidate))
	s.mux.HandleFunc("DELETE /api/admin/candidates/{name}", s.authenticated(s.handleDeleteCandidate))
	s.mux.HandleFunc("GET /api/admin/vote-counts", s.authenticated(s.handleVoteCounts))
	s.mux.HandleFunc("POST /api/admin/students", s.authenticated(s.handleAddStudent))
	s.mux.HandleFunc("POST /api/admin/students/bulk", s.authenticated(s.handleBulkAddStudents))
	s.mux.HandleFunc("POST /api/admin/students/bulk-excel", s.authenticated(s.handleImportStudentsSheet))
	s.mux.HandleFunc("GET /api/admin/students", s.authenticated(s.handleListStudents))
	s.mux.HandleFunc("DELETE /api/admin/students/{email}", s.authenticated(s.handleRemoveStudent))
	s.mux.HandleFunc("GET /api/admin/voters", s.authenticated(s.handleListVoters))
	s.mux.HandleFunc("GET /api/admin/users", s.authenticated(s.handleListVoters))
	s.mux.HandleFunc("POST /api/admin/make-admin", s.authenticated(s.handlePromote))
	s.mux.HandleFunc("POST /api/admin/remove-admin", s.authenticated(s.handleDemote))
	s.mux.HandleFunc("POST /api/admin/reset", s.authenticated(s.handleReset))
	s.mux.HandleFunc("POST /api/admin/sync", s.authenticated(s.handleSync))
	s.mux.HandleFunc("POST /api/admin/bootstrap", s.handleBootstrap)
	s.mux.HandleFunc("GET /api/admin/bootstrap-status", s.handleBootstrapStatus)
}

type authenticatedHandler func(http.ResponseWriter, *http.Request, entities.Identity)

// authenticated resolves the bearer token before calling next. Admin checks
// stay in the use cases, which receive the identity explicitly.
func (s *Server) authenticated(next authenticatedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeVotingError(w, http.StatusUnauthorized, "missing_token", "Authorization bearer token is required", nil)
			return
		}
		identity, err := s.voting.Handler.Authenticate(r.Context(), token)
		if err != nil {
			s.writeVotingDomainError(w, r, err)
			return
		}
		next(w, r, identity)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.RegisterHandler(r.Context(), req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.LoginHandler(r.Context(), req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	var req votinghttp.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.ChangePasswordHandler(r.Context(), identity, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	resp, err := s.voting.Handler.SessionHandler(r.Context(), identity)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.ListCandidatesHandler(r.Context())
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitVote(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	var req votinghttp.SubmitVoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.SubmitVoteHandler(r.Context(), identity, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request, _ entities.Identity) {
	resp, err := s.voting.Handler.ResultsHandler(r.Context(), r.URL.Query().Get("group_by"))
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublicResults(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.PublicResultsHandler(r.Context())
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminCheck(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	resp, err := s.voting.Handler.AdminCheckHandler(r.Context(), identity)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdminListCandidates(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	if _, err := s.voting.Handler.AdminCheckHandler(r.Context(), identity); err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	s.handleListCandidates(w, r)
}

func (s *Server) handleAddCandidate(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	var req votinghttp.AddCandidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.AddCandidateHandler(r.Context(), identity, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDeleteCandidate(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	resp, err := s.voting.Handler.DeleteCandidateHandler(
		r.Context(),
		identity,
		r.PathValue("name"),
		r.URL.Query().Get("position"),
	)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoteCounts(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	resp, err := s.voting.Handler.VoteCountsHandler(r.Context(), identity)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddStudent(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	var req votinghttp.StudentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.AddStudentHandler(r.Context(), identity, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleBulkAddStudents(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	var req votinghttp.BulkStudentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.BulkAddStudentsHandler(r.Context(), identity, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImportStudentsSheet(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBody)
	if err := r.ParseMultipartForm(maxMultipartBody); err != nil {
		writeVotingError(w, http.StatusBadRequest, "invalid_upload", "request must be multipart/form-data with a file field", nil)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeVotingError(w, http.StatusBadRequest, "missing_file", "file field is required", nil)
		return
	}
	defer file.Close()

	resp, err := s.voting.Handler.ImportStudentsSheetHandler(r.Context(), identity, file)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	resp, err := s.voting.Handler.ListStudentsHandler(r.Context(), identity)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemoveStudent(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	resp, err := s.voting.Handler.RemoveStudentHandler(r.Context(), identity, r.PathValue("email"))
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListVoters(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	onlyVoted := false
	if raw := r.URL.Query().Get("voted"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeVotingError(w, http.StatusBadRequest, "invalid_voted", "voted must be a boolean", nil)
			return
		}
		onlyVoted = parsed
	}
	resp, err := s.voting.Handler.ListVotersHandler(r.Context(), identity, onlyVoted)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	var req votinghttp.AdminEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.PromoteHandler(r.Context(), identity, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDemote(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	var req votinghttp.AdminEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.DemoteHandler(r.Context(), identity, req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	resp, err := s.voting.Handler.ResetHandler(r.Context(), identity)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request, identity entities.Identity) {
	resp, err := s.voting.Handler.SyncHandler(r.Context(), identity)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req votinghttp.CredentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.voting.Handler.BootstrapHandler(r.Context(), req)
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBootstrapStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.voting.Handler.BootstrapStatusHandler(r.Context())
	if err != nil {
		s.writeVotingDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(target); err != nil && !errors.Is(err, io.EOF) {
		writeVotingError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON", nil)
		return false
	}
	return true
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
