package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	votingengine "github.com/TADABA21/voting-app/contexts/election/voting-engine"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/domain/entities"
	"github.com/TADABA21/voting-app/contexts/election/voting-engine/ports"
	votinghttp "github.com/TADABA21/voting-app/contexts/election/voting-engine/transport/http"

	"github.com/xuri/excelize/v2"
)

const adminEmail = "admin@school.edu"

type testServer struct {
	*Server
	module votingengine.Module
}

func newTestServer(t *testing.T, students ...string) testServer {
	t.Helper()
	module := votingengine.NewInMemoryModule(adminEmail, nil)
	for _, email := range students {
		id, _ := module.Store.NewID(context.Background())
		if err := module.Store.InsertStudent(context.Background(), entities.Student{
			StudentID: id,
			Email:     email,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("seed student %s: %v", email, err)
		}
	}
	return testServer{Server: New(module, nil, nil, ":0"), module: module}
}

func (s testServer) do(t *testing.T, method string, path string, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func (s testServer) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	creds := votinghttp.CredentialsRequest{Email: email, Password: "password123"}
	if rec := s.do(t, http.MethodPost, "/api/auth/register", "", creds); rec.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d body=%s", email, rec.Code, rec.Body.String())
	}
	rec := s.do(t, http.MethodPost, "/api/auth/login", "", creds)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d body=%s", email, rec.Code, rec.Body.String())
	}
	var resp votinghttp.LoginResponse
	decode(t, rec, &resp)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response: %v body=%s", err, rec.Body.String())
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp votinghttp.ErrorResponse
	decode(t, rec, &resp)
	return resp.Code
}

func TestVotingFlow(t *testing.T) {
	server := newTestServer(t, adminEmail, "alice@school.edu")
	adminToken := server.registerAndLogin(t, adminEmail)
	aliceToken := server.registerAndLogin(t, "alice@school.edu")

	for _, candidate := range []votinghttp.AddCandidateRequest{
		{Name: "Ada", Position: "President"},
		{Name: "Grace", Position: "President"},
		{Name: "Linus"},
	} {
		if rec := server.do(t, http.MethodPost, "/api/admin/candidates", adminToken, candidate); rec.Code != http.StatusCreated {
			t.Fatalf("add candidate: expected 201, got %d body=%s", rec.Code, rec.Body.String())
		}
	}

	rec := server.do(t, http.MethodPost, "/api/vote/submit", aliceToken, votinghttp.SubmitVoteRequest{CandidateName: "ada"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit vote: expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = server.do(t, http.MethodPost, "/api/vote/submit", aliceToken, votinghttp.SubmitVoteRequest{CandidateName: "Grace"})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "already_voted" {
		t.Fatalf("second vote: expected 409 already_voted, got %d body=%s", rec.Code, rec.Body.String())
	}

	rec = server.do(t, http.MethodGet, "/api/vote/check", aliceToken, nil)
	var session votinghttp.SessionResponse
	decode(t, rec, &session)
	if !session.HasVoted || session.IsAdmin {
		t.Fatalf("unexpected session: %+v", session)
	}

	rec = server.do(t, http.MethodGet, "/api/vote/results?group_by=position", aliceToken, nil)
	var results votinghttp.ResultsResponse
	decode(t, rec, &results)
	if results.TotalVotes != 1 || len(results.Positions) != 2 {
		t.Fatalf("unexpected grouped results: %+v", results)
	}
	if results.Positions[0].Position != "General" || results.Positions[1].Position != "President" {
		t.Fatalf("unexpected position order: %+v", results.Positions)
	}
	president := results.Positions[1]
	if president.Candidates[0].Name != "Ada" || president.Candidates[0].Votes != 1 || president.Candidates[1].Votes != 0 {
		t.Fatalf("unexpected president tally: %+v", president)
	}

	rec = server.do(t, http.MethodGet, "/api/results", "", nil)
	decode(t, rec, &results)
	if len(results.Candidates) != 3 || results.Candidates[0].Name != "Ada" {
		t.Fatalf("unexpected public results: %+v", results)
	}
}

func TestAuthenticationFailures(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodGet, "/api/vote/check", "", nil)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "missing_token" {
		t.Fatalf("expected 401 missing_token, got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = server.do(t, http.MethodGet, "/api/vote/check", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "token_invalid" {
		t.Fatalf("expected 401 token_invalid, got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = server.do(t, http.MethodPost, "/api/auth/login", "", votinghttp.CredentialsRequest{Email: "ghost@school.edu", Password: "password123"})
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "voter_not_found" {
		t.Fatalf("expected 404 voter_not_found, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRegisterRejectsIneligibleEmail(t *testing.T) {
	server := newTestServer(t)
	rec := server.do(t, http.MethodPost, "/api/auth/register", "", votinghttp.CredentialsRequest{Email: "bob@school.edu", Password: "password123"})
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "not_eligible" {
		t.Fatalf("expected 403 not_eligible, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	server := newTestServer(t, adminEmail, "alice@school.edu")
	server.registerAndLogin(t, adminEmail)
	aliceToken := server.registerAndLogin(t, "alice@school.edu")

	for _, path := range []string{"/api/admin/check", "/api/admin/students", "/api/admin/voters", "/api/admin/vote-counts"} {
		rec := server.do(t, http.MethodGet, path, aliceToken, nil)
		if rec.Code != http.StatusForbidden || errorCode(t, rec) != "admin_required" {
			t.Fatalf("%s: expected 403 admin_required, got %d body=%s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestUnknownCandidateListsAvailable(t *testing.T) {
	server := newTestServer(t, adminEmail)
	adminToken := server.registerAndLogin(t, adminEmail)
	server.do(t, http.MethodPost, "/api/admin/candidates", adminToken, votinghttp.AddCandidateRequest{Name: "Ada"})

	rec := server.do(t, http.MethodPost, "/api/vote/submit", adminToken, votinghttp.SubmitVoteRequest{CandidateName: "Nobody"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp votinghttp.ErrorResponse
	decode(t, rec, &resp)
	available, _ := resp.Details["available"].([]any)
	if resp.Code != "candidate_not_found" || len(available) != 1 || available[0] != "Ada (General)" {
		t.Fatalf("unexpected error body: %+v", resp)
	}
}

func TestDeleteCandidateWithVotesConflicts(t *testing.T) {
	server := newTestServer(t, adminEmail)
	adminToken := server.registerAndLogin(t, adminEmail)
	server.do(t, http.MethodPost, "/api/admin/candidates", adminToken, votinghttp.AddCandidateRequest{Name: "Ada"})
	server.do(t, http.MethodPost, "/api/vote/submit", adminToken, votinghttp.SubmitVoteRequest{CandidateName: "Ada"})

	rec := server.do(t, http.MethodDelete, "/api/admin/candidates/Ada", adminToken, nil)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "candidate_has_votes" {
		t.Fatalf("expected 409 candidate_has_votes, got %d body=%s", rec.Code, rec.Body.String())
	}

	if rec := server.do(t, http.MethodPost, "/api/admin/reset", adminToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = server.do(t, http.MethodDelete, "/api/admin/candidates/Ada?position=General", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete after reset: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestBulkExcelImport(t *testing.T) {
	server := newTestServer(t, adminEmail)
	adminToken := server.registerAndLogin(t, adminEmail)

	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)
	_ = workbook.SetSheetRow(sheet, "A1", &[]any{"Email", "Student ID", "Name"})
	_ = workbook.SetSheetRow(sheet, "A2", &[]any{"carol@school.edu", "S-2", "Carol"})
	_ = workbook.SetSheetRow(sheet, "A3", &[]any{adminEmail, "S-1", "Admin"})
	_ = workbook.SetSheetRow(sheet, "A4", &[]any{"not-an-email", "S-3", "Broken"})
	file, err := workbook.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "students.xlsx")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(file.Bytes())
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/students/bulk-excel", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp votinghttp.BulkImportResponse
	decode(t, rec, &resp)
	if resp.Added != 1 || resp.Skipped != 1 || len(resp.Errors) != 1 || resp.Errors[0].Row != 4 {
		t.Fatalf("unexpected import result: %+v", resp)
	}
}

func TestBootstrapStatusAndExplicitBootstrap(t *testing.T) {
	module := votingengine.NewInMemoryModule("", nil)
	server := testServer{Server: New(module, nil, nil, ":0"), module: module}
	id, _ := module.Store.NewID(context.Background())
	_ = module.Store.InsertStudent(context.Background(), entities.Student{StudentID: id, Email: "first@school.edu"})

	creds := votinghttp.CredentialsRequest{Email: "first@school.edu", Password: "password123"}
	if rec := server.do(t, http.MethodPost, "/api/auth/register", "", creds); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}

	rec := server.do(t, http.MethodGet, "/api/admin/bootstrap-status", "", nil)
	var status votinghttp.BootstrapStatusResponse
	decode(t, rec, &status)
	if !status.NeedsBootstrap || status.AdminCount != 0 {
		t.Fatalf("unexpected status before bootstrap: %+v", status)
	}

	rec = server.do(t, http.MethodPost, "/api/admin/bootstrap", "", creds)
	var login votinghttp.LoginResponse
	decode(t, rec, &login)
	if rec.Code != http.StatusOK || !login.Voter.IsAdmin || !login.Promoted {
		t.Fatalf("unexpected bootstrap response: %d %+v", rec.Code, login)
	}

	rec = server.do(t, http.MethodPost, "/api/admin/bootstrap", "", creds)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "admin_exists" {
		t.Fatalf("expected 409 admin_exists, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestSyncMirrorsEveryEntity(t *testing.T) {
	server := newTestServer(t, adminEmail, "alice@school.edu")
	adminToken := server.registerAndLogin(t, adminEmail)
	server.registerAndLogin(t, "alice@school.edu")
	server.do(t, http.MethodPost, "/api/admin/candidates", adminToken, votinghttp.AddCandidateRequest{Name: "Ada"})
	server.do(t, http.MethodPost, "/api/vote/submit", adminToken, votinghttp.SubmitVoteRequest{CandidateName: "Ada"})
	inserts := server.module.Remote.Inserts()

	rec := server.do(t, http.MethodPost, "/api/admin/sync", adminToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sync: expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var report votinghttp.SyncResponse
	decode(t, rec, &report)
	if len(report.Entities) != 4 || report.Entities[0].Entity != "voter" || report.Entities[3].Entity != "ballot" {
		t.Fatalf("unexpected sync order: %+v", report.Entities)
	}
	if len(report.Failures) != 0 {
		t.Fatalf("unexpected sync failures: %+v", report.Failures)
	}
	if server.module.Remote.Inserts() != inserts {
		t.Fatalf("sync after inline mirroring must not insert again")
	}
	if got := len(server.module.Remote.Rows(ports.RemoteTableBallots)); got != 1 {
		t.Fatalf("expected 1 mirrored ballot, got %d", got)
	}
}

func TestHealth(t *testing.T) {
	module := votingengine.NewInMemoryModule("", nil)
	healthy := New(module, nil, nil, ":0")
	rec := httptest.NewRecorder()
	healthy.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	down := New(module, func(context.Context) error { return errors.New("down") }, nil, ":0")
	rec = httptest.NewRecorder()
	down.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestCandidateListIsPublic(t *testing.T) {
	server := newTestServer(t, adminEmail)
	adminToken := server.registerAndLogin(t, adminEmail)
	server.do(t, http.MethodPost, "/api/admin/candidates", adminToken, votinghttp.AddCandidateRequest{Name: "Ada"})

	rec := server.do(t, http.MethodGet, "/api/vote/candidates", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 without a token, got %d body=%s", rec.Code, rec.Body.String())
	}
	var list votinghttp.CandidateListResponse
	decode(t, rec, &list)
	if len(list.Items) != 1 || list.Items[0].Name != "Ada" {
		t.Fatalf("unexpected candidates: %+v", list)
	}

	if rec := server.do(t, http.MethodGet, "/api/admin/candidates", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("admin candidate list: expected 401, got %d", rec.Code)
	}
}
