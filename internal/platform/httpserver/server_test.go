package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ballotservice "quorum/contexts/governance/ballot-service"
	ballothttp "quorum/contexts/governance/ballot-service/transport/http"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := New(ballotservice.NewInMemoryModule(nil), nil, nil, "")
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method string, url string, headers map[string]string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func TestCreateListAndGetProposal(t *testing.T) {
	ts := newTestServer(t)

	var created ballothttp.ProposalResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/v1/proposals", nil, ballothttp.CreateProposalRequest{
		Name:            "upgrade runtime",
		DurationMinutes: 60,
		Chairman:        "chair",
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	if created.ProposalID != 0 {
		t.Fatalf("expected first proposal id 0, got %d", created.ProposalID)
	}
	if !created.Open {
		t.Fatal("expected fresh proposal to be open")
	}

	var second ballothttp.ProposalResponse
	doJSON(t, http.MethodPost, ts.URL+"/v1/proposals", nil, ballothttp.CreateProposalRequest{
		Name:            "second",
		DurationMinutes: 30,
		Chairman:        "chair",
	}, &second)
	if second.ProposalID != 1 {
		t.Fatalf("expected sequential id 1, got %d", second.ProposalID)
	}

	var list ballothttp.ProposalListResponse
	if status := doJSON(t, http.MethodGet, ts.URL+"/v1/proposals", nil, nil, &list); status != http.StatusOK {
		t.Fatalf("expected 200 on list, got %d", status)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(list.Items))
	}

	var fetched ballothttp.ProposalResponse
	if status := doJSON(t, http.MethodGet, ts.URL+"/v1/proposals/0", nil, nil, &fetched); status != http.StatusOK {
		t.Fatalf("expected 200 on get, got %d", status)
	}
	if fetched.Name != "upgrade runtime" {
		t.Fatalf("unexpected proposal name %q", fetched.Name)
	}

	var errResp ballothttp.ErrorResponse
	if status := doJSON(t, http.MethodGet, ts.URL+"/v1/proposals/99", nil, nil, &errResp); status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown proposal, got %d", status)
	}
	if errResp.Code != "proposal_not_found" {
		t.Fatalf("unexpected error code %q", errResp.Code)
	}
}

func TestVoteFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	doJSON(t, http.MethodPost, ts.URL+"/v1/proposals", nil, ballothttp.CreateProposalRequest{
		Name:            "adopt proposal",
		DurationMinutes: 60,
		Chairman:        "chair",
	}, nil)

	var voter ballothttp.VoterResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/v1/voters/alice/credits", nil, ballothttp.GrantCreditsRequest{Amount: 100}, &voter)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on grant, got %d", status)
	}
	if voter.Credits != 100 {
		t.Fatalf("expected 100 credits, got %d", voter.Credits)
	}

	var vote ballothttp.CastVoteResponse
	status = doJSON(t, http.MethodPost, ts.URL+"/v1/proposals/0/votes",
		map[string]string{"X-Voter-Id": "alice"},
		ballothttp.CastVoteRequest{Amount: 60, InFavor: true}, &vote)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on vote, got %d", status)
	}
	if vote.RemainingCredits != 40 || vote.VotesForYes != 60 {
		t.Fatalf("unexpected vote response: %+v", vote)
	}

	// Overspending the remaining balance is rejected atomically.
	var errResp ballothttp.ErrorResponse
	status = doJSON(t, http.MethodPost, ts.URL+"/v1/proposals/0/votes",
		map[string]string{"X-Voter-Id": "alice"},
		ballothttp.CastVoteRequest{Amount: 41, InFavor: false}, &errResp)
	if status != http.StatusConflict || errResp.Code != "insufficient_credits" {
		t.Fatalf("expected 409 insufficient_credits, got %d %q", status, errResp.Code)
	}

	var balance ballothttp.VoterResponse
	doJSON(t, http.MethodGet, ts.URL+"/v1/voters/alice", nil, nil, &balance)
	if balance.Credits != 40 {
		t.Fatalf("expected balance preserved at 40, got %d", balance.Credits)
	}
}

func TestVoteRequiresVoterHeader(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/v1/proposals", nil, ballothttp.CreateProposalRequest{
		Name:            "p",
		DurationMinutes: 10,
		Chairman:        "chair",
	}, nil)

	var errResp ballothttp.ErrorResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/v1/proposals/0/votes", nil,
		ballothttp.CastVoteRequest{Amount: 1, InFavor: true}, &errResp)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-Voter-Id, got %d", status)
	}
}

func TestVoteRejectsNegativeAmount(t *testing.T) {
	ts := newTestServer(t)
	doJSON(t, http.MethodPost, ts.URL+"/v1/proposals", nil, ballothttp.CreateProposalRequest{
		Name:            "p",
		DurationMinutes: 10,
		Chairman:        "chair",
	}, nil)

	var errResp ballothttp.ErrorResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/v1/proposals/0/votes",
		map[string]string{"X-Voter-Id": "alice"},
		ballothttp.CastVoteRequest{Amount: -5, InFavor: true}, &errResp)
	if status != http.StatusBadRequest || errResp.Code != "invalid_amount" {
		t.Fatalf("expected 400 invalid_amount, got %d %q", status, errResp.Code)
	}
}

func TestResultEndpointHonorsAtOverride(t *testing.T) {
	ts := newTestServer(t)

	doJSON(t, http.MethodPost, ts.URL+"/v1/proposals", nil, ballothttp.CreateProposalRequest{
		Name:            "timed",
		DurationMinutes: 5,
		Chairman:        "chair",
	}, nil)
	doJSON(t, http.MethodPost, ts.URL+"/v1/voters/bob/credits", nil, ballothttp.GrantCreditsRequest{Amount: 10}, nil)
	doJSON(t, http.MethodPost, ts.URL+"/v1/proposals/0/votes",
		map[string]string{"X-Voter-Id": "bob"},
		ballothttp.CastVoteRequest{Amount: 10, InFavor: false}, nil)

	var errResp ballothttp.ErrorResponse
	status := doJSON(t, http.MethodGet, ts.URL+"/v1/proposals/0/result", nil, nil, &errResp)
	if status != http.StatusConflict || errResp.Code != "proposal_still_open" {
		t.Fatalf("expected 409 proposal_still_open, got %d %q", status, errResp.Code)
	}

	after := time.Now().UTC().Add(10 * time.Minute).Format(time.RFC3339)
	var result ballothttp.ResultResponse
	status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/proposals/0/result?at=%s", ts.URL, after), nil, nil, &result)
	if status != http.StatusOK {
		t.Fatalf("expected 200 with at override, got %d", status)
	}
	if result.Outcome != "no_wins" || result.VotesForNo != 10 {
		t.Fatalf("unexpected result: %+v", result)
	}

	status = doJSON(t, http.MethodGet, ts.URL+"/v1/proposals/0/result?at=not-a-time", nil, nil, &errResp)
	if status != http.StatusBadRequest || errResp.Code != "invalid_at" {
		t.Fatalf("expected 400 invalid_at, got %d %q", status, errResp.Code)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]string
	if status := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil, nil, &body); status != http.StatusOK {
		t.Fatalf("expected 200 from healthz, got %d", status)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected healthz body: %v", body)
	}
}

func TestCreateProposalValidation(t *testing.T) {
	ts := newTestServer(t)

	var errResp ballothttp.ErrorResponse
	status := doJSON(t, http.MethodPost, ts.URL+"/v1/proposals", nil, ballothttp.CreateProposalRequest{
		Name:            "no chair",
		DurationMinutes: 10,
	}, &errResp)
	if status != http.StatusBadRequest || errResp.Code != "invalid_proposal_input" {
		t.Fatalf("expected 400 invalid_proposal_input, got %d %q", status, errResp.Code)
	}

	status = doJSON(t, http.MethodPost, ts.URL+"/v1/proposals", nil, ballothttp.CreateProposalRequest{
		Name:            "negative",
		DurationMinutes: -1,
		Chairman:        "chair",
	}, &errResp)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative duration, got %d", status)
	}
}
