package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Amount-bearing requests use signed integers so negative inputs reach
// validation instead of wrapping at decode time.
type CreateProposalRequest struct {
	Name            string `json:"name"`
	DurationMinutes int64  `json:"duration_minutes"`
	Chairman        string `json:"chairman"`
}

type ProposalResponse struct {
	ProposalID       uint64 `json:"proposal_id"`
	Name             string `json:"name"`
	Chairman         string `json:"chairman"`
	Deadline         string `json:"deadline"`
	VotesForYes      uint64 `json:"votes_for_yes"`
	VotesForNo       uint64 `json:"votes_for_no"`
	Open             bool   `json:"open"`
	SecondsRemaining int64  `json:"seconds_remaining"`
	ClosesIn         string `json:"closes_in"`
}

type ProposalListResponse struct {
	Items []ProposalResponse `json:"items"`
}

type CastVoteRequest struct {
	Amount  int64 `json:"amount"`
	InFavor bool  `json:"in_favor"`
}

type CastVoteResponse struct {
	ProposalID       uint64 `json:"proposal_id"`
	Caller           string `json:"caller"`
	Amount           uint64 `json:"amount"`
	InFavor          bool   `json:"in_favor"`
	RemainingCredits uint64 `json:"remaining_credits"`
	VotesForYes      uint64 `json:"votes_for_yes"`
	VotesForNo       uint64 `json:"votes_for_no"`
}

type GrantCreditsRequest struct {
	Amount int64 `json:"amount"`
}

type VoterResponse struct {
	Identity string `json:"identity"`
	Credits  uint64 `json:"credits"`
}

type ResultResponse struct {
	ProposalID  uint64 `json:"proposal_id"`
	Outcome     string `json:"outcome"`
	VotesForYes uint64 `json:"votes_for_yes"`
	VotesForNo  uint64 `json:"votes_for_no"`
}
