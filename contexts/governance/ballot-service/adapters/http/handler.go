package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"quorum/contexts/governance/ballot-service/application/commands"
	"quorum/contexts/governance/ballot-service/application/queries"
	"quorum/contexts/governance/ballot-service/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-service/domain/errors"
	httptransport "quorum/contexts/governance/ballot-service/transport/http"

	"github.com/dustin/go-humanize"
)

type Handler struct {
	Proposals commands.ProposalUseCase
	Ledger    commands.LedgerUseCase
	Votes     commands.VoteUseCase
	Results   queries.ResultsUseCase
	Logger    *slog.Logger
}

func (h Handler) CreateProposalHandler(ctx context.Context, req httptransport.CreateProposalRequest) (httptransport.ProposalResponse, error) {
	if req.DurationMinutes < 0 {
		return httptransport.ProposalResponse{}, domainerrors.ErrInvalidAmount
	}
	proposal, err := h.Proposals.CreateProposal(ctx, commands.CreateProposalCommand{
		Name:            req.Name,
		DurationMinutes: uint64(req.DurationMinutes),
		Chairman:        req.Chairman,
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal, proposal.CreatedAt), nil
}

func (h Handler) ListProposalsHandler(ctx context.Context, now time.Time) (httptransport.ProposalListResponse, error) {
	proposals, err := h.Results.ListProposals(ctx)
	if err != nil {
		return httptransport.ProposalListResponse{}, err
	}
	at := h.resolveNow(now)
	items := make([]httptransport.ProposalResponse, 0, len(proposals))
	for _, proposal := range proposals {
		items = append(items, mapProposal(proposal, at))
	}
	return httptransport.ProposalListResponse{Items: items}, nil
}

func (h Handler) GetProposalHandler(ctx context.Context, proposalID uint64, now time.Time) (httptransport.ProposalResponse, error) {
	proposal, err := h.Results.GetProposal(ctx, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return mapProposal(proposal, h.resolveNow(now)), nil
}

func (h Handler) ProposalResultHandler(ctx context.Context, proposalID uint64, now time.Time) (httptransport.ResultResponse, error) {
	outcome, err := h.Results.Result(ctx, proposalID, now)
	if err != nil {
		return httptransport.ResultResponse{}, err
	}
	proposal, err := h.Results.GetProposal(ctx, proposalID)
	if err != nil {
		return httptransport.ResultResponse{}, err
	}
	return httptransport.ResultResponse{
		ProposalID:  proposal.ID,
		Outcome:     string(outcome),
		VotesForYes: proposal.VotesForYes,
		VotesForNo:  proposal.VotesForNo,
	}, nil
}

func (h Handler) CastVoteHandler(ctx context.Context, proposalID uint64, caller string, req httptransport.CastVoteRequest) (httptransport.CastVoteResponse, error) {
	if req.Amount < 0 {
		return httptransport.CastVoteResponse{}, domainerrors.ErrInvalidAmount
	}
	result, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		ProposalID: proposalID,
		Amount:     uint64(req.Amount),
		InFavor:    req.InFavor,
		Caller:     caller,
	})
	if err != nil {
		return httptransport.CastVoteResponse{}, err
	}
	return httptransport.CastVoteResponse{
		ProposalID:       result.Proposal.ID,
		Caller:           result.Voter.Identity,
		Amount:           uint64(req.Amount),
		InFavor:          req.InFavor,
		RemainingCredits: result.Voter.Credits,
		VotesForYes:      result.Proposal.VotesForYes,
		VotesForNo:       result.Proposal.VotesForNo,
	}, nil
}

func (h Handler) GrantCreditsHandler(ctx context.Context, identity string, req httptransport.GrantCreditsRequest) (httptransport.VoterResponse, error) {
	if req.Amount < 0 {
		return httptransport.VoterResponse{}, domainerrors.ErrInvalidAmount
	}
	voter, err := h.Ledger.GrantCredits(ctx, commands.GrantCreditsCommand{
		Identity: identity,
		Amount:   uint64(req.Amount),
	})
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return httptransport.VoterResponse{
		Identity: voter.Identity,
		Credits:  voter.Credits,
	}, nil
}

func (h Handler) VoterHandler(ctx context.Context, identity string) (httptransport.VoterResponse, error) {
	voter, err := h.Results.VoterBalance(ctx, identity)
	if err != nil {
		return httptransport.VoterResponse{}, err
	}
	return httptransport.VoterResponse{
		Identity: voter.Identity,
		Credits:  voter.Credits,
	}, nil
}

func (h Handler) resolveNow(explicit time.Time) time.Time {
	if !explicit.IsZero() {
		return explicit.UTC()
	}
	if h.Results.Clock != nil {
		return h.Results.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func mapProposal(proposal entities.Proposal, now time.Time) httptransport.ProposalResponse {
	return httptransport.ProposalResponse{
		ProposalID:       proposal.ID,
		Name:             proposal.Name,
		Chairman:         proposal.Chairman,
		Deadline:         proposal.Deadline.UTC().Format(time.RFC3339),
		VotesForYes:      proposal.VotesForYes,
		VotesForNo:       proposal.VotesForNo,
		Open:             proposal.Open(now),
		SecondsRemaining: proposal.SecondsRemaining(now),
		ClosesIn:         humanize.RelTime(now, proposal.Deadline.UTC(), "from now", "ago"),
	}
}
