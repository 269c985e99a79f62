package queries

import (
	"context"
	"strings"
	"time"

	"quorum/contexts/governance/ballot-service/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-service/domain/errors"
	"quorum/contexts/governance/ballot-service/ports"
)

// ResultsUseCase serves the read surface: proposal detail and listing,
// time-remaining, openness, final results and voter balances. All reads
// take an explicit now (zero falls back to the Clock) so callers can
// inspect state at a deterministic instant.
type ResultsUseCase struct {
	Proposals ports.ProposalRepository
	Voters    ports.VoterRepository
	Clock     ports.Clock
}

func (uc ResultsUseCase) GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	return uc.Proposals.GetProposal(ctx, proposalID)
}

func (uc ResultsUseCase) ListProposals(ctx context.Context) ([]entities.Proposal, error) {
	return uc.Proposals.ListProposals(ctx)
}

// SecondsRemaining is signed: negative values report seconds past close.
func (uc ResultsUseCase) SecondsRemaining(ctx context.Context, proposalID uint64, now time.Time) (int64, error) {
	proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return 0, err
	}
	return proposal.SecondsRemaining(uc.resolveNow(now)), nil
}

func (uc ResultsUseCase) IsOpen(ctx context.Context, proposalID uint64, now time.Time) (bool, error) {
	proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return false, err
	}
	return proposal.Open(uc.resolveNow(now)), nil
}

// Result reports the final outcome of a closed proposal and refuses to
// pronounce on one that is still open.
func (uc ResultsUseCase) Result(ctx context.Context, proposalID uint64, now time.Time) (entities.Outcome, error) {
	proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
	if err != nil {
		return "", err
	}
	if proposal.Open(uc.resolveNow(now)) {
		return "", domainerrors.ErrProposalStillOpen
	}
	return proposal.Outcome(), nil
}

func (uc ResultsUseCase) VoterBalance(ctx context.Context, identity string) (entities.Voter, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return entities.Voter{}, domainerrors.ErrInvalidIdentity
	}
	voter, found, err := uc.Voters.GetVoter(ctx, identity)
	if err != nil {
		return entities.Voter{}, err
	}
	if !found {
		return entities.Voter{}, domainerrors.ErrVoterNotFound
	}
	return voter, nil
}

func (uc ResultsUseCase) resolveNow(explicit time.Time) time.Time {
	if !explicit.IsZero() {
		return explicit.UTC()
	}
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
