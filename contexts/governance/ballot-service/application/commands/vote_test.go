package commands

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"quorum/contexts/governance/ballot-service/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-service/domain/errors"
	"quorum/contexts/governance/ballot-service/ports"
)

type stubStore struct {
	proposals []entities.Proposal
	voters    map[string]entities.Voter
	outbox    []ports.EventEnvelope
}

func newStubStore() *stubStore {
	return &stubStore{voters: make(map[string]entities.Voter)}
}

func (s *stubStore) InTransaction(_ context.Context, fn func(tx ports.BallotTx) error) error {
	return fn(s)
}

func (s *stubStore) CreateProposal(_ context.Context, proposal entities.Proposal) (entities.Proposal, error) {
	proposal.ID = uint64(len(s.proposals))
	s.proposals = append(s.proposals, proposal)
	return proposal, nil
}

func (s *stubStore) GetProposal(_ context.Context, proposalID uint64) (entities.Proposal, error) {
	if proposalID >= uint64(len(s.proposals)) {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return s.proposals[proposalID], nil
}

func (s *stubStore) SaveProposal(_ context.Context, proposal entities.Proposal) error {
	if proposal.ID >= uint64(len(s.proposals)) {
		return domainerrors.ErrProposalNotFound
	}
	s.proposals[proposal.ID] = proposal
	return nil
}

func (s *stubStore) ListProposals(_ context.Context) ([]entities.Proposal, error) {
	return append([]entities.Proposal(nil), s.proposals...), nil
}

func (s *stubStore) GetVoter(_ context.Context, identity string) (entities.Voter, bool, error) {
	voter, ok := s.voters[identity]
	return voter, ok, nil
}

func (s *stubStore) SaveVoter(_ context.Context, voter entities.Voter) error {
	s.voters[voter.Identity] = voter
	return nil
}

func (s *stubStore) ListVoters(_ context.Context) ([]entities.Voter, error) {
	items := make([]entities.Voter, 0, len(s.voters))
	for _, voter := range s.voters {
		items = append(items, voter)
	}
	return items, nil
}

func (s *stubStore) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.outbox = append(s.outbox, envelope)
	return nil
}

type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID(_ context.Context) (string, error) {
	g.n++
	return fmt.Sprintf("event-%d", g.n), nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func TestCastVoteDebitsCreditsAndIncrementsTally(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.proposals = []entities.Proposal{{ID: 0, Name: "budget", Deadline: now.Add(time.Hour)}}
	store.voters["alice"] = entities.Voter{Identity: "alice", Credits: 100}

	uc := VoteUseCase{Tx: store, Clock: fixedClock{now: now}, IDGen: &seqIDGen{}}
	result, err := uc.CastVote(context.Background(), CastVoteCommand{
		ProposalID: 0,
		Amount:     40,
		InFavor:    true,
		Caller:     "alice",
	})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if result.Voter.Credits != 60 {
		t.Fatalf("expected 60 remaining credits, got %d", result.Voter.Credits)
	}
	if result.Proposal.VotesForYes != 40 || result.Proposal.VotesForNo != 0 {
		t.Fatalf("unexpected tallies: yes=%d no=%d", result.Proposal.VotesForYes, result.Proposal.VotesForNo)
	}
	if len(store.outbox) != 1 || store.outbox[0].EventType != "vote.cast" {
		t.Fatalf("expected one vote.cast outbox row, got %d", len(store.outbox))
	}
}

func TestCastVoteAgainstAccumulatesNoTally(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.proposals = []entities.Proposal{{ID: 0, Deadline: now.Add(time.Hour)}}
	store.voters["bob"] = entities.Voter{Identity: "bob", Credits: 30}

	uc := VoteUseCase{Tx: store, Clock: fixedClock{now: now}, IDGen: &seqIDGen{}}
	for i := 0; i < 2; i++ {
		if _, err := uc.CastVote(context.Background(), CastVoteCommand{
			ProposalID: 0,
			Amount:     10,
			InFavor:    false,
			Caller:     "bob",
		}); err != nil {
			t.Fatalf("vote %d failed: %v", i, err)
		}
	}
	if store.proposals[0].VotesForNo != 20 {
		t.Fatalf("expected accumulated no-tally of 20, got %d", store.proposals[0].VotesForNo)
	}
	if store.voters["bob"].Credits != 10 {
		t.Fatalf("expected 10 remaining credits, got %d", store.voters["bob"].Credits)
	}
}

func TestCastVoteRejectsClosedProposal(t *testing.T) {
	deadline := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.proposals = []entities.Proposal{{ID: 0, Deadline: deadline}}
	store.voters["alice"] = entities.Voter{Identity: "alice", Credits: 100}

	uc := VoteUseCase{Tx: store, IDGen: &seqIDGen{}}
	// Exact deadline instant counts as closed.
	_, err := uc.CastVote(context.Background(), CastVoteCommand{
		ProposalID: 0,
		Amount:     5,
		InFavor:    true,
		Caller:     "alice",
		Now:        deadline,
	})
	if !errors.Is(err, domainerrors.ErrProposalClosed) {
		t.Fatalf("expected ErrProposalClosed at deadline, got %v", err)
	}
	if store.voters["alice"].Credits != 100 {
		t.Fatalf("expected credits untouched by rejected vote, got %d", store.voters["alice"].Credits)
	}
	if len(store.outbox) != 0 {
		t.Fatalf("expected no outbox rows after rejection, got %d", len(store.outbox))
	}
}

func TestCastVoteRejectsUnknownVoter(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.proposals = []entities.Proposal{{ID: 0, Deadline: now.Add(time.Hour)}}

	uc := VoteUseCase{Tx: store, Clock: fixedClock{now: now}, IDGen: &seqIDGen{}}
	_, err := uc.CastVote(context.Background(), CastVoteCommand{
		ProposalID: 0,
		Amount:     1,
		Caller:     "ghost",
	})
	if !errors.Is(err, domainerrors.ErrVoterNotFound) {
		t.Fatalf("expected ErrVoterNotFound, got %v", err)
	}
}

func TestCastVoteRejectsInsufficientCredits(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.proposals = []entities.Proposal{{ID: 0, Deadline: now.Add(time.Hour)}}
	store.voters["carol"] = entities.Voter{Identity: "carol", Credits: 3}

	uc := VoteUseCase{Tx: store, Clock: fixedClock{now: now}, IDGen: &seqIDGen{}}
	_, err := uc.CastVote(context.Background(), CastVoteCommand{
		ProposalID: 0,
		Amount:     4,
		InFavor:    true,
		Caller:     "carol",
	})
	if !errors.Is(err, domainerrors.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if store.proposals[0].VotesForYes != 0 {
		t.Fatalf("expected tally untouched, got %d", store.proposals[0].VotesForYes)
	}
}

func TestCastVoteSpendsExactBalance(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	store := newStubStore()
	store.proposals = []entities.Proposal{{ID: 0, Deadline: now.Add(time.Hour)}}
	store.voters["dave"] = entities.Voter{Identity: "dave", Credits: 25}

	uc := VoteUseCase{Tx: store, Clock: fixedClock{now: now}, IDGen: &seqIDGen{}}
	result, err := uc.CastVote(context.Background(), CastVoteCommand{
		ProposalID: 0,
		Amount:     25,
		InFavor:    true,
		Caller:     "dave",
	})
	if err != nil {
		t.Fatalf("expected exact-balance vote to succeed, got %v", err)
	}
	if result.Voter.Credits != 0 {
		t.Fatalf("expected zero remaining credits, got %d", result.Voter.Credits)
	}
}

func TestCastVoteRejectsUnknownProposal(t *testing.T) {
	store := newStubStore()
	store.voters["alice"] = entities.Voter{Identity: "alice", Credits: 10}

	uc := VoteUseCase{Tx: store, IDGen: &seqIDGen{}}
	_, err := uc.CastVote(context.Background(), CastVoteCommand{
		ProposalID: 9,
		Amount:     1,
		Caller:     "alice",
		Now:        time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, domainerrors.ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
}
