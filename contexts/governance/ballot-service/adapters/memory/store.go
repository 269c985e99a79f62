package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"quorum/contexts/governance/ballot-service/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-service/domain/errors"
	"quorum/contexts/governance/ballot-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

// storeState holds all records without locking. The exported Store wraps
// it behind a mutex; transactions run against a clone and swap it in on
// success, which gives the all-or-nothing guarantee without undo logs.
type storeState struct {
	proposals []entities.Proposal
	voters    map[string]entities.Voter
	outbox    map[string]outboxRecord
	dedup     map[string]dedupRecord
	tallies   map[uint64]ports.TallySnapshot
}

func newStoreState() storeState {
	return storeState{
		voters:  make(map[string]entities.Voter),
		outbox:  make(map[string]outboxRecord),
		dedup:   make(map[string]dedupRecord),
		tallies: make(map[uint64]ports.TallySnapshot),
	}
}

func (st storeState) clone() storeState {
	next := storeState{
		proposals: append([]entities.Proposal(nil), st.proposals...),
		voters:    make(map[string]entities.Voter, len(st.voters)),
		outbox:    make(map[string]outboxRecord, len(st.outbox)),
		dedup:     make(map[string]dedupRecord, len(st.dedup)),
		tallies:   make(map[uint64]ports.TallySnapshot, len(st.tallies)),
	}
	for key, value := range st.voters {
		next.voters[key] = value
	}
	for key, value := range st.outbox {
		next.outbox[key] = value
	}
	for key, value := range st.dedup {
		next.dedup[key] = value
	}
	for key, value := range st.tallies {
		next.tallies[key] = value
	}
	return next
}

// Store is the in-memory ballot store used for tests and single-process
// runs. It implements every persistence-facing port of the service.
type Store struct {
	mu    sync.RWMutex
	clock ports.Clock
	state storeState
}

func NewStore() *Store {
	return &Store{state: newStoreState()}
}

// NewStoreWithClock pins the store's time source so dedup expiry is
// deterministic in tests.
func NewStoreWithClock(clock ports.Clock) *Store {
	store := NewStore()
	store.clock = clock
	return store
}

// InTransaction serializes writers behind the store mutex. fn runs
// against a cloned state; the clone replaces the live state only when fn
// returns nil, so a failed vote leaves balances and tallies untouched.
func (s *Store) InTransaction(_ context.Context, fn func(tx ports.BallotTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := fn(&txView{state: &next}); err != nil {
		return err
	}
	s.state = next
	return nil
}

func (s *Store) CreateProposal(_ context.Context, proposal entities.Proposal) (entities.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.createProposal(proposal)
}

func (s *Store) GetProposal(_ context.Context, proposalID uint64) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getProposal(proposalID)
}

func (s *Store) SaveProposal(_ context.Context, proposal entities.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.saveProposal(proposal)
}

func (s *Store) ListProposals(_ context.Context) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listProposals()
}

func (s *Store) GetVoter(_ context.Context, identity string) (entities.Voter, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getVoter(identity)
}

func (s *Store) SaveVoter(_ context.Context, voter entities.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.saveVoter(voter)
}

func (s *Store) ListVoters(_ context.Context) ([]entities.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.listVoters()
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.appendOutbox(envelope)
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.state.outbox))
	for _, row := range s.state.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.state.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.state.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.state.dedup[key]
	if ok {
		// A zero expiresAt marks a reservation that never lapses.
		if !existing.expiresAt.IsZero() && s.Now().After(existing.expiresAt.UTC()) {
			delete(s.state.dedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}
	s.state.dedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) IncrementTally(_ context.Context, proposalID uint64, inFavor bool, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.tallies[proposalID]
	snapshot.ProposalID = proposalID
	if inFavor {
		snapshot.VotesForYes += amount
	} else {
		snapshot.VotesForNo += amount
	}
	s.state.tallies[proposalID] = snapshot
	return nil
}

func (s *Store) GetTally(_ context.Context, proposalID uint64) (ports.TallySnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.state.tallies[proposalID]
	return snapshot, ok, nil
}

func (s *Store) Now() time.Time {
	if s.clock != nil {
		return s.clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// txView exposes the lockless state as a ports.BallotTx. The enclosing
// InTransaction call already holds the store mutex.
type txView struct {
	state *storeState
}

func (v *txView) CreateProposal(_ context.Context, proposal entities.Proposal) (entities.Proposal, error) {
	return v.state.createProposal(proposal)
}

func (v *txView) GetProposal(_ context.Context, proposalID uint64) (entities.Proposal, error) {
	return v.state.getProposal(proposalID)
}

func (v *txView) SaveProposal(_ context.Context, proposal entities.Proposal) error {
	return v.state.saveProposal(proposal)
}

func (v *txView) ListProposals(_ context.Context) ([]entities.Proposal, error) {
	return v.state.listProposals()
}

func (v *txView) GetVoter(_ context.Context, identity string) (entities.Voter, bool, error) {
	return v.state.getVoter(identity)
}

func (v *txView) SaveVoter(_ context.Context, voter entities.Voter) error {
	return v.state.saveVoter(voter)
}

func (v *txView) ListVoters(_ context.Context) ([]entities.Voter, error) {
	return v.state.listVoters()
}

func (v *txView) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	return v.state.appendOutbox(envelope)
}

func (st *storeState) createProposal(proposal entities.Proposal) (entities.Proposal, error) {
	proposal.ID = uint64(len(st.proposals))
	st.proposals = append(st.proposals, proposal)
	return proposal, nil
}

func (st *storeState) getProposal(proposalID uint64) (entities.Proposal, error) {
	if proposalID >= uint64(len(st.proposals)) {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return st.proposals[proposalID], nil
}

func (st *storeState) saveProposal(proposal entities.Proposal) error {
	if proposal.ID >= uint64(len(st.proposals)) {
		return domainerrors.ErrProposalNotFound
	}
	st.proposals[proposal.ID] = proposal
	return nil
}

func (st *storeState) listProposals() ([]entities.Proposal, error) {
	return append([]entities.Proposal(nil), st.proposals...), nil
}

func (st *storeState) getVoter(identity string) (entities.Voter, bool, error) {
	voter, ok := st.voters[strings.TrimSpace(identity)]
	return voter, ok, nil
}

func (st *storeState) saveVoter(voter entities.Voter) error {
	st.voters[strings.TrimSpace(voter.Identity)] = voter
	return nil
}

func (st *storeState) listVoters() ([]entities.Voter, error) {
	items := make([]entities.Voter, 0, len(st.voters))
	for _, voter := range st.voters {
		items = append(items, voter)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Identity < items[j].Identity
	})
	return items, nil
}

func (st *storeState) appendOutbox(envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := st.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	st.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}
