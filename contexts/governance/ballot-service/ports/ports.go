package ports

import (
	"context"
	"encoding/json"
	"time"

	"quorum/contexts/governance/ballot-service/domain/entities"
)

type ProposalRepository interface {
	// CreateProposal assigns the next sequential id (0-based, creation
	// order) and persists the proposal. The stored proposal is returned.
	CreateProposal(ctx context.Context, proposal entities.Proposal) (entities.Proposal, error)
	GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error)
	SaveProposal(ctx context.Context, proposal entities.Proposal) error
	ListProposals(ctx context.Context) ([]entities.Proposal, error)
}

type VoterRepository interface {
	GetVoter(ctx context.Context, identity string) (entities.Voter, bool, error)
	SaveVoter(ctx context.Context, voter entities.Voter) error
	ListVoters(ctx context.Context) ([]entities.Voter, error)
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	OutboxWriter
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// BallotTx is the view of the store visible inside one transaction. Every
// read through it observes, and every write joins, the same atomic unit.
type BallotTx interface {
	ProposalRepository
	VoterRepository
	OutboxWriter
}

// Transactor runs fn as a single linearizable unit against the ballot
// store. The vote path depends on this: the openness check, the credit
// debit and the tally increment must commit or fail together.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(tx BallotTx) error) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

type EventDedupStore interface {
	// ReserveEvent records the event id unless already reserved. The bool
	// result is true when the event was seen before (duplicate).
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type TallySnapshot struct {
	ProposalID  uint64
	VotesForYes uint64
	VotesForNo  uint64
}

// TallyCache is the live projection of vote tallies kept outside the
// system of record for cheap reads. It is eventually consistent with the
// proposal rows and never consulted for correctness decisions.
type TallyCache interface {
	IncrementTally(ctx context.Context, proposalID uint64, inFavor bool, amount uint64) error
	GetTally(ctx context.Context, proposalID uint64) (TallySnapshot, bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
