package commands

import (
	"encoding/json"
	"time"

	"quorum/contexts/governance/ballot-service/ports"
)

// newBallotEnvelope builds canonical envelopes for command-produced events.
// Partition key is the proposal id for vote/proposal events and the voter
// identity for ledger events, so per-entity ordering survives the broker.
func newBallotEnvelope(
	eventID string,
	eventType string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "ballot-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "data.partition_key",
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}
