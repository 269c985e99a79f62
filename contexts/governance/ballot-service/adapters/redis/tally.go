package redisadapter

import (
	"context"
	"fmt"
	"strconv"

	"quorum/contexts/governance/ballot-service/ports"

	"github.com/redis/go-redis/v9"
)

const (
	tallyFieldYes = "yes"
	tallyFieldNo  = "no"
)

// TallyCache keeps live yes/no counters per proposal in a redis hash.
// It backs the projection read path only; the proposal rows stay the
// system of record.
type TallyCache struct {
	client *redis.Client
}

func NewTallyCache(ctx context.Context, url string) (*TallyCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &TallyCache{client: client}, nil
}

func (c *TallyCache) IncrementTally(ctx context.Context, proposalID uint64, inFavor bool, amount uint64) error {
	field := tallyFieldNo
	if inFavor {
		field = tallyFieldYes
	}
	if err := c.client.HIncrBy(ctx, tallyKey(proposalID), field, int64(amount)).Err(); err != nil {
		return fmt.Errorf("increment tally for proposal %d: %w", proposalID, err)
	}
	return nil
}

func (c *TallyCache) GetTally(ctx context.Context, proposalID uint64) (ports.TallySnapshot, bool, error) {
	fields, err := c.client.HGetAll(ctx, tallyKey(proposalID)).Result()
	if err != nil {
		return ports.TallySnapshot{}, false, fmt.Errorf("read tally for proposal %d: %w", proposalID, err)
	}
	if len(fields) == 0 {
		return ports.TallySnapshot{}, false, nil
	}
	snapshot := ports.TallySnapshot{ProposalID: proposalID}
	if raw, ok := fields[tallyFieldYes]; ok {
		if value, err := strconv.ParseUint(raw, 10, 64); err == nil {
			snapshot.VotesForYes = value
		}
	}
	if raw, ok := fields[tallyFieldNo]; ok {
		if value, err := strconv.ParseUint(raw, 10, 64); err == nil {
			snapshot.VotesForNo = value
		}
	}
	return snapshot, true, nil
}

func (c *TallyCache) Close() error {
	return c.client.Close()
}

func tallyKey(proposalID uint64) string {
	return fmt.Sprintf("ballot:%d:tally", proposalID)
}
