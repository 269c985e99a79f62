package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quorum/contexts/governance/ballot-service/application/commands"
	"quorum/contexts/governance/ballot-service/application/workers"
	"quorum/contexts/governance/ballot-service/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-service/domain/errors"
	"quorum/contexts/governance/ballot-service/ports"
)

type movingClock struct {
	now time.Time
}

func (c *movingClock) Now() time.Time { return c.now }

func TestCreateProposalAssignsZeroBasedSequentialIDs(t *testing.T) {
	store := NewStore()
	for i := 0; i < 3; i++ {
		proposal, err := store.CreateProposal(context.Background(), entities.Proposal{Name: "p"})
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		if proposal.ID != uint64(i) {
			t.Fatalf("expected id %d, got %d", i, proposal.ID)
		}
	}
	items, err := store.ListProposals(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 proposals, got %d", len(items))
	}
}

func TestConcurrentCreatesReceiveDistinctIDs(t *testing.T) {
	store := NewStore()
	const creates = 16

	var wg sync.WaitGroup
	ids := make(chan uint64, creates)
	for i := 0; i < creates; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			proposal, err := store.CreateProposal(context.Background(), entities.Proposal{Name: "race"})
			if err != nil {
				t.Errorf("create failed: %v", err)
				return
			}
			ids <- proposal.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool, creates)
	for id := range ids {
		if seen[id] {
			t.Fatalf("id %d assigned twice", id)
		}
		seen[id] = true
	}
	for i := uint64(0); i < creates; i++ {
		if !seen[i] {
			t.Fatalf("id %d never assigned", i)
		}
	}
}

func TestInTransactionRollsBackOnError(t *testing.T) {
	store := NewStore()
	if err := store.SaveVoter(context.Background(), entities.Voter{Identity: "alice", Credits: 100}); err != nil {
		t.Fatalf("seed voter failed: %v", err)
	}

	sentinel := errors.New("abort")
	err := store.InTransaction(context.Background(), func(tx ports.BallotTx) error {
		voter, _, err := tx.GetVoter(context.Background(), "alice")
		if err != nil {
			return err
		}
		voter.Credits = 0
		if err := tx.SaveVoter(context.Background(), voter); err != nil {
			return err
		}
		if _, err := tx.CreateProposal(context.Background(), entities.Proposal{Name: "ghost"}); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	voter, _, err := store.GetVoter(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get voter failed: %v", err)
	}
	if voter.Credits != 100 {
		t.Fatalf("expected rollback to preserve 100 credits, got %d", voter.Credits)
	}
	items, _ := store.ListProposals(context.Background())
	if len(items) != 0 {
		t.Fatalf("expected rollback to discard created proposal, got %d rows", len(items))
	}
}

func TestOutboxPendingAndPublishedFlow(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 6, 10, 0, 0, 0, time.UTC)

	for _, id := range []string{"evt-1", "evt-2"} {
		err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
			EventID:    id,
			EventType:  "vote.cast",
			OccurredAt: now,
		})
		if err != nil {
			t.Fatalf("append %s failed: %v", id, err)
		}
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending rows, got %d", len(pending))
	}

	if err := store.MarkOutboxPublished(context.Background(), pending[0].OutboxID, now); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, err = store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending row after publish, got %d", len(pending))
	}
}

func TestReserveEventDetectsDuplicates(t *testing.T) {
	store := NewStore()
	expires := time.Now().UTC().Add(time.Hour)

	duplicate, err := store.ReserveEvent(context.Background(), "evt-1", "hash-a", expires)
	if err != nil || duplicate {
		t.Fatalf("first reservation should succeed, got duplicate=%v err=%v", duplicate, err)
	}
	duplicate, err = store.ReserveEvent(context.Background(), "evt-1", "hash-a", expires)
	if err != nil || !duplicate {
		t.Fatalf("second reservation should report duplicate, got duplicate=%v err=%v", duplicate, err)
	}
	if _, err := store.ReserveEvent(context.Background(), "evt-1", "hash-b", expires); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected conflict on differing payload hash, got %v", err)
	}
}

func TestReserveEventExpiryFollowsInjectedClock(t *testing.T) {
	start := time.Date(2026, time.March, 6, 10, 0, 0, 0, time.UTC)
	clock := &movingClock{now: start}
	store := NewStoreWithClock(clock)

	duplicate, err := store.ReserveEvent(context.Background(), "evt-1", "hash-a", start.Add(time.Hour))
	if err != nil || duplicate {
		t.Fatalf("first reservation should succeed, got duplicate=%v err=%v", duplicate, err)
	}

	clock.now = start.Add(2 * time.Hour)
	duplicate, err = store.ReserveEvent(context.Background(), "evt-1", "hash-b", clock.now.Add(time.Hour))
	if err != nil || duplicate {
		t.Fatalf("lapsed reservation should be reclaimable, got duplicate=%v err=%v", duplicate, err)
	}
}

func TestReserveEventWithoutExpiryNeverLapses(t *testing.T) {
	start := time.Date(2026, time.March, 6, 10, 0, 0, 0, time.UTC)
	clock := &movingClock{now: start}
	store := NewStoreWithClock(clock)

	if _, err := store.ReserveEvent(context.Background(), "evt-1", "hash-a", time.Time{}); err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}

	clock.now = start.AddDate(10, 0, 0)
	duplicate, err := store.ReserveEvent(context.Background(), "evt-1", "hash-a", time.Time{})
	if err != nil || !duplicate {
		t.Fatalf("reservation without expiry should persist, got duplicate=%v err=%v", duplicate, err)
	}
}

func TestTallyCacheAccumulates(t *testing.T) {
	store := NewStore()
	if err := store.IncrementTally(context.Background(), 4, true, 10); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if err := store.IncrementTally(context.Background(), 4, false, 3); err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	snapshot, found, err := store.GetTally(context.Background(), 4)
	if err != nil || !found {
		t.Fatalf("expected tally snapshot, got found=%v err=%v", found, err)
	}
	if snapshot.VotesForYes != 10 || snapshot.VotesForNo != 3 {
		t.Fatalf("unexpected snapshot: yes=%d no=%d", snapshot.VotesForYes, snapshot.VotesForNo)
	}
}

// The close marker must outlive any dedup horizon: a watcher polling for
// days over the same closed proposal still emits a single close event.
func TestDeadlineWatcherNeverReEmitsCloseOverLongHorizons(t *testing.T) {
	start := time.Date(2026, time.March, 6, 10, 0, 0, 0, time.UTC)
	clock := &movingClock{now: start}
	store := NewStoreWithClock(clock)

	if _, err := store.CreateProposal(context.Background(), entities.Proposal{
		Name:     "settled",
		Deadline: start.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("seed proposal failed: %v", err)
	}

	watcher := workers.DeadlineWatcher{
		Proposals: store,
		Outbox:    store,
		Dedup:     store,
		Clock:     clock,
		IDGen:     store,
	}

	for i := 0; i < 4; i++ {
		if err := watcher.RunOnce(context.Background()); err != nil {
			t.Fatalf("cycle %d failed: %v", i, err)
		}
		clock.now = clock.now.Add(48 * time.Hour)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected exactly one close event across cycles, got %d", len(pending))
	}
	if pending[0].EventType != "proposal.closed" {
		t.Fatalf("expected proposal.closed, got %q", pending[0].EventType)
	}
}

// Two simultaneous votes that each demand the full balance must resolve to
// exactly one success.
func TestConcurrentVotesCannotDoubleSpend(t *testing.T) {
	store := NewStore()
	now := time.Date(2026, time.March, 6, 10, 0, 0, 0, time.UTC)

	if _, err := store.CreateProposal(context.Background(), entities.Proposal{
		Name:     "exclusive",
		Deadline: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("seed proposal failed: %v", err)
	}
	if err := store.SaveVoter(context.Background(), entities.Voter{Identity: "alice", Credits: 100}); err != nil {
		t.Fatalf("seed voter failed: %v", err)
	}

	uc := commands.VoteUseCase{Tx: store, IDGen: store}
	var wg sync.WaitGroup
	outcomes := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.CastVote(context.Background(), commands.CastVoteCommand{
				ProposalID: 0,
				Amount:     100,
				InFavor:    true,
				Caller:     "alice",
				Now:        now,
			})
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	var succeeded, rejected int
	for err := range outcomes {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domainerrors.ErrInsufficientCredits):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected exactly one success and one rejection, got %d/%d", succeeded, rejected)
	}

	voter, _, err := store.GetVoter(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get voter failed: %v", err)
	}
	if voter.Credits != 0 {
		t.Fatalf("expected balance fully spent once, got %d", voter.Credits)
	}
	proposal, err := store.GetProposal(context.Background(), 0)
	if err != nil {
		t.Fatalf("get proposal failed: %v", err)
	}
	if proposal.VotesForYes != 100 {
		t.Fatalf("expected tally of 100, got %d", proposal.VotesForYes)
	}
}
