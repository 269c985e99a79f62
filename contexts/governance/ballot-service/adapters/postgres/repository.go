package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"quorum/contexts/governance/ballot-service/domain/entities"
	domainerrors "quorum/contexts/governance/ballot-service/domain/errors"
	"quorum/contexts/governance/ballot-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

// proposalIDLockKey is the advisory lock class serializing sequential
// proposal id assignment across concurrent create transactions.
const proposalIDLockKey = int64(7_441_001)

// Repository is the postgres system of record for the ballot service.
// Inside InTransaction the same type runs against the transaction handle
// with FOR UPDATE row locks, which is what makes the vote sequence a
// single linearizable unit under concurrent callers.
type Repository struct {
	db      *gorm.DB
	clock   ports.Clock
	logger  *slog.Logger
	locking bool
}

func NewRepository(db *gorm.DB, clock ports.Clock, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		clock:  clock,
		logger: logger,
	}
}

// Migrate creates or updates the ballot tables. Called once at boot.
func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(
		&proposalModel{},
		&voterModel{},
		&outboxModel{},
		&dedupModel{},
	)
}

func (r *Repository) InTransaction(ctx context.Context, fn func(tx ports.BallotTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, clock: r.clock, logger: r.logger, locking: true})
	})
}

func (r *Repository) CreateProposal(ctx context.Context, proposal entities.Proposal) (entities.Proposal, error) {
	// The MAX(id)+1 scan runs under read committed; without the advisory
	// lock two concurrent creates compute the same id and one insert dies
	// on the primary key. The lock is released at transaction end.
	if err := r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(?)", proposalIDLockKey).Error; err != nil {
		return entities.Proposal{}, r.logError("ballot_repo_proposal_id_lock_failed", err)
	}

	var next int64
	if err := r.db.WithContext(ctx).
		Model(&proposalModel{}).
		Select("COALESCE(MAX(id) + 1, 0)").
		Scan(&next).Error; err != nil {
		return entities.Proposal{}, r.logError("ballot_repo_next_proposal_id_failed", err)
	}
	proposal.ID = uint64(next)

	row := proposalModelFromEntity(proposal)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return entities.Proposal{}, domainerrors.ErrConflict
		}
		return entities.Proposal{}, r.logError("ballot_repo_create_proposal_failed", err,
			"proposal_id", proposal.ID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	var row proposalModel
	tx := r.db.WithContext(ctx).Where("id = ?", proposalID)
	if r.locking {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := tx.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, r.logError("ballot_repo_get_proposal_failed", err,
			"proposal_id", proposalID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveProposal(ctx context.Context, proposal entities.Proposal) error {
	row := proposalModelFromEntity(proposal)
	result := r.db.WithContext(ctx).
		Model(&proposalModel{}).
		Where("id = ?", proposal.ID).
		Updates(map[string]any{
			"votes_for_yes": row.VotesForYes,
			"votes_for_no":  row.VotesForNo,
			"updated_at":    row.UpdatedAt,
		})
	if result.Error != nil {
		return r.logError("ballot_repo_save_proposal_failed", result.Error,
			"proposal_id", proposal.ID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrProposalNotFound
	}
	return nil
}

func (r *Repository) ListProposals(ctx context.Context) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_proposals_failed", err)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetVoter(ctx context.Context, identity string) (entities.Voter, bool, error) {
	var row voterModel
	tx := r.db.WithContext(ctx).Where("identity = ?", strings.TrimSpace(identity))
	if r.locking {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := tx.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Voter{}, false, nil
		}
		return entities.Voter{}, false, r.logError("ballot_repo_get_voter_failed", err,
			"identity", strings.TrimSpace(identity),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveVoter(ctx context.Context, voter entities.Voter) error {
	row := voterModelFromEntity(voter)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "identity"}},
		DoUpdates: clause.Assignments(map[string]any{
			"credits":    row.Credits,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return r.logError("ballot_repo_save_voter_failed", err,
			"identity", row.Identity,
		)
	}
	return nil
}

func (r *Repository) ListVoters(ctx context.Context) ([]entities.Voter, error) {
	var rows []voterModel
	if err := r.db.WithContext(ctx).Order("identity ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_voters_failed", err)
	}
	items := make([]entities.Voter, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	row := outboxModel{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    createdAt,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("ballot_repo_append_outbox_failed", err,
			"outbox_id", outboxID,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("ballot_repo_list_outbox_failed", err)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      row.Payload,
			CreatedAt:    row.CreatedAt,
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("ballot_repo_mark_outbox_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	row := dedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
	}
	err := r.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return false, nil
	}
	if !isUniqueViolation(err) {
		return false, r.logError("ballot_repo_reserve_event_failed", err,
			"event_id", row.EventID,
		)
	}

	var existing dedupModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("ballot_repo_reserve_event_lookup_failed", err,
			"event_id", row.EventID,
		)
	}
	// A zero expires_at marks a reservation that never lapses.
	if !existing.ExpiresAt.IsZero() && r.now().After(existing.ExpiresAt.UTC()) {
		update := r.db.WithContext(ctx).
			Model(&dedupModel{}).
			Where("event_id = ?", row.EventID).
			Updates(map[string]any{
				"payload_hash": row.PayloadHash,
				"expires_at":   row.ExpiresAt,
			})
		if update.Error != nil {
			return false, r.logError("ballot_repo_reserve_event_refresh_failed", update.Error,
				"event_id", row.EventID,
			)
		}
		return false, nil
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) now() time.Time {
	if r.clock != nil {
		return r.clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Repository) logError(event string, err error, args ...any) error {
	fields := append([]any{
		"event", event,
		"module", "governance/ballot-service",
		"layer", "adapter",
		"error", err.Error(),
	}, args...)
	r.logger.Error("ballot repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// SystemClock sources now from the host clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDGenerator issues random event/outbox ids.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

type proposalModel struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement:false"`
	Name        string    `gorm:"column:name"`
	Chairman    string    `gorm:"column:chairman"`
	Deadline    time.Time `gorm:"column:deadline"`
	VotesForYes uint64    `gorm:"column:votes_for_yes"`
	VotesForNo  uint64    `gorm:"column:votes_for_no"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (proposalModel) TableName() string { return "ballot_proposals" }

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	return proposalModel{
		ID:          proposal.ID,
		Name:        proposal.Name,
		Chairman:    proposal.Chairman,
		Deadline:    proposal.Deadline.UTC(),
		VotesForYes: proposal.VotesForYes,
		VotesForNo:  proposal.VotesForNo,
		CreatedAt:   proposal.CreatedAt.UTC(),
		UpdatedAt:   proposal.UpdatedAt.UTC(),
	}
}

func (m proposalModel) toEntity() entities.Proposal {
	return entities.Proposal{
		ID:          m.ID,
		Name:        m.Name,
		Chairman:    m.Chairman,
		Deadline:    m.Deadline.UTC(),
		VotesForYes: m.VotesForYes,
		VotesForNo:  m.VotesForNo,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

type voterModel struct {
	Identity  string    `gorm:"column:identity;primaryKey"`
	Credits   uint64    `gorm:"column:credits"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (voterModel) TableName() string { return "ballot_voters" }

func voterModelFromEntity(voter entities.Voter) voterModel {
	return voterModel{
		Identity:  strings.TrimSpace(voter.Identity),
		Credits:   voter.Credits,
		CreatedAt: voter.CreatedAt.UTC(),
		UpdatedAt: voter.UpdatedAt.UTC(),
	}
}

func (m voterModel) toEntity() entities.Voter {
	return entities.Voter{
		Identity:  m.Identity,
		Credits:   m.Credits,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	RetryCount   int        `gorm:"column:retry_count"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "ballot_outbox" }

type dedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (dedupModel) TableName() string { return "ballot_event_dedup" }
