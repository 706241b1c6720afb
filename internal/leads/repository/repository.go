package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// deliveryClaimTTL bounds how long a delivery claim blocks other writers.
// A crashed worker's claim expires after this and the send can be retried.
const deliveryClaimTTL = 2 * time.Minute

// Repository is the pgx-backed implementation of LeadsRepository.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ LeadsRepository = (*Repository)(nil)

const leadColumns = `
	id, name, email, company, message, phone,
	phase, received_at, sent_at, sent_by,
	bot_research, draft_body, draft_created_at, draft_edited_at,
	support_feedback, reroute, meeting_booked_at, last_error, metadata,
	created_at, updated_at`

func (r *Repository) Create(ctx context.Context, lead *domain.Lead) error {
	metadata, err := json.Marshal(lead.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO leads (id, name, email, company, message, phone, phase, received_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		lead.ID, lead.Submission.Name, lead.Submission.Email, lead.Submission.Company,
		lead.Submission.Message, lead.Submission.Phone,
		lead.Status.Phase, lead.Status.ReceivedAt, metadata,
	)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+leadColumns+` FROM leads WHERE id = $1`, id)

	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, err
	}

	lead.Classifications, err = r.loadClassifications(ctx, id)
	if err != nil {
		return nil, err
	}

	lead.MatchedCaseStudies, err = r.loadCaseStudies(ctx, id)
	if err != nil {
		return nil, err
	}

	return lead, nil
}

func (r *Repository) List(ctx context.Context, params ListParams) (ListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}

	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if params.Phase != nil {
		where = append(where, fmt.Sprintf("phase = $%d", argN))
		args = append(args, *params.Phase)
		argN++
	}
	if params.Search != "" {
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR company ILIKE $%d)", argN, argN, argN))
		args = append(args, "%"+params.Search+"%")
		argN++
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM leads WHERE `+whereClause, args...).Scan(&total); err != nil {
		return ListResult{}, err
	}

	offset := (params.Page - 1) * params.PageSize
	args = append(args, params.PageSize, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM leads WHERE %s ORDER BY received_at DESC LIMIT $%d OFFSET $%d`,
		leadColumns, whereClause, argN, argN+1,
	), args...)
	if err != nil {
		return ListResult{}, err
	}
	defer rows.Close()

	items := make([]domain.Lead, 0, params.PageSize)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return ListResult{}, err
		}
		items = append(items, *lead)
	}
	if rows.Err() != nil {
		return ListResult{}, rows.Err()
	}

	for i := range items {
		items[i].Classifications, err = r.loadClassifications(ctx, items[i].ID)
		if err != nil {
			return ListResult{}, err
		}
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	return ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// AppendClassification guards the append with the caller's view of the
// history length. The UPDATE on classification_count serializes concurrent
// appends on the same lead: the loser matches zero rows and gets a
// conflict instead of silently stacking a second entry.
func (r *Repository) AppendClassification(ctx context.Context, leadID uuid.UUID, expectedLen int, entry domain.ClassificationEntry, phase domain.Phase) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE leads
		SET classification_count = classification_count + 1, phase = $3, updated_at = now()
		WHERE id = $1 AND classification_count = $2
	`, leadID, expectedLen, phase)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.classifyMissOutcome(ctx, leadID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_classifications (lead_id, seq, author, classification, needs_review, applied_threshold, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, leadID, expectedLen+1, entry.Author, entry.Classification, entry.NeedsReview, entry.AppliedThreshold, entry.Timestamp)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// classifyMissOutcome decides why a guarded append matched zero rows.
func (r *Repository) classifyMissOutcome(ctx context.Context, leadID uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("lead not found")
	}
	return apperr.Conflict("lead was modified concurrently")
}

func (r *Repository) SetBotResearch(ctx context.Context, leadID uuid.UUID, research domain.BotResearch) error {
	payload, err := json.Marshal(research)
	if err != nil {
		return fmt.Errorf("marshal bot research: %w", err)
	}
	return r.execOnLead(ctx, leadID, `
		UPDATE leads SET bot_research = $2, updated_at = now() WHERE id = $1
	`, payload)
}

func (r *Repository) PutDraft(ctx context.Context, leadID uuid.UUID, draft domain.Draft) error {
	return r.execOnLead(ctx, leadID, `
		UPDATE leads
		SET draft_body = $2, draft_created_at = $3, draft_edited_at = NULL, updated_at = now()
		WHERE id = $1
	`, draft.Body, draft.CreatedAt)
}

func (r *Repository) UpdateDraftBody(ctx context.Context, leadID uuid.UUID, body string, editedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET draft_body = $2, draft_edited_at = $3, updated_at = now()
		WHERE id = $1 AND draft_body IS NOT NULL
	`, leadID, body, editedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("lead not found")
		}
		return apperr.Validation("lead has no draft to edit")
	}
	return nil
}

func (r *Repository) ClaimDelivery(ctx context.Context, leadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET delivery_claimed_at = now(), updated_at = now()
		WHERE id = $1
		  AND phase <> 'done'
		  AND (delivery_claimed_at IS NULL OR delivery_claimed_at < now() - $2::interval)
	`, leadID, deliveryClaimTTL.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var phase domain.Phase
		err := r.pool.QueryRow(ctx, `SELECT phase FROM leads WHERE id = $1`, leadID).Scan(&phase)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("lead not found")
		}
		if err != nil {
			return err
		}
		if phase == domain.PhaseDone {
			return apperr.Validation("lead is already closed")
		}
		return apperr.Conflict("a delivery for this lead is already in progress")
	}
	return nil
}

func (r *Repository) ReleaseDelivery(ctx context.Context, leadID uuid.UUID, errMsg string) error {
	return r.execOnLead(ctx, leadID, `
		UPDATE leads
		SET delivery_claimed_at = NULL, last_error = $2, updated_at = now()
		WHERE id = $1
	`, errMsg)
}

func (r *Repository) CompleteDelivery(ctx context.Context, leadID uuid.UUID, sentBy string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET phase = 'done', sent_at = $3, sent_by = $2,
		    delivery_claimed_at = NULL, last_error = NULL, updated_at = now()
		WHERE id = $1 AND phase <> 'done' AND delivery_claimed_at IS NOT NULL
	`, leadID, sentBy, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.Conflict("delivery completion lost its claim")
	}
	return nil
}

func (r *Repository) MarkDone(ctx context.Context, leadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET phase = 'done', updated_at = now()
		WHERE id = $1 AND phase <> 'done'
	`, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("lead not found")
		}
		return apperr.Validation("lead is already closed")
	}
	return nil
}

func (r *Repository) ApplyReroute(ctx context.Context, leadID uuid.UUID, record domain.RerouteRecord, phase domain.Phase) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal reroute record: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET phase = $3, sent_at = NULL, sent_by = NULL, reroute = $2, updated_at = now()
		WHERE id = $1 AND phase = 'done' AND reroute IS NULL
	`, leadID, payload, phase)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM leads WHERE id = $1)`, leadID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("lead not found")
		}
		return apperr.Conflict("lead is no longer in a reroutable state")
	}
	return nil
}

func (r *Repository) MarkMeetingBooked(ctx context.Context, leadID uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET meeting_booked_at = $2, updated_at = now()
		WHERE id = $1 AND meeting_booked_at IS NULL AND phase = 'done' AND sent_at IS NOT NULL
	`, leadID, at)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var phase domain.Phase
	var sentAt, bookedAt *time.Time
	err = r.pool.QueryRow(ctx, `SELECT phase, sent_at, meeting_booked_at FROM leads WHERE id = $1`, leadID).
		Scan(&phase, &sentAt, &bookedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, apperr.NotFound("lead not found")
	}
	if err != nil {
		return false, err
	}
	if bookedAt != nil {
		return false, nil
	}
	return false, apperr.Validation("meeting can only be booked on a lead with a delivered meeting offer")
}

func (r *Repository) SetSupportFeedback(ctx context.Context, leadID uuid.UUID, feedback domain.SupportFeedback) error {
	payload, err := json.Marshal(feedback)
	if err != nil {
		return fmt.Errorf("marshal support feedback: %w", err)
	}
	return r.execOnLead(ctx, leadID, `
		UPDATE leads SET support_feedback = $2, updated_at = now() WHERE id = $1
	`, payload)
}

func (r *Repository) ReplaceCaseStudies(ctx context.Context, leadID uuid.UUID, refs []domain.CaseStudyRef) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM lead_case_studies WHERE lead_id = $1`, leadID); err != nil {
		return err
	}
	for _, ref := range refs {
		_, err := tx.Exec(ctx, `
			INSERT INTO lead_case_studies (lead_id, case_study_id, title, sort_order)
			VALUES ($1, $2, $3, $4)
		`, leadID, ref.CaseStudyID, ref.Title, ref.SortOrder)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *Repository) AddNote(ctx context.Context, leadID uuid.UUID, author, body string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_notes (id, lead_id, author, body)
		VALUES ($1, $2, $3, $4)
	`, uuid.New(), leadID, author, body)
	return err
}

func (r *Repository) SetLastError(ctx context.Context, leadID uuid.UUID, msg string) error {
	return r.execOnLead(ctx, leadID, `
		UPDATE leads SET last_error = $2, updated_at = now() WHERE id = $1
	`, msg)
}

// execOnLead runs an UPDATE keyed on a lead id and maps a zero-row result
// to not found.
func (r *Repository) execOnLead(ctx context.Context, leadID uuid.UUID, sql string, args ...any) error {
	tag, err := r.pool.Exec(ctx, sql, append([]any{leadID}, args...)...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("lead not found")
	}
	return nil
}

func (r *Repository) loadClassifications(ctx context.Context, leadID uuid.UUID) (domain.History, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT author, classification, needs_review, applied_threshold, created_at
		FROM lead_classifications
		WHERE lead_id = $1
		ORDER BY seq DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := domain.History{}
	for rows.Next() {
		var entry domain.ClassificationEntry
		if err := rows.Scan(&entry.Author, &entry.Classification, &entry.NeedsReview, &entry.AppliedThreshold, &entry.Timestamp); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

func (r *Repository) loadCaseStudies(ctx context.Context, leadID uuid.UUID) ([]domain.CaseStudyRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT case_study_id, title, sort_order
		FROM lead_case_studies
		WHERE lead_id = $1
		ORDER BY sort_order ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := make([]domain.CaseStudyRef, 0)
	for rows.Next() {
		var ref domain.CaseStudyRef
		if err := rows.Scan(&ref.CaseStudyID, &ref.Title, &ref.SortOrder); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*domain.Lead, error) {
	var (
		lead            domain.Lead
		botResearch     []byte
		draftBody       *string
		draftCreatedAt  *time.Time
		draftEditedAt   *time.Time
		supportFeedback []byte
		reroute         []byte
		metadata        []byte
	)

	err := row.Scan(
		&lead.ID, &lead.Submission.Name, &lead.Submission.Email, &lead.Submission.Company,
		&lead.Submission.Message, &lead.Submission.Phone,
		&lead.Status.Phase, &lead.Status.ReceivedAt, &lead.Status.SentAt, &lead.Status.SentBy,
		&botResearch, &draftBody, &draftCreatedAt, &draftEditedAt,
		&supportFeedback, &reroute, &lead.MeetingBookedAt, &lead.LastError, &metadata,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if botResearch != nil {
		lead.BotResearch = &domain.BotResearch{}
		if err := json.Unmarshal(botResearch, lead.BotResearch); err != nil {
			return nil, fmt.Errorf("unmarshal bot research: %w", err)
		}
	}
	if draftBody != nil && draftCreatedAt != nil {
		lead.Draft = &domain.Draft{Body: *draftBody, CreatedAt: *draftCreatedAt, EditedAt: draftEditedAt}
	}
	if supportFeedback != nil {
		lead.SupportFeedback = &domain.SupportFeedback{}
		if err := json.Unmarshal(supportFeedback, lead.SupportFeedback); err != nil {
			return nil, fmt.Errorf("unmarshal support feedback: %w", err)
		}
	}
	if reroute != nil {
		lead.Reroute = &domain.RerouteRecord{}
		if err := json.Unmarshal(reroute, lead.Reroute); err != nil {
			return nil, fmt.Errorf("unmarshal reroute record: %w", err)
		}
	}
	if metadata != nil {
		if err := json.Unmarshal(metadata, &lead.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}

	return &lead, nil
}
