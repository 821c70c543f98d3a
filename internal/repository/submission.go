package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"travelguide.io/guestbook/internal/domain"
	apperrors "travelguide.io/guestbook/internal/pkg/errors"
)

const submissionColumns = `id, kind, related_context, author_identity, author_display_name, body,
	created_at, moderation_state, spam_score, spam_reasons, source_address,
	moderator_notes, moderated_by, moderated_at`

// SubmissionRepository stores submissions.
type SubmissionRepository struct {
	db DBTX
}

// NewSubmissionRepository creates a SubmissionRepository.
func NewSubmissionRepository(db DBTX) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// ModerationUpdate is one moderator action applied to a submission.
// Notes is left unchanged when nil.
type ModerationUpdate struct {
	State       domain.ModerationState
	Notes       *string
	ModeratedBy string
	ModeratedAt time.Time
}

// Create inserts a submission with its initial moderation state.
func (r *SubmissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	reasons := s.SpamReasons
	if reasons == nil {
		reasons = []string{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, string(s.Kind), s.RelatedContext, s.AuthorIdentity, s.AuthorDisplayName, s.Body,
		s.CreatedAt, string(s.ModerationState), s.SpamScore, reasons, s.SourceAddress,
		s.ModeratorNotes, s.ModeratedBy, s.ModeratedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("insert submission %s: %w", s.ID, apperrors.ErrAlreadyExists)
		}
		return fmt.Errorf("insert submission %s: %w", s.ID, err)
	}
	return nil
}

// Get returns the submission with id in any state.
func (r *SubmissionRepository) Get(ctx context.Context, id string) (*domain.Submission, error) {
	s, err := scanSubmission(r.db.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("submission %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select submission %s: %w", id, err)
	}
	return s, nil
}

// List returns one page of submissions matching filter, newest first, and the total match count.
func (r *SubmissionRepository) List(ctx context.Context, filter domain.SubmissionFilter, page domain.Page) ([]*domain.Submission, int, error) {
	page = page.Normalize()
	where, args := filterClause(filter)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM submissions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}

	args = append(args, page.Limit, page.Offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM submissions%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		submissionColumns, where, len(args)-1, len(args),
	), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	items := make([]*domain.Submission, 0, page.Limit)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan submission: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate submissions: %w", err)
	}
	return items, total, nil
}

// UpdateModeration applies a moderator action and returns the prior state with the updated row.
// The read of the prior state and the write happen in one statement.
func (r *SubmissionRepository) UpdateModeration(ctx context.Context, id string, upd ModerationUpdate) (domain.ModerationState, *domain.Submission, error) {
	row := r.db.QueryRow(ctx, `
		WITH prev AS (
			SELECT id, moderation_state FROM submissions WHERE id = $1 FOR UPDATE
		)
		UPDATE submissions s
		SET moderation_state = $2,
		    moderator_notes = COALESCE($3, s.moderator_notes),
		    moderated_by = $4,
		    moderated_at = $5
		FROM prev
		WHERE s.id = prev.id
		RETURNING prev.moderation_state, s.id, s.kind, s.related_context, s.author_identity,
		    s.author_display_name, s.body, s.created_at, s.moderation_state, s.spam_score,
		    s.spam_reasons, s.source_address, s.moderator_notes, s.moderated_by, s.moderated_at`,
		id, string(upd.State), upd.Notes, upd.ModeratedBy, upd.ModeratedAt,
	)

	var prev string
	s, err := scanSubmissionWith(row, &prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, fmt.Errorf("submission %s: %w", id, apperrors.ErrNotFound)
	}
	if err != nil {
		return "", nil, fmt.Errorf("update submission %s moderation: %w", id, err)
	}
	return domain.ModerationState(prev), s, nil
}

func filterClause(f domain.SubmissionFilter) (string, []any) {
	var conds []string
	var args []any
	if f.State != "" {
		args = append(args, string(f.State))
		conds = append(conds, fmt.Sprintf("moderation_state = $%d", len(args)))
	}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.RelatedContext != "" {
		args = append(args, f.RelatedContext)
		conds = append(conds, fmt.Sprintf("related_context = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanSubmission(row pgx.Row) (*domain.Submission, error) {
	return scanSubmissionWith(row)
}

// scanSubmissionWith scans leading columns into extra before the submission columns.
func scanSubmissionWith(row pgx.Row, extra ...any) (*domain.Submission, error) {
	var (
		s          domain.Submission
		kind       string
		state      string
		reasons    []string
		notes      *string
		moderator  *string
		moderatedT *time.Time
	)
	dest := append(extra,
		&s.ID, &kind, &s.RelatedContext, &s.AuthorIdentity, &s.AuthorDisplayName, &s.Body,
		&s.CreatedAt, &state, &s.SpamScore, &reasons, &s.SourceAddress,
		&notes, &moderator, &moderatedT,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	s.Kind = domain.SubmissionKind(kind)
	s.ModerationState = domain.ModerationState(state)
	s.CreatedAt = s.CreatedAt.UTC()
	if reasons == nil {
		reasons = []string{}
	}
	s.SpamReasons = reasons
	s.ModeratorNotes = notes
	s.ModeratedBy = moderator
	if moderatedT != nil {
		t := moderatedT.UTC()
		s.ModeratedAt = &t
	}
	return &s, nil
}
