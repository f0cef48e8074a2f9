package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/harunzafer/fastsvelte/internal/ai"
	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/internal/repository"
	"github.com/harunzafer/fastsvelte/pkg/pagination"
)

// NoteService manages user notes under the organization's plan quotas.
type NoteService struct {
	notes      repository.NoteRepository
	quota      *QuotaService
	summarizer ai.Summarizer
	logger     *slog.Logger
}

func NewNoteService(notes repository.NoteRepository, quota *QuotaService, summarizer ai.Summarizer, logger *slog.Logger) *NoteService {
	return &NoteService{notes: notes, quota: quota, summarizer: summarizer, logger: logger}
}

// CreateNoteInput holds the parameters for a new note.
type CreateNoteInput struct {
	Title   string `json:"title" validate:"notblank,maxrunes=200"`
	Content string `json:"content" validate:"maxrunes=100000"`
}

// UpdateNoteInput holds the fields of a note update; nil leaves a field unchanged.
type UpdateNoteInput struct {
	Title   *string `json:"title" validate:"omitempty,notblank,maxrunes=200"`
	Content *string `json:"content" validate:"omitempty,maxrunes=100000"`
}

func (s *NoteService) Create(ctx context.Context, actor *domain.AuthenticatedUser, in CreateNoteInput) (*domain.Note, error) {
	orgID := actor.OrganizationID()
	if err := s.quota.Require(ctx, orgID, domain.FeatureMaxNotes, 1); err != nil {
		return nil, err
	}

	n := &domain.Note{UserID: actor.UserID(), Title: in.Title, Content: in.Content}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create note: %w", err)
	}

	if err := s.quota.Commit(ctx, orgID, domain.FeatureMaxNotes, 1); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "note created",
		slog.Int64("note_id", n.ID),
		slog.Int64("user_id", n.UserID),
	)
	return n, nil
}

func (s *NoteService) Get(ctx context.Context, actor *domain.AuthenticatedUser, id int64) (*domain.Note, error) {
	return s.notes.GetByID(ctx, actor.UserID(), id)
}

func (s *NoteService) List(ctx context.Context, actor *domain.AuthenticatedUser, p pagination.Params) (pagination.Page[domain.Note], error) {
	items, total, err := s.notes.ListByUser(ctx, actor.UserID(), p.Limit(), p.Offset())
	if err != nil {
		return pagination.Page[domain.Note]{}, fmt.Errorf("list notes: %w", err)
	}
	return pagination.NewPage(items, total, p), nil
}

func (s *NoteService) Update(ctx context.Context, actor *domain.AuthenticatedUser, id int64, in UpdateNoteInput) (*domain.Note, error) {
	return s.notes.Update(ctx, actor.UserID(), id, domain.NoteUpdate{Title: in.Title, Content: in.Content})
}

// Delete removes a note and frees one unit of the max_notes quota.
func (s *NoteService) Delete(ctx context.Context, actor *domain.AuthenticatedUser, id int64) error {
	if err := s.notes.Delete(ctx, actor.UserID(), id); err != nil {
		return err
	}
	if err := s.quota.Commit(ctx, actor.OrganizationID(), domain.FeatureMaxNotes, -1); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "note deleted",
		slog.Int64("note_id", id),
		slog.Int64("user_id", actor.UserID()),
	)
	return nil
}

// Summarize generates and stores an AI summary of a note. The plan must
// enable AI and have token_limit room for the estimated token count.
func (s *NoteService) Summarize(ctx context.Context, actor *domain.AuthenticatedUser, id int64) (*domain.Note, error) {
	orgID := actor.OrganizationID()

	enabled, err := s.quota.FeatureEnabled(ctx, orgID, domain.FeatureEnableAI)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, domain.AccessDenied()
	}

	n, err := s.notes.GetByID(ctx, actor.UserID(), id)
	if err != nil {
		return nil, err
	}

	tokens := domain.EstimateTokens(n.Content)
	if err := s.quota.Require(ctx, orgID, domain.FeatureTokenLimit, tokens); err != nil {
		return nil, err
	}

	summary, err := s.summarizer.Summarize(ctx, n.Content)
	if err != nil {
		return nil, err
	}
	if err := s.notes.SetSummary(ctx, actor.UserID(), id, summary); err != nil {
		return nil, fmt.Errorf("store summary: %w", err)
	}
	n.Summary = &summary

	if err := s.quota.Commit(ctx, orgID, domain.FeatureTokenLimit, tokens); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "note summarized",
		slog.Int64("note_id", id),
		slog.Int64("tokens", tokens),
	)
	return n, nil
}
