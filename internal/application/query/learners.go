package query

import (
	"context"
	"fmt"
	"time"

	"github.com/rychipman/bridge-practice/internal/domain/learner"
)

// LearnerDTO is the public view of a learner. It never carries the
// password hash.
type LearnerDTO struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// ToLearnerDTO converts a learner, dropping the password hash.
func ToLearnerDTO(l *learner.Learner) LearnerDTO {
	return LearnerDTO{
		ID:         l.ID,
		Email:      l.Email.String(),
		CreatedAt:  l.CreatedAt,
		LastActive: l.LastActive,
	}
}

// ListLearnersHandler pages through learners.
type ListLearnersHandler struct {
	repo learner.Repository
}

// NewListLearnersHandler creates a new ListLearnersHandler.
func NewListLearnersHandler(repo learner.Repository) *ListLearnersHandler {
	return &ListLearnersHandler{repo: repo}
}

// Handle returns one page. A non-positive limit selects the default page size.
func (h *ListLearnersHandler) Handle(ctx context.Context, opts learner.ListOptions) ([]LearnerDTO, error) {
	if opts.Limit <= 0 {
		opts.Limit = learner.DefaultListOptions().Limit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	list, err := h.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list_learners: %w", err)
	}

	out := make([]LearnerDTO, 0, len(list))
	for _, l := range list {
		out = append(out, ToLearnerDTO(l))
	}
	return out, nil
}

// GetLearnerHandler returns one learner.
type GetLearnerHandler struct {
	repo learner.Repository
}

// NewGetLearnerHandler creates a new GetLearnerHandler.
func NewGetLearnerHandler(repo learner.Repository) *GetLearnerHandler {
	return &GetLearnerHandler{repo: repo}
}

// Handle looks the learner up by id.
func (h *GetLearnerHandler) Handle(ctx context.Context, id string) (*LearnerDTO, error) {
	l, err := h.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get_learner: %w", err)
	}
	dto := ToLearnerDTO(l)
	return &dto, nil
}
