package query

import (
	"context"
	"fmt"

	"github.com/rychipman/bridge-practice/internal/domain/practice"
)

// GetDealHandler returns a stored deal, reading through the cache when one
// is configured.
type GetDealHandler struct {
	exercises *GetExerciseHandler
}

// NewGetDealHandler creates a new GetDealHandler. cache may be nil.
func NewGetDealHandler(repo practice.Repository, cache DealCache) *GetDealHandler {
	return &GetDealHandler{exercises: NewGetExerciseHandler(repo, cache, nil)}
}

// Handle looks the deal up by id.
func (h *GetDealHandler) Handle(ctx context.Context, dealID string) (*practice.Deal, error) {
	d, err := h.exercises.loadDeal(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("get_deal: %w", err)
	}
	return d, nil
}

// GetCommentHandler returns one comment.
type GetCommentHandler struct {
	repo practice.Repository
}

// NewGetCommentHandler creates a new GetCommentHandler.
func NewGetCommentHandler(repo practice.Repository) *GetCommentHandler {
	return &GetCommentHandler{repo: repo}
}

// Handle looks the comment up by id.
func (h *GetCommentHandler) Handle(ctx context.Context, commentID string) (*practice.Comment, error) {
	c, err := h.repo.GetComment(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("get_comment: %w", err)
	}
	return c, nil
}
