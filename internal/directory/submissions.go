package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/mutate"
)

// ListPending returns the submissions waiting for review, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]PendingSubmission, error) {
	list, err := readList[PendingSubmission](ctx, s, PathPending)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(list, func(a, b PendingSubmission) int { return a.SubmittedAt.Compare(b.SubmittedAt) })
	return list, nil
}

// Submit queues a visitor proposal. URLs already listed or already queued
// are refused.
func (s *Service) Submit(ctx context.Context, sub PendingSubmission) (PendingSubmission, error) {
	sub.URL = strings.TrimSpace(sub.URL)
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	if err := validateStruct(sub); err != nil {
		return PendingSubmission{}, err
	}

	sites, err := readList[Website](ctx, s, PathWebsites)
	if err != nil {
		return PendingSubmission{}, err
	}
	if slices.ContainsFunc(sites, func(w Website) bool { return sameURL(w.URL, sub.URL) }) {
		return PendingSubmission{}, fmt.Errorf("%w: %s is already listed", ErrDuplicate, sub.URL)
	}

	sub.ID = s.newID()
	sub.Status = StatusPending
	sub.SubmittedAt = s.now().UTC()
	sub.ReviewedAt = nil

	_, err = mutate.JSON(ctx, s.mut, PathPending, func(list *[]PendingSubmission) error {
		if slices.ContainsFunc(*list, func(p PendingSubmission) bool { return sameURL(p.URL, sub.URL) }) {
			return fmt.Errorf("%w: %s is already pending", ErrDuplicate, sub.URL)
		}
		*list = append(*list, sub)
		return nil
	})
	if err != nil {
		return PendingSubmission{}, err
	}

	s.logger.Info("submission received", logger.String("id", sub.ID), logger.String("url", sub.URL))
	return sub, nil
}

// Approve lists the submission as a website and removes it from the queue.
//
// The two documents are written one after the other. Adding the website is
// idempotent by URL, so approving again after a failure between the two
// writes completes the job; Reconcile cleans up entries left behind.
func (s *Service) Approve(ctx context.Context, id string) (Website, error) {
	pending, err := readList[PendingSubmission](ctx, s, PathPending)
	if err != nil {
		return Website{}, err
	}
	idx := slices.IndexFunc(pending, func(p PendingSubmission) bool { return p.ID == id })
	if idx < 0 {
		return Website{}, fmt.Errorf("%w: submission %s", ErrNotFound, id)
	}
	sub := pending[idx]

	derived := Website{
		ID:          s.newID(),
		Name:        sub.Name,
		URL:         sub.URL,
		Description: sub.Description,
		Category:    sub.Category,
		CreatedAt:   s.now().UTC(),
	}

	var site Website
	_, err = mutate.JSON(ctx, s.mut, PathWebsites, func(list *[]Website) error {
		next := 0
		for _, w := range *list {
			if sameURL(w.URL, derived.URL) {
				site = w
				return mutate.ErrNoChange
			}
			next = max(next, w.Order+1)
		}
		site = derived
		site.Order = next
		*list = append(*list, site)
		return nil
	})
	if err != nil {
		return Website{}, fmt.Errorf("approve %s: add website: %w", id, err)
	}

	if err := s.dequeue(ctx, id, StatusApproved); err != nil {
		return site, fmt.Errorf("approve %s: dequeue: %w", id, err)
	}
	return site, nil
}

// Reject drops the submission from the queue.
func (s *Service) Reject(ctx context.Context, id string) error {
	return s.dequeue(ctx, id, StatusRejected)
}

func (s *Service) dequeue(ctx context.Context, id, status string) error {
	_, err := mutate.JSON(ctx, s.mut, PathPending, func(list *[]PendingSubmission) error {
		n := len(*list)
		*list = slices.DeleteFunc(*list, func(p PendingSubmission) bool { return p.ID == id })
		if len(*list) == n {
			return fmt.Errorf("%w: submission %s", ErrNotFound, id)
		}
		return nil
	})
	if err == nil {
		s.logger.Info("submission reviewed", logger.String("id", id), logger.String("status", status))
	}
	return err
}
