package directory

import (
	"context"
	"slices"

	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/mutate"
)

// Reconcile drops queued submissions whose URL is already listed. Such
// entries are left behind when an approval stops between its two writes.
// It returns how many were removed.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	sites, err := readList[Website](ctx, s, PathWebsites)
	if err != nil {
		return 0, err
	}
	listed := make(map[string]struct{}, len(sites))
	for _, w := range sites {
		listed[canonicalURL(w.URL)] = struct{}{}
	}

	removed := 0
	_, err = mutate.JSON(ctx, s.mut, PathPending, func(list *[]PendingSubmission) error {
		n := len(*list)
		*list = slices.DeleteFunc(*list, func(p PendingSubmission) bool {
			_, ok := listed[canonicalURL(p.URL)]
			return ok
		})
		removed = n - len(*list)
		if removed == 0 {
			return mutate.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		s.logger.Info("reconciled submission queue", logger.Int("removed", removed))
	}
	return removed, nil
}
