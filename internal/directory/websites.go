package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/mutate"
)

// ListWebsites returns all websites sorted by Order.
func (s *Service) ListWebsites(ctx context.Context) ([]Website, error) {
	list, err := readList[Website](ctx, s, PathWebsites)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(list, func(a, b Website) int { return a.Order - b.Order })
	return list, nil
}

// AddWebsite appends w at the end of the list. Its category must exist.
func (s *Service) AddWebsite(ctx context.Context, w Website) (Website, error) {
	w.URL = strings.TrimSpace(w.URL)
	w.Name = strings.TrimSpace(w.Name)
	w.Tags = cleanTags(w.Tags)
	if err := validateStruct(w); err != nil {
		return Website{}, err
	}
	if err := s.requireCategory(ctx, w.Category); err != nil {
		return Website{}, err
	}
	w.ID = s.newID()
	w.CreatedAt = s.now().UTC()

	_, err := mutate.JSON(ctx, s.mut, PathWebsites, func(list *[]Website) error {
		next := 0
		for _, cur := range *list {
			if sameURL(cur.URL, w.URL) {
				return fmt.Errorf("%w: website %s", ErrDuplicate, w.URL)
			}
			next = max(next, cur.Order+1)
		}
		w.Order = next
		*list = append(*list, w)
		return nil
	})
	if err != nil {
		return Website{}, err
	}

	s.logger.Info("website added", logger.String("id", w.ID), logger.String("url", w.URL))
	return w, nil
}

// UpdateWebsite replaces the editable fields of the website with w.ID.
// Order and CreatedAt are kept.
func (s *Service) UpdateWebsite(ctx context.Context, w Website) (Website, error) {
	w.URL = strings.TrimSpace(w.URL)
	w.Name = strings.TrimSpace(w.Name)
	w.Tags = cleanTags(w.Tags)
	if err := validateStruct(w); err != nil {
		return Website{}, err
	}
	if err := s.requireCategory(ctx, w.Category); err != nil {
		return Website{}, err
	}

	var updated Website
	_, err := mutate.JSON(ctx, s.mut, PathWebsites, func(list *[]Website) error {
		idx := -1
		for i, cur := range *list {
			if cur.ID == w.ID {
				idx = i
			} else if sameURL(cur.URL, w.URL) {
				return fmt.Errorf("%w: website %s", ErrDuplicate, w.URL)
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: website %s", ErrNotFound, w.ID)
		}
		cur := (*list)[idx]
		w.Order, w.CreatedAt = cur.Order, cur.CreatedAt
		(*list)[idx] = w
		updated = w
		return nil
	})
	return updated, err
}

// DeleteWebsite removes the website with id.
func (s *Service) DeleteWebsite(ctx context.Context, id string) error {
	_, err := mutate.JSON(ctx, s.mut, PathWebsites, func(list *[]Website) error {
		n := len(*list)
		*list = slices.DeleteFunc(*list, func(w Website) bool { return w.ID == id })
		if len(*list) == n {
			return fmt.Errorf("%w: website %s", ErrNotFound, id)
		}
		return nil
	})
	if err == nil {
		s.logger.Info("website deleted", logger.String("id", id))
	}
	return err
}

// Reorder puts the websites listed in ids first, in that order. Websites
// left out keep their relative order after them.
func (s *Service) Reorder(ctx context.Context, ids []string) error {
	_, err := mutate.JSON(ctx, s.mut, PathWebsites, func(list *[]Website) error {
		pos := make(map[string]int, len(ids))
		for i, id := range ids {
			pos[id] = i
		}
		found := 0
		for _, w := range *list {
			if _, ok := pos[w.ID]; ok {
				found++
			}
		}
		if found != len(pos) {
			return fmt.Errorf("%w: reorder references unknown websites", ErrNotFound)
		}

		slices.SortStableFunc(*list, func(a, b Website) int { return a.Order - b.Order })
		slices.SortStableFunc(*list, func(a, b Website) int {
			pa, oka := pos[a.ID]
			pb, okb := pos[b.ID]
			switch {
			case oka && okb:
				return pa - pb
			case oka:
				return -1
			case okb:
				return 1
			default:
				return 0
			}
		})
		for i := range *list {
			(*list)[i].Order = i
		}
		return nil
	})
	return err
}

// IconTargets lists the URLs whose icons the site displays: websites
// first, then friend links.
func (s *Service) IconTargets(ctx context.Context) ([]string, error) {
	sites, err := s.ListWebsites(ctx)
	if err != nil {
		return nil, err
	}
	friends, err := s.ListFriends(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(sites)+len(friends))
	for _, w := range sites {
		out = append(out, w.URL)
	}
	for _, f := range friends {
		out = append(out, f.URL)
	}
	return out, nil
}

func (s *Service) requireCategory(ctx context.Context, id string) error {
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return err
	}
	if _, _, ok := locate(cats, id); !ok {
		return fmt.Errorf("%w: category %s", ErrNotFound, id)
	}
	return nil
}
