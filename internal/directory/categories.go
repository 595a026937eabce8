package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MrSnakeDoc/sitedir/internal/logger"
	"github.com/MrSnakeDoc/sitedir/internal/mutate"
)

// ListCategories returns the category tree, each level sorted by Order.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	cats, err := readList[Category](ctx, s, PathCategories)
	if err != nil {
		return nil, err
	}
	sortTree(cats)
	return cats, nil
}

// AddCategory creates a category at the top level, or under parentID when set.
func (s *Service) AddCategory(ctx context.Context, c Category, parentID string) (Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Children = nil
	if err := validateStruct(c); err != nil {
		return Category{}, err
	}
	c.ID = s.newID()

	_, err := mutate.JSON(ctx, s.mut, PathCategories, func(cats *[]Category) error {
		siblings := cats
		if parentID != "" {
			p, child, ok := locate(*cats, parentID)
			if !ok || child >= 0 {
				return fmt.Errorf("%w: parent category %s", ErrNotFound, parentID)
			}
			siblings = &(*cats)[p].Children
		}
		if hasName(*siblings, c.Name, "") {
			return fmt.Errorf("%w: category %q", ErrDuplicate, c.Name)
		}
		c.Order = nextOrder(*siblings)
		*siblings = append(*siblings, c)
		return nil
	})
	if err != nil {
		return Category{}, err
	}

	s.logger.Info("category added", logger.String("id", c.ID), logger.String("parent", parentID))
	return c, nil
}

// RenameCategory changes the name of the category with id.
func (s *Service) RenameCategory(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if err := validateStruct(Category{Name: name}); err != nil {
		return err
	}

	_, err := mutate.JSON(ctx, s.mut, PathCategories, func(cats *[]Category) error {
		p, child, ok := locate(*cats, id)
		if !ok {
			return fmt.Errorf("%w: category %s", ErrNotFound, id)
		}
		siblings := *cats
		target := &(*cats)[p]
		if child >= 0 {
			siblings = (*cats)[p].Children
			target = &(*cats)[p].Children[child]
		}
		if target.Name == name {
			return mutate.ErrNoChange
		}
		if hasName(siblings, name, id) {
			return fmt.Errorf("%w: category %q", ErrDuplicate, name)
		}
		target.Name = name
		return nil
	})
	return err
}

// DeleteCategory removes a category. It is refused while any website
// references it or while it still has children.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	sites, err := readList[Website](ctx, s, PathWebsites)
	if err != nil {
		return err
	}
	for _, w := range sites {
		if w.Category == id {
			return fmt.Errorf("%w: %s is used by %s", ErrCategoryInUse, id, w.URL)
		}
	}

	_, err = mutate.JSON(ctx, s.mut, PathCategories, func(cats *[]Category) error {
		p, child, ok := locate(*cats, id)
		if !ok {
			return fmt.Errorf("%w: category %s", ErrNotFound, id)
		}
		if child >= 0 {
			(*cats)[p].Children = slices.Delete((*cats)[p].Children, child, child+1)
			return nil
		}
		if len((*cats)[p].Children) > 0 {
			return fmt.Errorf("%w: %s has subcategories", ErrCategoryInUse, id)
		}
		*cats = slices.Delete(*cats, p, p+1)
		return nil
	})
	if err == nil {
		s.logger.Info("category deleted", logger.String("id", id))
	}
	return err
}

// PromoteCategory turns a subcategory into a top-level category.
func (s *Service) PromoteCategory(ctx context.Context, id string) error {
	_, err := mutate.JSON(ctx, s.mut, PathCategories, func(cats *[]Category) error {
		p, child, ok := locate(*cats, id)
		if !ok {
			return fmt.Errorf("%w: category %s", ErrNotFound, id)
		}
		if child < 0 {
			return fmt.Errorf("%w: %s is already top level", ErrInvalidMove, id)
		}
		c := (*cats)[p].Children[child]
		if hasName(*cats, c.Name, "") {
			return fmt.Errorf("%w: category %q", ErrDuplicate, c.Name)
		}
		(*cats)[p].Children = slices.Delete((*cats)[p].Children, child, child+1)
		c.Order = nextOrder(*cats)
		*cats = append(*cats, c)
		return nil
	})
	return err
}

// DemoteCategory moves a top-level category without children under parentID.
func (s *Service) DemoteCategory(ctx context.Context, id, parentID string) error {
	if id == parentID {
		return fmt.Errorf("%w: a category cannot be its own parent", ErrInvalidMove)
	}

	_, err := mutate.JSON(ctx, s.mut, PathCategories, func(cats *[]Category) error {
		p, child, ok := locate(*cats, id)
		if !ok {
			return fmt.Errorf("%w: category %s", ErrNotFound, id)
		}
		if child >= 0 {
			return fmt.Errorf("%w: %s is already a subcategory", ErrInvalidMove, id)
		}
		c := (*cats)[p]
		if len(c.Children) > 0 {
			return fmt.Errorf("%w: %s has subcategories", ErrInvalidMove, id)
		}

		*cats = slices.Delete(*cats, p, p+1)
		return appendChild(*cats, parentID, c)
	})
	return err
}

// MoveCategory moves a subcategory under another top-level parent.
func (s *Service) MoveCategory(ctx context.Context, id, parentID string) error {
	_, err := mutate.JSON(ctx, s.mut, PathCategories, func(cats *[]Category) error {
		p, child, ok := locate(*cats, id)
		if !ok {
			return fmt.Errorf("%w: category %s", ErrNotFound, id)
		}
		if child < 0 {
			return fmt.Errorf("%w: %s is top level", ErrInvalidMove, id)
		}
		if (*cats)[p].ID == parentID {
			return mutate.ErrNoChange
		}

		c := (*cats)[p].Children[child]
		(*cats)[p].Children = slices.Delete((*cats)[p].Children, child, child+1)
		return appendChild(*cats, parentID, c)
	})
	return err
}

// locate finds id in the tree. child is -1 for a top-level match.
func locate(cats []Category, id string) (parent, child int, ok bool) {
	for i, c := range cats {
		if c.ID == id {
			return i, -1, true
		}
		for j, sub := range c.Children {
			if sub.ID == id {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func appendChild(cats []Category, parentID string, c Category) error {
	p, child, ok := locate(cats, parentID)
	if !ok || child >= 0 {
		return fmt.Errorf("%w: parent category %s", ErrNotFound, parentID)
	}
	if hasName(cats[p].Children, c.Name, "") {
		return fmt.Errorf("%w: category %q", ErrDuplicate, c.Name)
	}
	c.Order = nextOrder(cats[p].Children)
	cats[p].Children = append(cats[p].Children, c)
	return nil
}

// hasName reports whether a category other than exceptID is called name.
func hasName(cats []Category, name, exceptID string) bool {
	return slices.ContainsFunc(cats, func(c Category) bool {
		return c.ID != exceptID && strings.EqualFold(c.Name, name)
	})
}

func nextOrder(cats []Category) int {
	next := 0
	for _, c := range cats {
		next = max(next, c.Order+1)
	}
	return next
}

func sortTree(cats []Category) {
	byOrder := func(a, b Category) int { return a.Order - b.Order }
	slices.SortStableFunc(cats, byOrder)
	for i := range cats {
		slices.SortStableFunc(cats[i].Children, byOrder)
	}
}
