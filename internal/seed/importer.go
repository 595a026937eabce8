// Package seed imports a YAML description of the directory into the
// document store. Imports are additive: entries already present (same URL,
// same category name at the same level) are left untouched and nothing is
// ever removed.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/MrSnakeDoc/sitedir/internal/directory"
	"github.com/MrSnakeDoc/sitedir/internal/logger"
)

// Report counts what an import did. Err aggregates per-entry failures.
type Report struct {
	Added   int
	Skipped int
	Err     error
}

type Importer struct {
	loader *Loader
	dir    *directory.Service
	logger logger.Logger
}

func NewImporter(loader *Loader, dir *directory.Service, log logger.Logger) *Importer {
	return &Importer{loader: loader, dir: dir, logger: log}
}

// Import loads the seed file and applies it. A returned error means the file
// itself could not be used; entry failures are in Report.Err.
func (im *Importer) Import(ctx context.Context) (Report, error) {
	f, err := im.loader.Load()
	if err != nil {
		return Report{}, err
	}
	return im.Apply(ctx, f)
}

// Apply imports an already parsed seed.
func (im *Importer) Apply(ctx context.Context, f File) (Report, error) {
	var r Report

	if f.Site != nil {
		if err := im.applySite(ctx, *f.Site, &r); err != nil {
			return r, err
		}
	}

	cats, err := im.applyCategories(ctx, f.Categories, &r)
	if err != nil {
		return r, err
	}

	for _, w := range f.Websites {
		catID, ok := resolveCategory(cats, w.Category)
		if !ok {
			r.Err = multierr.Append(r.Err, fmt.Errorf("website %s: unknown category %q", w.URL, w.Category))
			continue
		}
		_, err := im.dir.AddWebsite(ctx, directory.Website{
			Name:        w.Name,
			URL:         w.URL,
			Description: w.Description,
			Category:    catID,
			Icon:        w.Icon,
			Tags:        w.Tags,
		})
		r.count(err, "website "+w.URL)
	}

	for _, fr := range f.Friends {
		err := im.dir.AddFriend(ctx, directory.FriendLink{
			Name:        fr.Name,
			URL:         fr.URL,
			Icon:        fr.Icon,
			Description: fr.Description,
		})
		r.count(err, "friend "+fr.URL)
	}

	im.logger.Info("seed applied",
		logger.String("file", im.loader.Path()),
		logger.Int("added", r.Added),
		logger.Int("skipped", r.Skipped),
		logger.Int("failed", len(multierr.Errors(r.Err))))

	return r, nil
}

// applySite writes the site config only while the default one is in effect.
func (im *Importer) applySite(ctx context.Context, s Site, r *Report) error {
	cur, err := im.dir.GetConfig(ctx)
	if err != nil {
		return fmt.Errorf("read site config: %w", err)
	}
	if cur != directory.DefaultSiteConfig {
		r.Skipped++
		return nil
	}
	_, err = im.dir.UpdateConfig(ctx, directory.SiteConfig{
		Title:       s.Title,
		Description: s.Description,
		Footer:      s.Footer,
	})
	r.count(err, "site config")
	return nil
}

func (im *Importer) applyCategories(ctx context.Context, seeds []Category, r *Report) ([]directory.Category, error) {
	cats, err := im.dir.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("read categories: %w", err)
	}

	for _, sc := range seeds {
		parentID, ok := findByName(cats, sc.Name)
		if ok {
			r.Skipped++
		} else {
			c, err := im.dir.AddCategory(ctx, directory.Category{Name: sc.Name, Icon: sc.Icon}, "")
			r.count(err, "category "+sc.Name)
			if err != nil {
				continue
			}
			parentID = c.ID
			cats = append(cats, c)
		}

		for _, child := range sc.Children {
			parent := &cats[indexOf(cats, parentID)]
			if _, ok := findByName(parent.Children, child.Name); ok {
				r.Skipped++
				continue
			}
			c, err := im.dir.AddCategory(ctx, directory.Category{Name: child.Name, Icon: child.Icon}, parentID)
			r.count(err, "category "+sc.Name+"/"+child.Name)
			if err == nil {
				parent.Children = append(parent.Children, c)
			}
		}
	}
	return cats, nil
}

func (r *Report) count(err error, what string) {
	switch {
	case err == nil:
		r.Added++
	case errors.Is(err, directory.ErrDuplicate):
		r.Skipped++
	default:
		r.Err = multierr.Append(r.Err, fmt.Errorf("%s: %w", what, err))
	}
}

// resolveCategory maps "Name" or "Parent/Child" to a category ID.
func resolveCategory(cats []directory.Category, ref string) (string, bool) {
	parent, child, nested := strings.Cut(ref, "/")
	id, ok := findByName(cats, strings.TrimSpace(parent))
	if !ok || !nested {
		return id, ok
	}
	return findByName(cats[indexOf(cats, id)].Children, strings.TrimSpace(child))
}

func findByName(cats []directory.Category, name string) (string, bool) {
	for _, c := range cats {
		if strings.EqualFold(c.Name, name) {
			return c.ID, true
		}
	}
	return "", false
}

func indexOf(cats []directory.Category, id string) int {
	for i, c := range cats {
		if c.ID == id {
			return i
		}
	}
	return -1
}
