package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/MrSnakeDoc/sitedir/internal/mutate"
)

func (s *Service) ListFriends(ctx context.Context) ([]FriendLink, error) {
	return readList[FriendLink](ctx, s, PathFriends)
}

func (s *Service) AddFriend(ctx context.Context, f FriendLink) error {
	f.URL = strings.TrimSpace(f.URL)
	f.Name = strings.TrimSpace(f.Name)
	if err := validateStruct(f); err != nil {
		return err
	}

	_, err := mutate.JSON(ctx, s.mut, PathFriends, func(list *[]FriendLink) error {
		if slices.ContainsFunc(*list, func(cur FriendLink) bool { return sameURL(cur.URL, f.URL) }) {
			return fmt.Errorf("%w: friend link %s", ErrDuplicate, f.URL)
		}
		*list = append(*list, f)
		return nil
	})
	return err
}

// RemoveFriend drops the friend link pointing at rawURL.
func (s *Service) RemoveFriend(ctx context.Context, rawURL string) error {
	_, err := mutate.JSON(ctx, s.mut, PathFriends, func(list *[]FriendLink) error {
		n := len(*list)
		*list = slices.DeleteFunc(*list, func(f FriendLink) bool { return sameURL(f.URL, rawURL) })
		if len(*list) == n {
			return fmt.Errorf("%w: friend link %s", ErrNotFound, rawURL)
		}
		return nil
	})
	return err
}
