package directory

import (
	"errors"
	"testing"
)

func TestFriends(t *testing.T) {
	s, _ := newTestService(t)

	if err := s.AddFriend(t.Context(), FriendLink{Name: "Pal", URL: "https://pal.example"}); err != nil {
		t.Fatalf("AddFriend() error = %v", err)
	}
	if err := s.AddFriend(t.Context(), FriendLink{Name: "Pal twin", URL: "https://PAL.example/"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate AddFriend() error = %v, want ErrDuplicate", err)
	}
	if err := s.AddFriend(t.Context(), FriendLink{Name: "Bad", URL: "pal"}); !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid AddFriend() error = %v, want ErrInvalid", err)
	}

	if err := s.RemoveFriend(t.Context(), "https://pal.example/"); err != nil {
		t.Fatalf("RemoveFriend() error = %v", err)
	}
	if err := s.RemoveFriend(t.Context(), "https://pal.example"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second RemoveFriend() error = %v, want ErrNotFound", err)
	}
	if list, _ := s.ListFriends(t.Context()); len(list) != 0 {
		t.Errorf("friends = %+v", list)
	}
}

func TestSiteConfig(t *testing.T) {
	s, store := newTestService(t)

	cfg, err := s.GetConfig(t.Context())
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if cfg != DefaultSiteConfig {
		t.Errorf("GetConfig() = %+v, want default", cfg)
	}

	want := SiteConfig{Title: "Links", Footer: "hosted somewhere"}
	if _, err := s.UpdateConfig(t.Context(), want); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	doc, err := store.Read(t.Context(), PathConfig)
	if err != nil {
		t.Fatal(err)
	}

	// Same config again is not rewritten.
	if _, err := s.UpdateConfig(t.Context(), want); err != nil {
		t.Fatal(err)
	}
	again, _ := store.Read(t.Context(), PathConfig)
	if again.Revision != doc.Revision {
		t.Error("identical UpdateConfig() produced a new revision")
	}

	if got, _ := s.GetConfig(t.Context()); got != want {
		t.Errorf("GetConfig() = %+v, want %+v", got, want)
	}
	if _, err := s.UpdateConfig(t.Context(), SiteConfig{}); !errors.Is(err, ErrInvalid) {
		t.Errorf("empty title error = %v, want ErrInvalid", err)
	}
}
