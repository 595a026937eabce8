package memory

import (
	"testing"

	"github.com/MrSnakeDoc/sitedir/internal/docstore"
	"github.com/MrSnakeDoc/sitedir/internal/docstore/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store { return New() })
}

func TestCleanPath(t *testing.T) {
	tests := map[string]string{
		"/data/websites.json": "data/websites.json",
		"icons//example.com/": "icons/example.com",
		"./a/./b":             "a/b",
	}
	for in, want := range tests {
		if got := docstore.CleanPath(in); got != want {
			t.Errorf("CleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}
