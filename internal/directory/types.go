package directory

import "time"

// Document paths. Every directory document lives under data/.
const (
	PathWebsites   = "data/websites.json"
	PathCategories = "data/categories.json"
	PathPending    = "data/pending.json"
	PathFriends    = "data/friends.json"
	PathConfig     = "data/config.json"
)

// Website is one listed site.
type Website struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is assigned on creation and never changes.
	ID string `json:"id"`

	// URL is the site's address. Unique across the list (see canonicalURL).
	URL string `json:"url" validate:"required,http_url,max=2048"`

	// ─────────────────────────────
	// Presentation
	// ─────────────────────────────

	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description,omitempty" validate:"max=500"`
	Tags        []string `json:"tags,omitempty" validate:"max=10,dive,required,max=30"`

	// Icon is an icon URL or path. Empty means "resolve from the domain".
	Icon string `json:"icon,omitempty" validate:"max=2048"`

	// Category references a Category ID at either level of the tree.
	Category string `json:"category" validate:"required"`

	// Order is the position in listings, ascending.
	Order int `json:"order"`

	CreatedAt time.Time `json:"created_at"`
}

// Category is a node of the two-level category tree.
// Children never have children of their own.
type Category struct {
	ID       string     `json:"id"`
	Name     string     `json:"name" validate:"required,max=50"`
	Icon     string     `json:"icon,omitempty" validate:"max=100"`
	Order    int        `json:"order"`
	Children []Category `json:"children,omitempty"`
}

// Submission statuses. Leaving pending is terminal and removes the entry.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// PendingSubmission is a site proposed by a visitor, waiting for review.
type PendingSubmission struct {
	ID          string     `json:"id"`
	Name        string     `json:"name" validate:"required,max=100"`
	URL         string     `json:"url" validate:"required,http_url,max=2048"`
	Description string     `json:"description,omitempty" validate:"max=500"`
	Category    string     `json:"category,omitempty"`
	Email       string     `json:"email,omitempty" validate:"omitempty,email"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
}

// FriendLink is an entry of the footer link exchange.
type FriendLink struct {
	Name        string `json:"name" validate:"required,max=100"`
	URL         string `json:"url" validate:"required,http_url"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty" validate:"max=200"`
}

// SiteConfig holds the site-wide texts.
type SiteConfig struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description,omitempty" validate:"max=500"`
	Footer      string `json:"footer,omitempty" validate:"max=1000"`
}
