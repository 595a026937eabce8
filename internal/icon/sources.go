package icon

import (
	"net/url"
	"strings"
)

// Source is one acquisition strategy. Template uses {host} as placeholder.
type Source struct {
	Name     string
	Template string
}

// Candidate is a Source bound to a concrete host.
type Candidate struct {
	Name string
	URL  string
}

// OverrideSource names the single candidate built from a caller supplied URL.
const OverrideSource = "override"

// DefaultSources is the fixed priority order: the site's own well-known
// paths first, then third-party favicon services.
var DefaultSources = []Source{
	{Name: "site-favicon", Template: "https://{host}/favicon.ico"},
	{Name: "site-apple-touch", Template: "https://{host}/apple-touch-icon.png"},
	{Name: "google-s2", Template: "https://www.google.com/s2/favicons?domain={host}&sz=64"},
	{Name: "duckduckgo", Template: "https://icons.duckduckgo.com/ip3/{host}.ico"},
	{Name: "yandex", Template: "https://favicon.yandex.net/favicon/{host}"},
	{Name: "iowen", Template: "https://api.iowen.cn/favicon/{host}.png"},
}

// Candidates expands sources for host. A non-empty override replaces the whole list.
func Candidates(sources []Source, host, override string) []Candidate {
	if override = strings.TrimSpace(override); override != "" {
		return []Candidate{{Name: OverrideSource, URL: override}}
	}
	escaped := url.PathEscape(host)
	out := make([]Candidate, 0, len(sources))
	for _, s := range sources {
		out = append(out, Candidate{
			Name: s.Name,
			URL:  strings.ReplaceAll(s.Template, "{host}", escaped),
		})
	}
	return out
}
