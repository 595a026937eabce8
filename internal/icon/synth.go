package icon

import (
	"fmt"
	"strings"
	"unicode"
)

// SynthesizedContentType is the type of every placeholder.
const SynthesizedContentType = "image/svg+xml"

// SynthesizedSource marks placeholders in cache entries.
const SynthesizedSource = "synthesized"

var palette = [...]string{
	"#4f46e5", // indigo
	"#0891b2", // cyan
	"#059669", // emerald
	"#d97706", // amber
	"#dc2626", // red
	"#db2777", // pink
	"#7c3aed", // violet
	"#475569", // slate
}

const badgeTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 64 64">` +
	`<rect width="64" height="64" rx="12" fill="%s"/>` +
	`<text x="32" y="32" dy=".35em" text-anchor="middle" font-family="-apple-system,Segoe UI,Helvetica,Arial,sans-serif" font-size="32" font-weight="600" fill="#ffffff">%s</text>` +
	`</svg>`

// Synthesize renders the placeholder badge for host. Same host, same bytes.
func Synthesize(host string) Icon {
	host = strings.ToLower(strings.TrimSpace(host))
	svg := fmt.Sprintf(badgeTemplate, badgeColor(host), badgeLetter(host))
	return Icon{
		Data:        []byte(svg),
		ContentType: SynthesizedContentType,
		Source:      SynthesizedSource,
		Synthesized: true,
	}
}

// badgeLetter is the first letter or digit of host, upper-cased, "?" when none.
func badgeLetter(host string) string {
	for _, r := range host {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return "?"
}

func badgeColor(host string) string {
	sum := len(host)
	for i := 0; i < len(host); i++ {
		sum += int(host[i])
	}
	return palette[sum%len(palette)]
}
