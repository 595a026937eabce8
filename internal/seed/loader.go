package seed

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader reads the seed YAML file.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the seed file.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read seed file: %w", err)
	}

	data = expandVariables(data)

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	return f, nil
}

var variablePattern = regexp.MustCompile(`\{\{\s*([A-Z0-9_]+)\s*\}\}`)

// expandVariables replaces {{NAME}} with the NAME environment variable.
// Unset variables expand to nothing.
// Example: url: https://{{SITEDIR_VAR_HOST}}/ -> url: https://links.example/
func expandVariables(data []byte) []byte {
	return variablePattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := strings.TrimSpace(string(variablePattern.FindSubmatch(m)[1]))
		return []byte(os.Getenv(name))
	})
}
