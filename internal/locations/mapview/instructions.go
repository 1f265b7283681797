package mapview

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed instructions.yaml
var instructionsYAML []byte

const fallbackLocale = "en"

// Instructions tell the user how to copy coordinates from an external map.
type Instructions struct {
	Title string   `yaml:"title" json:"title"`
	Steps []string `yaml:"steps" json:"steps"`
}

// Catalogue holds instructions per locale.
type Catalogue map[string]Instructions

// LoadCatalogue parses the embedded instructions.
func LoadCatalogue() (Catalogue, error) {
	return parseCatalogue(instructionsYAML)
}

func parseCatalogue(raw []byte) (Catalogue, error) {
	var catalogue Catalogue
	if err := yaml.Unmarshal(raw, &catalogue); err != nil {
		return nil, fmt.Errorf("parse map instructions: %w", err)
	}
	if _, ok := catalogue[fallbackLocale]; !ok {
		return nil, fmt.Errorf("map instructions: missing %q locale", fallbackLocale)
	}
	return catalogue, nil
}

// For returns the instructions for locale, matching on the primary language
// subtag and falling back to English.
func (c Catalogue) For(locale string) Instructions {
	lang := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if ins, ok := c[lang]; ok {
		return ins
	}
	return c[fallbackLocale]
}
