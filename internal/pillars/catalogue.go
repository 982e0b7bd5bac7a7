package pillars

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed pillars.yaml
var defaultCatalogue []byte

// Theme is one content pillar.
type Theme struct {
	Name      string   `yaml:"name"`
	Label     string   `yaml:"label"`
	SubThemes []string `yaml:"sub_themes"`
	Keywords  []string `yaml:"keywords"`
}

// Profile holds the author constraints the quality battery checks drafts against.
type Profile struct {
	Title             string   `yaml:"title"`
	BannedClaims      []string `yaml:"banned_claims"`
	OutOfScope        []string `yaml:"out_of_scope"`
	ExperienceMarkers []string `yaml:"experience_markers"`
}

// Catalogue is the parsed pillar file.
type Catalogue struct {
	Themes  []Theme `yaml:"themes"`
	Profile Profile `yaml:"profile"`
}

// Default returns the embedded catalogue.
func Default() *Catalogue {
	cat, err := Parse(defaultCatalogue)
	if err != nil {
		panic(fmt.Sprintf("embedded pillar catalogue: %v", err))
	}
	return cat
}

// Load reads a catalogue from path, or returns the embedded one when path is empty.
func Load(path string) (*Catalogue, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pillar catalogue: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("pillar catalogue %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates catalogue YAML.
func Parse(data []byte) (*Catalogue, error) {
	var cat Catalogue
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if len(cat.Themes) == 0 {
		return nil, errors.New("at least one theme is required")
	}
	seen := make(map[string]struct{}, len(cat.Themes))
	for i := range cat.Themes {
		theme := &cat.Themes[i]
		theme.Name = strings.TrimSpace(theme.Name)
		if theme.Name == "" {
			return nil, fmt.Errorf("theme %d: name is required", i+1)
		}
		key := strings.ToLower(theme.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate theme %q", theme.Name)
		}
		seen[key] = struct{}{}
		if theme.Label == "" {
			theme.Label = theme.Name
		}
		for j, kw := range theme.Keywords {
			theme.Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	return &cat, nil
}

// Names lists the full theme names in catalogue order.
func (c *Catalogue) Names() []string {
	names := make([]string, 0, len(c.Themes))
	for _, theme := range c.Themes {
		names = append(names, theme.Name)
	}
	return names
}

// Theme looks up a theme by exact (case-insensitive) name.
func (c *Catalogue) Theme(name string) (Theme, bool) {
	for _, theme := range c.Themes {
		if strings.EqualFold(theme.Name, strings.TrimSpace(name)) {
			return theme, true
		}
	}
	return Theme{}, false
}

// Resolve maps a short or partial pillar label onto the first full theme name
// containing it, ignoring case. Unmatched values are returned unchanged.
func (c *Catalogue) Resolve(pillar string) string {
	needle := strings.ToLower(strings.TrimSpace(pillar))
	if needle == "" {
		return pillar
	}
	for _, theme := range c.Themes {
		if strings.Contains(strings.ToLower(theme.Name), needle) {
			return theme.Name
		}
	}
	return pillar
}

// FirstSubTheme returns the first sub-theme of the named theme, or "".
func (c *Catalogue) FirstSubTheme(name string) string {
	theme, ok := c.Theme(name)
	if !ok || len(theme.SubThemes) == 0 {
		return ""
	}
	return theme.SubThemes[0]
}

// Score counts keyword hits in text per theme and returns the best score with
// its theme name. Ties go to the earlier theme; no hits yields (0, "").
func (c *Catalogue) Score(text string) (float64, string) {
	lowered := strings.ToLower(text)
	best := 0
	bestName := ""
	for _, theme := range c.Themes {
		hits := 0
		for _, kw := range theme.Keywords {
			if kw != "" && strings.Contains(lowered, kw) {
				hits++
			}
		}
		if hits > best {
			best = hits
			bestName = theme.Name
		}
	}
	return float64(best), bestName
}

// DisplayName title-cases a pillar or sub-theme label for operator output.
func DisplayName(label string) string {
	// Casers carry state and are not shared.
	return cases.Title(language.English).String(strings.TrimSpace(label))
}
