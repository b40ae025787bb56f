package styles

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/lyricslide/internal/models"
	"github.com/desertthunder/lyricslide/internal/shared"
	"golang.org/x/text/cases"
)

//go:embed templates.toml
var defaultTemplates string

// Catalog is an immutable, ordered list of slide templates.
type Catalog struct {
	templates []models.SlideTemplate
}

type catalogFile struct {
	Templates []models.SlideTemplate `toml:"template"`
}

// DefaultCatalog parses the built-in templates.
func DefaultCatalog() (*Catalog, error) {
	return parseCatalog(defaultTemplates)
}

// LoadCatalog reads templates from a TOML file using the same layout as the
// built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template catalog: %w", err)
	}
	return parseCatalog(string(data))
}

func parseCatalog(data string) (*Catalog, error) {
	var file catalogFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, fmt.Errorf("%w: template catalog: %v", shared.ErrInvalidConfig, err)
	}

	for i, tmpl := range file.Templates {
		if strings.TrimSpace(tmpl.Name) == "" {
			return nil, fmt.Errorf("%w: template %d has no name", shared.ErrInvalidConfig, i)
		}
		if tmpl.FontSize <= 0 {
			return nil, fmt.Errorf("%w: template %q has invalid font size %d", shared.ErrInvalidConfig, tmpl.Name, tmpl.FontSize)
		}
		transition, err := models.ParseTransition(string(tmpl.Transition))
		if err != nil {
			return nil, fmt.Errorf("%w: template %q: %v", shared.ErrInvalidConfig, tmpl.Name, err)
		}
		file.Templates[i].Transition = transition
	}

	return &Catalog{templates: file.Templates}, nil
}

// All returns a copy of every template in catalog order.
func (c *Catalog) All() []models.SlideTemplate {
	return append([]models.SlideTemplate(nil), c.templates...)
}

// Find returns the template whose name matches case-insensitively.
func (c *Catalog) Find(name string) (models.SlideTemplate, error) {
	key := fold(strings.TrimSpace(name))
	for _, tmpl := range c.templates {
		if fold(tmpl.Name) == key {
			return tmpl, nil
		}
	}
	return models.SlideTemplate{}, fmt.Errorf("%w: %s", shared.ErrTemplateNotFound, name)
}

// Search returns templates whose name contains query, ignoring case. An
// empty query returns the full catalog.
func (c *Catalog) Search(query string) []models.SlideTemplate {
	query = fold(strings.TrimSpace(query))
	if query == "" {
		return c.All()
	}

	var matches []models.SlideTemplate
	for _, tmpl := range c.templates {
		if strings.Contains(fold(tmpl.Name), query) {
			matches = append(matches, tmpl)
		}
	}
	return matches
}

// fold builds a fresh Caser per call; Casers carry state and are not safe to
// share between goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}
