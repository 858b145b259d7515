package route

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrUnknownActivity = errors.New("unknown activity")

// Activity is one entry of the application menu.
type Activity struct {
	Name        string `json:"name" yaml:"name"`
	Slug        string `json:"slug" yaml:"slug"`
	Description string `json:"description" yaml:"description"`
	Page        string `json:"page" yaml:"page"`
}

var registry = []Activity{
	{Name: "Survey", Slug: "survey", Description: "Import stations and media for a survey", Page: "/survey"},
	{Name: "Station preprocessing", Slug: "prep-station", Description: "Convert videos and extract frames", Page: "/prep-station"},
	{Name: "Benthic interpretation", Slug: "benthic-interpretation", Description: "Annotate frames with substrates and taxa", Page: "/benthic-interpretation"},
	{Name: "Underwater interpretation", Slug: "underwater-interpretation", Description: "Review photos of a station", Page: "/underwater-interpretation"},
	{Name: "Database admin", Slug: "db-admin", Description: "Manage users and tables", Page: "/db-admin"},
}

// Activities returns the full registry in menu order.
func Activities() []Activity {
	return append([]Activity(nil), registry...)
}

// LoadActivities reads the services file, a YAML list of {name, description}
// entries, and returns the enabled activities in file order. A missing file
// enables every activity. Descriptions in the file override the defaults.
func LoadActivities(path string) ([]Activity, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Activities(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read services file: %w", err)
	}

	var entries []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
	}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse services file %s: %w", path, err)
	}
	if len(entries) == 0 {
		return Activities(), nil
	}

	enabled := make([]Activity, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		a, ok := lookup(entry.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownActivity, entry.Name)
		}
		if seen[a.Slug] {
			continue
		}
		seen[a.Slug] = true
		if entry.Description != "" {
			a.Description = entry.Description
		}
		enabled = append(enabled, a)
	}
	return enabled, nil
}

// lookup matches by name or slug.
func lookup(name string) (Activity, bool) {
	for _, a := range registry {
		if a.Name == name || a.Slug == name {
			return a, true
		}
	}
	return Activity{}, false
}
