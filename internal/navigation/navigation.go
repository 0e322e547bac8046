// Package navigation describes the dashboard sidebar
package navigation

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sidebar.yaml
var sidebarYAML []byte

// Item is a link in the sidebar
type Item struct {
	Title  string `yaml:"title"`
	URL    string `yaml:"url"`
	Items  []Item `yaml:"items,omitempty"`
	Active bool   `yaml:"-"`
}

// Card is a summary tile on the dashboard
type Card struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Value       string `yaml:"value"`
	Note        string `yaml:"note"`
}

// Tree is the whole sidebar
type Tree struct {
	Title     string `yaml:"title"`
	Main      []Item `yaml:"main"`
	Projects  []Item `yaml:"projects"`
	Secondary []Item `yaml:"secondary"`
	Cards     []Card `yaml:"cards"`
}

// Load parses the built-in sidebar
func Load() (*Tree, error) {
	return Parse(sidebarYAML)
}

// Parse parses a sidebar definition
func Parse(data []byte) (*Tree, error) {
	var tree Tree
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to parse navigation: %w", err)
	}
	if len(tree.Main) == 0 {
		return nil, fmt.Errorf("navigation has no main sections")
	}
	for _, item := range tree.all() {
		if !strings.HasPrefix(item.URL, "/") {
			return nil, fmt.Errorf("navigation item %q has relative url %q", item.Title, item.URL)
		}
	}
	return &tree, nil
}

// Active returns a copy of the tree with the items matching path marked.
// A section is active when path is inside it; a leaf only on exact match.
func (t *Tree) Active(path string) *Tree {
	out := *t
	out.Main = markSections(t.Main, path)
	out.Projects = markLeaves(t.Projects, path)
	out.Secondary = markLeaves(t.Secondary, path)
	return &out
}

// Find returns the deepest item whose url is path
func (t *Tree) Find(path string) (Item, bool) {
	for _, item := range t.all() {
		if item.URL == path {
			return item, true
		}
	}
	return Item{}, false
}

func (t *Tree) all() []Item {
	var out []Item
	for _, section := range t.Main {
		out = append(out, section.Items...)
		out = append(out, section)
	}
	out = append(out, t.Projects...)
	out = append(out, t.Secondary...)
	return out
}

// markSections marks the section with the longest url containing path
func markSections(sections []Item, path string) []Item {
	best, bestLen := -1, 0
	for i, section := range sections {
		if within(path, section.URL) && len(section.URL) > bestLen {
			best, bestLen = i, len(section.URL)
		}
	}

	out := make([]Item, len(sections))
	for i, section := range sections {
		section.Items = markLeaves(section.Items, path)
		section.Active = i == best
		out[i] = section
	}
	return out
}

func markLeaves(items []Item, path string) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		item.Active = item.URL == path
		out[i] = item
	}
	return out
}

// within reports whether path is base or below it
func within(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+"/")
}
