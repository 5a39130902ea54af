// Package navigation composes the console's navigation tree for a studio role.
package navigation

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/jrsteele09/studio-gateway/internal/utils"
	"github.com/jrsteele09/studio-gateway/users"
	"gopkg.in/yaml.v3"
)

// NavItem is one navigation section or sub-link.
type NavItem struct {
	Label    string    `yaml:"label" json:"label"`
	Path     string    `yaml:"path" json:"path"`
	Icon     string    `yaml:"icon,omitempty" json:"icon,omitempty"`
	Children []NavItem `yaml:"children,omitempty" json:"children,omitempty"`
}

//go:embed navigation.yaml
var definitionYAML []byte

// Tree maps every role to its navigation sections.
type Tree struct {
	Default []NavItem                    `yaml:"default"`
	Roles   map[users.RoleType][]NavItem `yaml:"roles"`
}

var defaultTree = mustLoad(definitionYAML)

func mustLoad(data []byte) *Tree {
	t, err := Load(data)
	if err != nil {
		panic("navigation: " + err.Error())
	}
	return t
}

// Load parses and validates a navigation definition. Every defined role and the default must
// have at least one section and every path must be absolute.
func Load(data []byte) (*Tree, error) {
	var t Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse navigation definition: %w", err)
	}
	if err := validateItems("default", t.Default); err != nil {
		return nil, err
	}
	for _, role := range users.Roles {
		if err := validateItems(string(role), t.Roles[role]); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func validateItems(name string, items []NavItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%s has no navigation sections", name)
	}
	for _, item := range items {
		if item.Label == "" {
			return fmt.Errorf("%s has a section without a label", name)
		}
		if !strings.HasPrefix(item.Path, "/") {
			return fmt.Errorf("%s: %q has a relative path %q", name, item.Label, item.Path)
		}
		if len(item.Children) > 0 {
			if err := validateItems(name+"/"+item.Label, item.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

// For returns the sections for role, or the default sections when role is nil or unknown.
// The result is a copy the caller may modify.
func (t *Tree) For(role *users.RoleType) []NavItem {
	if items, ok := t.Roles[utils.Value(role)]; ok && len(items) > 0 {
		return cloneItems(items)
	}
	return cloneItems(t.Default)
}

// For returns the built-in navigation for role.
func For(role *users.RoleType) []NavItem {
	return defaultTree.For(role)
}

func cloneItems(items []NavItem) []NavItem {
	if items == nil {
		return nil
	}
	out := make([]NavItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Children = cloneItems(item.Children)
	}
	return out
}
