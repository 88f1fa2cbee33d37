package seed

import (
	"context"
	_ "embed"
	"fmt"

	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/validation"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed groups.yml
var builtInGroupsYAML []byte

// BuiltInGroup is a group every deployment starts with.
type BuiltInGroup struct {
	Title       string `yaml:"title"`
	Slug        string `yaml:"slug"`
	Description string `yaml:"description"`
}

type groupsFile struct {
	Groups []BuiltInGroup `yaml:"groups"`
}

// ParseGroups decodes a groups document and validates every slug.
func ParseGroups(raw []byte) ([]BuiltInGroup, error) {
	var doc groupsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse groups: %w", err)
	}
	seen := make(map[string]struct{}, len(doc.Groups))
	for _, g := range doc.Groups {
		if g.Title == "" {
			return nil, fmt.Errorf("group %q: title is required", g.Slug)
		}
		if err := validation.ValidateGroupSlug(g.Slug); err != nil {
			return nil, fmt.Errorf("group %q: %w", g.Slug, err)
		}
		if _, dup := seen[g.Slug]; dup {
			return nil, fmt.Errorf("group %q: duplicate slug", g.Slug)
		}
		seen[g.Slug] = struct{}{}
	}
	return doc.Groups, nil
}

// BuiltInGroups returns the embedded group list.
func BuiltInGroups() ([]BuiltInGroup, error) {
	return ParseGroups(builtInGroupsYAML)
}

// Groups creates the built-in groups that do not exist yet. Existing groups
// keep their current title and description.
func Groups(ctx context.Context, db *gorm.DB) ([]models.Group, error) {
	items, err := BuiltInGroups()
	if err != nil {
		return nil, err
	}
	repo := repository.NewGroupRepository(db)
	groups := make([]models.Group, 0, len(items))
	for _, item := range items {
		group := models.Group{Title: item.Title, Slug: item.Slug, Description: item.Description}
		if err := repo.EnsureBySlug(ctx, &group); err != nil {
			return nil, fmt.Errorf("seed built-in group %s: %w", item.Slug, err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}
