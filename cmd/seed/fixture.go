package main

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"travelguide.io/guestbook/internal/domain"
)

// Fixture is a YAML document of guestbook entries and their comments.
type Fixture struct {
	Entries []FixtureEntry `yaml:"entries"`
}

// FixtureAuthor becomes the submitting identity.
type FixtureAuthor struct {
	ID          string   `yaml:"id"`
	DisplayName string   `yaml:"display_name"`
	Roles       []string `yaml:"roles"`
	Permissions []string `yaml:"permissions"`
}

func (a FixtureAuthor) identity() domain.Identity {
	return domain.Identity{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		Roles:       a.Roles,
		Permissions: a.Permissions,
	}
}

// FixtureEntry is one top-level guestbook entry.
// Approve moves a pending entry to approved so its comments can attach.
type FixtureEntry struct {
	Ref      string           `yaml:"ref"`
	Listing  string           `yaml:"listing"`
	Author   FixtureAuthor    `yaml:"author"`
	Body     string           `yaml:"body"`
	Approve  bool             `yaml:"approve"`
	Comments []FixtureComment `yaml:"comments"`
}

// FixtureComment is a comment on the enclosing entry.
type FixtureComment struct {
	Author FixtureAuthor `yaml:"author"`
	Body   string        `yaml:"body"`
}

// LoadFixture reads and checks a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes a fixture. Unknown keys are rejected.
func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	refs := make(map[string]struct{}, len(fx.Entries))
	for i, e := range fx.Entries {
		if e.Ref == "" {
			return nil, fmt.Errorf("entries[%d]: ref is required", i)
		}
		if _, dup := refs[e.Ref]; dup {
			return nil, fmt.Errorf("entries[%d]: duplicate ref %q", i, e.Ref)
		}
		refs[e.Ref] = struct{}{}
		if e.Author.ID == "" {
			return nil, fmt.Errorf("entries[%d]: author.id is required", i)
		}
		for j, c := range e.Comments {
			if c.Author.ID == "" {
				return nil, fmt.Errorf("entries[%d].comments[%d]: author.id is required", i, j)
			}
		}
	}
	return &fx, nil
}
