// Clipvault - Gameplay Clip Catalog and Ingestion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/clipvault

// Package registry holds the read-only hero and tag lookup data used to
// validate incoming clips and to render hero names in query results.
//
// The registry is loaded once at startup, either from a YAML file or from
// the built-in default:
//
//	heroes:
//	  - id: 5
//	    name: "Crystal Maiden"
//	tags:
//	  - "team fight"
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/clipvault/internal/store"
)

//go:embed default.yaml
var defaultYAML []byte

// UnknownHeroName is rendered for hero ids missing from the registry.
const UnknownHeroName = "Unknown"

// ErrInvalidRegistry is returned when registry data fails validation.
var ErrInvalidRegistry = errors.New("invalid registry")

// Hero is one registry entry.
type Hero struct {
	ID   int    `koanf:"id" json:"id"`
	Name string `koanf:"name" json:"name"`
}

// Tag is a registered tag together with the form used in index keys.
type Tag struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type document struct {
	Heroes []Hero   `koanf:"heroes"`
	Tags   []string `koanf:"tags"`
}

// Registry is immutable after Load and safe for concurrent use.
type Registry struct {
	heroes    []Hero
	heroNames map[int]string
	tags      []Tag
	tagSlugs  map[string]string // slug -> registered name
	nameSlugs map[string]string // registered name -> slug
	source    string
}

// Load reads the registry from path, or the built-in default when path is
// empty.
func Load(path string) (*Registry, error) {
	k := koanf.New(".")

	source := path
	if path == "" {
		source = "built-in"
		if err := k.Load(rawbytes.Provider(defaultYAML), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load built-in registry: %w", err)
		}
	} else {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load registry %s: %w", path, err)
		}
	}

	var doc document
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("decode registry %s: %w", source, err)
	}

	r, err := build(doc)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", source, err)
	}
	r.source = source
	return r, nil
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("built-in registry is broken: %v", err))
	}
	return r
}

// New builds a registry from explicit values. Tests use it to keep fixtures
// small.
func New(heroes []Hero, tags []string) (*Registry, error) {
	return build(document{Heroes: heroes, Tags: tags})
}

func build(doc document) (*Registry, error) {
	r := &Registry{
		heroNames: make(map[int]string, len(doc.Heroes)),
		tagSlugs:  make(map[string]string, len(doc.Tags)),
		nameSlugs: make(map[string]string, len(doc.Tags)),
	}

	for _, h := range doc.Heroes {
		if h.ID <= 0 {
			return nil, fmt.Errorf("%w: hero id %d must be positive", ErrInvalidRegistry, h.ID)
		}
		name := strings.TrimSpace(h.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: hero %d has no name", ErrInvalidRegistry, h.ID)
		}
		if _, dup := r.heroNames[h.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate hero id %d", ErrInvalidRegistry, h.ID)
		}
		r.heroNames[h.ID] = name
		r.heroes = append(r.heroes, Hero{ID: h.ID, Name: name})
	}
	sort.Slice(r.heroes, func(i, j int) bool { return r.heroes[i].ID < r.heroes[j].ID })

	for _, raw := range doc.Tags {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("%w: empty tag", ErrInvalidRegistry)
		}
		slug := store.NormalizeTag(name)
		if prev, dup := r.tagSlugs[slug]; dup {
			return nil, fmt.Errorf("%w: tags %q and %q share index key %q", ErrInvalidRegistry, prev, name, slug)
		}
		r.tagSlugs[slug] = name
		r.nameSlugs[name] = slug
		r.tags = append(r.tags, Tag{Name: name, Slug: slug})
	}
	sort.Slice(r.tags, func(i, j int) bool { return r.tags[i].Slug < r.tags[j].Slug })

	return r, nil
}

// HeroName returns the display name for id, or UnknownHeroName.
func (r *Registry) HeroName(id int) string {
	if name, ok := r.heroNames[id]; ok {
		return name
	}
	return UnknownHeroName
}

// HasHero reports whether id is registered.
func (r *Registry) HasHero(id int) bool {
	_, ok := r.heroNames[id]
	return ok
}

// TagSlug returns the index key for tag. tag may be the display name
// ("smoke gank fail"), its index key ("smoke-gank fail") or either with
// surrounding whitespace; a display name wins over another tag's key.
// Unregistered tags yield the normalized trimmed input and false.
func (r *Registry) TagSlug(tag string) (string, bool) {
	trimmed := strings.TrimSpace(tag)
	if slug, ok := r.nameSlugs[trimmed]; ok {
		return slug, true
	}
	if _, ok := r.tagSlugs[trimmed]; ok {
		return trimmed, true
	}
	slug := store.NormalizeTag(trimmed)
	_, ok := r.tagSlugs[slug]
	return slug, ok
}

// CanonicalTag returns the registered display name and index key for tag.
func (r *Registry) CanonicalTag(tag string) (name, slug string, ok bool) {
	slug, ok = r.TagSlug(tag)
	if !ok {
		return "", "", false
	}
	return r.tagSlugs[slug], slug, true
}

// Heroes returns all heroes ordered by id.
func (r *Registry) Heroes() []Hero {
	out := make([]Hero, len(r.heroes))
	copy(out, r.heroes)
	return out
}

// Tags returns all tags ordered by slug.
func (r *Registry) Tags() []Tag {
	out := make([]Tag, len(r.tags))
	copy(out, r.tags)
	return out
}

// Source names where the registry was loaded from.
func (r *Registry) Source() string {
	return r.source
}
