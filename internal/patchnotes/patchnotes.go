// Package patchnotes serves release notes, either from a local YAML file
// (air-gapped deployments, pre-release drafting) or from the upstream
// repository's published releases.
package patchnotes

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nightfallstudio/bugboard/internal/upstream"
)

// Note is one released version's notes, newest first in listings.
type Note struct {
	Version string    `json:"version" yaml:"version"`
	Title   string    `json:"title" yaml:"title"`
	Date    time.Time `json:"date" yaml:"date"`
	Body    string    `json:"body" yaml:"body"`
	URL     string    `json:"url,omitempty" yaml:"url,omitempty"`
}

// Source resolves patch notes. When file is set it takes precedence over
// the upstream releases.
type Source struct {
	file string
	api  upstream.API
}

// NewSource creates a patch-notes source. file may be empty.
func NewSource(file string, api upstream.API) *Source {
	return &Source{file: file, api: api}
}

// Notes returns all release notes, newest first.
func (s *Source) Notes(ctx context.Context) ([]Note, error) {
	if s.file != "" {
		return s.loadFile()
	}

	releases, err := s.api.ListReleases(ctx)
	if err != nil {
		return nil, err
	}
	notes := make([]Note, 0, len(releases))
	for _, r := range releases {
		notes = append(notes, Note{
			Version: r.TagName,
			Title:   r.Name,
			Date:    r.PublishedAt,
			Body:    r.Body,
			URL:     r.URL,
		})
	}
	return notes, nil
}

// Latest returns the newest release note, or nil when none exist.
func (s *Source) Latest(ctx context.Context) (*Note, error) {
	if s.file != "" {
		notes, err := s.loadFile()
		if err != nil {
			return nil, err
		}
		if len(notes) == 0 {
			return nil, nil
		}
		return &notes[0], nil
	}

	releases, err := s.api.ListReleases(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range releases {
		if r.Prerelease {
			continue
		}
		return &Note{
			Version: r.TagName,
			Title:   r.Name,
			Date:    r.PublishedAt,
			Body:    r.Body,
			URL:     r.URL,
		}, nil
	}
	return nil, nil
}

func (s *Source) loadFile() ([]Note, error) {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return nil, fmt.Errorf("read patch notes file: %w", err)
	}
	var notes []Note
	if err := yaml.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("parse patch notes file: %w", err)
	}
	return notes, nil
}
