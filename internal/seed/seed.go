// Package seed loads YAML fixtures of events, follows and sources into the store.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"eventfeed/internal/model"
)

// Fixture is the top-level document of a seed file.
type Fixture struct {
	Events  []Event  `yaml:"events"`
	Follows []Follow `yaml:"follows"`
	Sources []Source `yaml:"sources"`
}

// Event is an event entry. Dates are either absolute or relative to the
// seeding day: "today", "+3d", "-1d".
type Event struct {
	ID          string     `yaml:"id"`
	Owner       string     `yaml:"owner"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Category    string     `yaml:"category"`
	Subcategory string     `yaml:"subcategory"`
	Region      string     `yaml:"region"`
	Type        string     `yaml:"type"`
	StartDate   string     `yaml:"start_date"`
	StartTime   string     `yaml:"start_time"`
	EndDate     string     `yaml:"end_date"`
	EndTime     string     `yaml:"end_time"`
	Payment     string     `yaml:"payment"`
	Document    string     `yaml:"document"`
	Visibility  string     `yaml:"visibility"`
	Published   *bool      `yaml:"published"` // default true
	Deactivated bool       `yaml:"deactivated"`
	CreatedAt   *time.Time `yaml:"created_at"`
}

// Follow is a follower/organiser pair.
type Follow struct {
	Follower  string `yaml:"follower"`
	Organiser string `yaml:"organiser"`
}

// Source is an organiser feed to import from.
type Source struct {
	Owner    string `yaml:"owner"`
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Interval int    `yaml:"interval_minutes"` // default 60
	Inactive bool   `yaml:"inactive"`
}

// Store is the part of the storage layer seeding writes to.
type Store interface {
	UpsertEvent(ctx context.Context, e *model.EventRecord) error
	Follow(ctx context.Context, followerID, organiserID string) error
	CreateSource(ctx context.Context, src *model.Source) error
	ListSources(ctx context.Context, ownerID string) ([]model.Source, error)
}

// Result counts what Apply wrote.
type Result struct {
	Events  int
	Follows int
	Sources int
}

// Parse decodes a fixture. Unknown keys are rejected.
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return &f, nil
}

// LoadFile reads and decodes the fixture at path.
func LoadFile(path string) (*Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(b))
}

// Records converts the fixture events, resolving relative dates against now.
func (f *Fixture) Records(now time.Time) ([]model.EventRecord, error) {
	out := make([]model.EventRecord, 0, len(f.Events))
	for i, ev := range f.Events {
		if strings.TrimSpace(ev.Name) == "" {
			return nil, fmt.Errorf("event %d: name is required", i)
		}
		start, err := resolveDate(ev.StartDate, now)
		if err != nil {
			return nil, fmt.Errorf("event %q: start_date: %w", ev.Name, err)
		}
		end, err := resolveDate(ev.EndDate, now)
		if err != nil {
			return nil, fmt.Errorf("event %q: end_date: %w", ev.Name, err)
		}

		rec := model.EventRecord{
			ID:          ev.ID,
			OwnerID:     ev.Owner,
			Name:        ev.Name,
			Description: ev.Description,
			Category:    ev.Category,
			Subcategory: ev.Subcategory,
			Region:      ev.Region,
			Type:        model.EventType(strings.ToLower(ev.Type)),
			StartDate:   start,
			StartTime:   ev.StartTime,
			EndDate:     end,
			EndTime:     ev.EndTime,
			Payment:     model.Payment(ev.Payment),
			Document:    model.DocumentType(ev.Document),
			Visibility:  model.Visibility(ev.Visibility),
			Published:   ev.Published == nil || *ev.Published,
			Deactivated: ev.Deactivated,
			CreatedAt:   ev.CreatedAt,
		}
		if rec.Type == "" {
			rec.Type = model.TypeOther
		}
		if rec.Visibility == "" {
			rec.Visibility = model.VisibilityPublic
		}
		out = append(out, rec)
	}
	return out, nil
}

// Apply writes the fixture to store. Events are upserted by id, follows are
// idempotent and sources already registered for the owner with the same URL
// are skipped, so a fixture can be applied repeatedly.
func Apply(ctx context.Context, store Store, f *Fixture, now time.Time) (Result, error) {
	var res Result

	records, err := f.Records(now)
	if err != nil {
		return res, err
	}
	for i := range records {
		if err := store.UpsertEvent(ctx, &records[i]); err != nil {
			return res, fmt.Errorf("upsert event %q: %w", records[i].Name, err)
		}
		res.Events++
	}

	for _, fl := range f.Follows {
		if fl.Follower == "" || fl.Organiser == "" {
			return res, errors.New("follow needs both follower and organiser")
		}
		if err := store.Follow(ctx, fl.Follower, fl.Organiser); err != nil {
			return res, fmt.Errorf("follow %s -> %s: %w", fl.Follower, fl.Organiser, err)
		}
		res.Follows++
	}

	for _, s := range f.Sources {
		added, err := addSource(ctx, store, s)
		if err != nil {
			return res, err
		}
		if added {
			res.Sources++
		}
	}
	return res, nil
}

func addSource(ctx context.Context, store Store, s Source) (bool, error) {
	existing, err := store.ListSources(ctx, s.Owner)
	if err != nil {
		return false, fmt.Errorf("list sources of %s: %w", s.Owner, err)
	}
	for _, e := range existing {
		if e.URL == s.URL {
			return false, nil
		}
	}

	src := model.Source{
		OwnerID:         s.Owner,
		Name:            s.Name,
		URL:             s.URL,
		IntervalMinutes: s.Interval,
		IsActive:        !s.Inactive,
	}
	if src.IntervalMinutes <= 0 {
		src.IntervalMinutes = 60
	}
	if src.Name == "" {
		src.Name = s.URL
	}
	if err := store.CreateSource(ctx, &src); err != nil {
		return false, fmt.Errorf("create source %s: %w", s.URL, err)
	}
	return true, nil
}

var relativeDate = regexp.MustCompile(`^([+-]\d+)d$`)

func resolveDate(s string, now time.Time) (string, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return "", nil
	case s == "today":
		return now.Format("2006-01-02"), nil
	case relativeDate.MatchString(s):
		days, err := strconv.Atoi(relativeDate.FindStringSubmatch(s)[1])
		if err != nil {
			return "", err
		}
		return now.AddDate(0, 0, days).Format("2006-01-02"), nil
	}
	if _, ok := model.ParseDate(s); !ok {
		return "", fmt.Errorf("unrecognised date %q", s)
	}
	return s, nil
}
