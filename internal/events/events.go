// Package events holds the catalog of partner events and decides which
// scan flow an event uses.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"shollu-partner/internal/config"
	"shollu-partner/internal/shollu"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindPrayer Kind = "prayer-attendance"
	KindQuran  Kind = "quran-tracking"
)

func (k Kind) Valid() bool {
	return k == KindPrayer || k == KindQuran
}

var (
	ErrUnknownEvent = errors.New("unknown event")
	ErrInvalidKind  = errors.New("invalid event kind")
)

type Event struct {
	ID    int    `yaml:"id"`
	Label string `yaml:"label"`
	Kind  Kind   `yaml:"kind"`
}

// Quran reports whether scans for this event open the verse dialog
// instead of recording attendance.
func (e Event) Quran() bool {
	return e.Kind == KindQuran
}

func Defaults() []Event {
	return []Event{
		{ID: 1, Label: "Pejuang Quran", Kind: KindQuran},
		{ID: 3, Label: "Sholat Champions", Kind: KindPrayer},
	}
}

type catalogFile struct {
	Events []Event `yaml:"events"`
}

type Catalog struct {
	mu     sync.RWMutex
	events map[int]Event
	order  []int
}

func NewCatalog(list []Event) (*Catalog, error) {
	c := &Catalog{}
	if err := c.Replace(list); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile reads a catalog from YAML:
//
//	events:
//	  - {id: 3, label: Sholat Champions, kind: prayer-attendance}
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read event catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse event catalog: %w", err)
	}
	return NewCatalog(f.Events)
}

// Source is the backend endpoint publishing the event list.
type Source interface {
	Events(ctx context.Context) ([]shollu.RemoteEvent, error)
}

// Load builds the catalog described by cfg. With source "remote" the
// catalog is refreshed from src once; a failed refresh keeps the local list.
func Load(ctx context.Context, cfg config.Events, src Source) (*Catalog, error) {
	var (
		c   *Catalog
		err error
	)
	if cfg.CatalogFile != "" {
		c, err = LoadFile(cfg.CatalogFile)
	} else {
		c, err = NewCatalog(Defaults())
	}
	if err != nil {
		return nil, err
	}

	if cfg.Source == config.EventsRemote && src != nil {
		if err := c.Refresh(ctx, src); err != nil {
			slog.Warn("Keeping local event catalog", "error", err)
		}
	}
	return c, nil
}

// Replace swaps the whole catalog after validating every entry.
func (c *Catalog) Replace(list []Event) error {
	events := make(map[int]Event, len(list))
	order := make([]int, 0, len(list))
	for _, e := range list {
		if !e.Kind.Valid() {
			return fmt.Errorf("%w: event %d has kind %q", ErrInvalidKind, e.ID, e.Kind)
		}
		if _, dup := events[e.ID]; dup {
			return fmt.Errorf("duplicate event id %d", e.ID)
		}
		events[e.ID] = e
		order = append(order, e.ID)
	}

	c.mu.Lock()
	c.events = events
	c.order = order
	c.mu.Unlock()
	return nil
}

// Refresh replaces the catalog with the backend list. Entries with an
// unrecognised kind are skipped.
func (c *Catalog) Refresh(ctx context.Context, src Source) error {
	remote, err := src.Events(ctx)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	list := make([]Event, 0, len(remote))
	for _, r := range remote {
		e := Event{ID: r.ID, Label: r.Label, Kind: Kind(r.Kind)}
		if !e.Kind.Valid() {
			slog.Warn("Skipping event with unknown kind", "id", r.ID, "kind", r.Kind)
			continue
		}
		list = append(list, e)
	}
	if len(list) == 0 {
		return errors.New("backend published no usable events")
	}
	if err := c.Replace(list); err != nil {
		return err
	}
	slog.Info("Event catalog refreshed", "events", len(list))
	return nil
}

func (c *Catalog) Get(id int) (Event, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.events[id]
	if !ok {
		return Event{}, fmt.Errorf("%w: %d", ErrUnknownEvent, id)
	}
	return e, nil
}

// Lookup parses a form value and resolves it.
func (c *Catalog) Lookup(raw string) (Event, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, raw)
	}
	return c.Get(id)
}

func (c *Catalog) All() []Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Event, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.events[id])
	}
	return out
}

func (c *Catalog) Label(id int) string {
	if e, err := c.Get(id); err == nil {
		return e.Label
	}
	return fmt.Sprintf("Event ID: %d", id)
}

// Labels renders a list of event ids for display.
func (c *Catalog) Labels(ids []int) string {
	if len(ids) == 0 {
		return "Tidak ada event"
	}
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		labels = append(labels, c.Label(id))
	}
	return strings.Join(labels, ", ")
}
