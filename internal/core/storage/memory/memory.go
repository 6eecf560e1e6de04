package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"gopkg.in/yaml.v3"
)

// Store is an in-memory implementation of storage.CollectionStore and
// storage.DirectoryStore. Useful for testing and development.
type Store struct {
	mu       sync.RWMutex
	events   map[storage.SlotKey]*v1.CollectionEvent
	parties  map[v1.DirectoryKind]map[string]v1.Party
	revision int64
}

// Seed is the on-disk YAML shape for preloading the directory.
type Seed struct {
	Producers  []v1.Party `yaml:"producers"`
	Collectors []v1.Party `yaml:"collectors"`
}

// New creates an empty store.
func New() *Store {
	return &Store{
		events: make(map[storage.SlotKey]*v1.CollectionEvent),
		parties: map[v1.DirectoryKind]map[string]v1.Party{
			v1.KindProducers:  {},
			v1.KindCollectors: {},
		},
	}
}

// LoadSeedFile reads producers and collectors from a YAML file into s.
func (s *Store) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	for _, p := range seed.Producers {
		if p.ID == "" {
			return fmt.Errorf("seed file %s: producer without id", path)
		}
		s.PutParty(v1.KindProducers, p)
	}
	for _, c := range seed.Collectors {
		if c.ID == "" {
			return fmt.Errorf("seed file %s: collector without id", path)
		}
		s.PutParty(v1.KindCollectors, c)
	}
	return nil
}

// PutParty adds or replaces a directory row.
func (s *Store) PutParty(kind v1.DirectoryKind, p v1.Party) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties[kind][p.ID] = p
}

// RemoveParty deletes a directory row. Events already recorded are kept.
func (s *Store) RemoveParty(kind v1.DirectoryKind, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.parties[kind], id)
}

func (s *Store) ProducerExists(_ context.Context, producerID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.parties[v1.KindProducers][producerID]
	return ok, nil
}

func (s *Store) FindSlotEvent(_ context.Context, key storage.SlotKey) (*v1.CollectionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evt, ok := s.events[normalizeKey(key)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copy := *evt
	return &copy, nil
}

func (s *Store) InsertEvent(_ context.Context, event *v1.CollectionEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeKey(storage.SlotKey{ProducerID: event.ProducerID, Slot: event.Slot, Day: event.Day})
	if _, exists := s.events[key]; exists {
		return storage.ErrDuplicate
	}

	s.revision++
	event.Revision = s.revision

	// Store a copy to prevent external modification
	copy := *event
	s.events[key] = &copy
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, event *v1.CollectionEvent, expectedRevision int64) error {
	if err := event.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeKey(storage.SlotKey{ProducerID: event.ProducerID, Slot: event.Slot, Day: event.Day})
	current, exists := s.events[key]
	if !exists || current.Revision != expectedRevision {
		return storage.ErrRevisionConflict
	}

	s.revision++
	event.Revision = s.revision

	current.CollectorID = event.CollectorID
	current.Quantity = event.Quantity
	current.Timestamp = event.Timestamp
	current.UpdateCount = event.UpdateCount
	current.UpdatedAt = event.UpdatedAt
	current.Revision = event.Revision
	return nil
}

func (s *Store) ListEvents(_ context.Context, filter storage.EventFilter) ([]*v1.CollectionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*v1.CollectionEvent
	for _, evt := range s.events {
		if !filter.Matches(evt) {
			continue
		}
		copy := *evt
		out = append(out, &copy)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Revision < out[j].Revision
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *Store) MaxRevision(_ context.Context, filter storage.EventFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for _, evt := range s.events {
		if filter.Matches(evt) && evt.Revision > max {
			max = evt.Revision
		}
	}
	return max, nil
}

func (s *Store) ListDirectory(_ context.Context, q storage.DirectoryQuery) (v1.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.parties[q.Kind]
	if !ok {
		return v1.Page{}, fmt.Errorf("unknown directory kind %q", q.Kind)
	}

	needle := strings.ToLower(strings.TrimSpace(q.Filter))
	matched := make([]v1.Party, 0, len(rows))
	for _, p := range rows {
		if needle == "" || partyMatches(p, needle) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name == matched[j].Name {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].Name < matched[j].Name
	})

	page := v1.Page{Items: []v1.Party{}, TotalCount: len(matched)}
	from := q.Page * q.PageSize
	if from >= len(matched) {
		return page, nil
	}
	to := from + q.PageSize
	if to > len(matched) {
		to = len(matched)
	}
	page.Items = append(page.Items, matched[from:to]...)
	return page, nil
}

func partyMatches(p v1.Party, needle string) bool {
	for _, field := range []string{p.ID, p.Name, p.Phone, p.Location} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// normalizeKey strips the monotonic clock and zone so equal days compare equal as map keys.
func normalizeKey(k storage.SlotKey) storage.SlotKey {
	k.Day = k.Day.UTC().Round(0)
	return k
}
