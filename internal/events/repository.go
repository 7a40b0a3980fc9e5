package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/models"
	"github.com/comunidad-app/backend/pkg/kvstore"
)

// StorageKey is the key holding the JSON array of all events.
const StorageKey = "@eventos"

// ErrCorruptData is returned when the stored collection is not a valid JSON array of events.
var ErrCorruptData = errors.New("corrupt event data")

// Listener is notified after every successful write, while the write lock is still held.
// Implementations must not block or call back into the Repository.
type Listener interface {
	OnEventChange(ctx context.Context, change models.EventChange)
}

// Option configures a Repository.
type Option func(*Repository)

// WithIDGenerator overrides the event id generator (default: random UUID).
func WithIDGenerator(fn func() string) Option {
	return func(r *Repository) { r.newID = fn }
}

// WithListener registers a change listener.
func WithListener(l Listener) Option {
	return func(r *Repository) { r.listeners = append(r.listeners, l) }
}

// Repository owns the event collection stored as one document in a key-value store.
// Every mutation reads the whole collection, changes it and writes it back; mutations are
// serialized within the process.
type Repository struct {
	store     kvstore.Store
	logger    *zap.Logger
	newID     func() string
	mu        sync.Mutex
	listeners []Listener
}

// NewRepository creates an event repository over store.
func NewRepository(store kvstore.Store, logger *zap.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{
		store:  store,
		logger: logger,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddListener registers l after construction (e.g. once the realtime hub exists).
func (r *Repository) AddListener(l Listener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// List returns all events in insertion order. An absent key yields an empty slice.
func (r *Repository) List(ctx context.Context) ([]models.Event, error) {
	return r.load(ctx)
}

// GetByID returns the event with id, or nil if there is none.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	list, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(list, id); i >= 0 {
		e := list[i]
		return &e, nil
	}
	return nil, nil
}

// Create appends a new event with a fresh id and an empty roster and comment thread.
func (r *Repository) Create(ctx context.Context, fields models.EventFields) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	e := models.Event{
		ID:          r.uniqueID(list),
		Name:        fields.Name,
		Description: fields.Description,
		Category:    fields.Category,
		Date:        fields.Date,
		Time:        fields.Time,
		Location:    fields.Location,
		Attendees:   []models.Attendance{},
		Comments:    []models.Comment{},
	}
	list = append(list, e)
	if err := r.save(ctx, list); err != nil {
		return nil, err
	}
	r.logger.Info("event created", zap.String("event_id", e.ID), zap.String("name", e.Name))
	r.notify(ctx, models.EventChange{Op: models.ChangeCreated, EventID: e.ID, Event: cloneRef(e)})
	return &e, nil
}

// Update merges patch over the event with id. It returns nil if the event does not exist.
// The id is never changed; attendees and comments change only if the patch includes them.
func (r *Repository) Update(ctx context.Context, id string, patch models.EventPatch) (*models.Event, error) {
	return r.Mutate(ctx, id, func(e *models.Event) bool {
		patch.Apply(e)
		return true
	})
}

// Mutate runs fn on the event with id inside the read-modify-write cycle and persists the
// result. If the event is missing or fn returns false, nothing is written and nil is returned.
func (r *Repository) Mutate(ctx context.Context, id string, fn func(e *models.Event) bool) (*models.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(list, id)
	if i < 0 {
		return nil, nil
	}
	e := list[i].Clone()
	if !fn(&e) {
		return nil, nil
	}
	e.ID = list[i].ID
	list[i] = e
	if err := r.save(ctx, list); err != nil {
		return nil, err
	}
	r.notify(ctx, models.EventChange{Op: models.ChangeUpdated, EventID: e.ID, Event: cloneRef(e)})
	return &e, nil
}

// Delete removes the event with id. Unknown ids are not an error.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list, err := r.load(ctx)
	if err != nil {
		return err
	}
	kept := list[:0]
	removed := false
	for _, e := range list {
		if e.ID == id {
			removed = true
			continue
		}
		kept = append(kept, e)
	}
	if err := r.save(ctx, kept); err != nil {
		return err
	}
	if removed {
		r.logger.Info("event deleted", zap.String("event_id", id))
		r.notify(ctx, models.EventChange{Op: models.ChangeDeleted, EventID: id})
	}
	return nil
}

// Clear removes the whole collection.
func (r *Repository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Remove(ctx, StorageKey); err != nil {
		return fmt.Errorf("remove events: %w", err)
	}
	r.logger.Warn("event collection cleared")
	r.notify(ctx, models.EventChange{Op: models.ChangeCleared})
	return nil
}

// Replace overwrites the collection with list.
func (r *Repository) Replace(ctx context.Context, list []models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if list == nil {
		list = []models.Event{}
	}
	if err := r.save(ctx, list); err != nil {
		return err
	}
	r.logger.Info("event collection replaced", zap.Int("events", len(list)))
	r.notify(ctx, models.EventChange{Op: models.ChangeReplaced})
	return nil
}

// Decode parses a stored collection. It is exported for snapshot restore.
func Decode(raw []byte) ([]models.Event, error) {
	var list []models.Event
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if list == nil {
		list = []models.Event{}
	}
	return list, nil
}

func (r *Repository) load(ctx context.Context) ([]models.Event, error) {
	raw, ok, err := r.store.Get(ctx, StorageKey)
	if err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []models.Event{}, nil
	}
	list, err := Decode(raw)
	if err != nil {
		r.logger.Error("stored events are corrupt", zap.Error(err), zap.Int("bytes", len(raw)))
		return nil, err
	}
	return list, nil
}

func (r *Repository) save(ctx context.Context, list []models.Event) error {
	for i := range list {
		if list[i].Attendees == nil {
			list[i].Attendees = []models.Attendance{}
		}
		if list[i].Comments == nil {
			list[i].Comments = []models.Comment{}
		}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	if err := r.store.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("write events: %w", err)
	}
	return nil
}

func (r *Repository) uniqueID(list []models.Event) string {
	for {
		id := r.newID()
		if indexOf(list, id) < 0 {
			return id
		}
		r.logger.Warn("generated event id collides, retrying", zap.String("event_id", id))
	}
}

func (r *Repository) notify(ctx context.Context, change models.EventChange) {
	for _, l := range r.listeners {
		l.OnEventChange(ctx, change)
	}
}

func indexOf(list []models.Event, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneRef(e models.Event) *models.Event {
	c := e.Clone()
	return &c
}
