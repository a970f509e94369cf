package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/capture"
	"handover/src/pkg/compress"
	"handover/src/pkg/layout"
	"handover/src/pkg/pipeline"
)

/*
Draft is a handover being recorded: the report entered by staff and the
processed photos in capture order. All access goes through its mutex.
*/
type Draft struct {
	mu        sync.Mutex
	id        string
	report    layout.Report
	slots     pipeline.Slots
	sources   []capture.Source
	createdAt time.Time
	updatedAt time.Time
}

// PhotoView is the JSON description of one slot, without the image bytes.
type PhotoView struct {
	Slot         int            `json:"slot"`
	Source       capture.Source `json:"source"`
	MimeType     string         `json:"mime_type"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	Size         int            `json:"size"`
	Quality      int            `json:"quality"`
	Attempts     int            `json:"attempts"`
	WithinBudget bool           `json:"within_budget"`
	Passthrough  bool           `json:"passthrough"`
	Extra        bool           `json:"extra"`
}

// DraftView is the JSON form of a Draft.
type DraftView struct {
	ID              string        `json:"id"`
	Report          layout.Report `json:"report"`
	Photos          []PhotoView   `json:"photos"`
	PhotoCount      int           `json:"photo_count"`
	PrimaryComplete bool          `json:"primary_complete"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (d *Draft) ID() string { return d.id }

// AppendPhoto stores photo in the next slot and returns the slot index.
func (d *Draft) AppendPhoto(photo compress.EncodedImage, source capture.Source) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sources = append(d.sources, source)
	d.updatedAt = time.Now()
	return d.slots.Append(photo)
}

// ReplacePhoto overwrites one slot in place.
func (d *Draft) ReplacePhoto(slot int, photo compress.EncodedImage, source capture.Source) (e *xerr.Error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e = d.slots.Replace(slot, photo)
	if e != nil {
		return e
	}
	d.sources[slot] = source
	d.updatedAt = time.Now()
	return nil
}

// Layout builds the declaration sheet from the current state.
func (d *Draft) Layout() layout.PageLayout {
	d.mu.Lock()
	defer d.mu.Unlock()
	return layout.Build(d.report, d.slots.Photos())
}

func (d *Draft) View() DraftView {
	d.mu.Lock()
	defer d.mu.Unlock()

	view := DraftView{
		ID:              d.id,
		Report:          d.report,
		Photos:          []PhotoView{},
		PhotoCount:      d.slots.Len(),
		PrimaryComplete: d.slots.PrimaryComplete(),
		CreatedAt:       d.createdAt,
		UpdatedAt:       d.updatedAt,
	}
	for i, photo := range d.slots.Photos() {
		view.Photos = append(view.Photos, photoView(i, photo, d.sources[i]))
	}
	return view
}

func photoView(slot int, photo compress.EncodedImage, source capture.Source) PhotoView {
	return PhotoView{
		Slot:         slot,
		Source:       source,
		MimeType:     photo.MimeType,
		Width:        photo.Width,
		Height:       photo.Height,
		Size:         photo.Size,
		Quality:      photo.Quality,
		Attempts:     photo.Attempts,
		WithinBudget: photo.WithinBudget,
		Passthrough:  photo.Passthrough,
		Extra:        slot >= layout.PrimaryGridSize,
	}
}

// Store keeps drafts in memory, keyed by uuid.
type Store struct {
	mu     sync.RWMutex
	drafts map[string]*Draft
}

func NewStore() *Store {
	return &Store{drafts: make(map[string]*Draft)}
}

func (s *Store) Create(report layout.Report) *Draft {
	now := time.Now()
	draft := &Draft{
		id:        uuid.NewString(),
		report:    report,
		createdAt: now,
		updatedAt: now,
	}
	s.mu.Lock()
	s.drafts[draft.id] = draft
	s.mu.Unlock()
	return draft
}

func (s *Store) Get(id string) (*Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	draft, ok := s.drafts[id]
	return draft, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}
