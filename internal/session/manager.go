// Package session hosts one pain map and one annotation board per open
// patient workspace and wires their change callbacks to persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/biomech-visualizer/backend/internal/annotation"
	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/painmap"
	"github.com/biomech-visualizer/backend/internal/storage"
)

// DefaultMaxSessions limits concurrent workspaces.
const DefaultMaxSessions = 50

// SessionKeepAliveWindow is how long a recently touched workspace is
// protected from cleanup.
const SessionKeepAliveWindow = 5 * time.Minute

// ErrSessionNotFound is returned for unknown or expired workspace ids.
var ErrSessionNotFound = errors.New("session not found")

// Workspace is one open patient session. Callers must hold the workspace
// through Manager.With to mutate Points or Board.
type Workspace struct {
	mu           sync.Mutex
	id           string
	patientID    string
	imageID      string
	createdAt    time.Time
	lastAccessed time.Time

	Points *painmap.Store
	Board  *annotation.Board

	mgr *Manager
}

// Info returns the session summary.
func (w *Workspace) Info() models.Session {
	return models.Session{
		ID:              w.id,
		PatientID:       w.patientID,
		ReadOnly:        w.Points.ReadOnly(),
		ImageID:         w.imageID,
		CreatedAt:       w.createdAt,
		LastAccessed:    w.lastAccessed,
		PointCount:      len(w.Points.Points()),
		AnnotationCount: len(w.Board.State().Annotations),
	}
}

// ID returns the workspace id.
func (w *Workspace) ID() string { return w.id }

// ImageID returns the static image the board is drawn on, or "".
func (w *Workspace) ImageID() string { return w.imageID }

// SetImage switches the board to imageID, loading its saved annotations.
// An empty imageID detaches the image and restores the session's own board.
// The active tool carries over.
func (w *Workspace) SetImage(ctx context.Context, imageID string) error {
	owner := imageID
	if owner == "" {
		owner = w.id
	}
	var initial []models.Annotation
	if w.mgr.repo != nil {
		loaded, err := w.mgr.repo.LoadAnnotations(ctx, owner)
		if err != nil {
			return fmt.Errorf("loading annotations: %w", err)
		}
		initial = loaded
	}
	prev := w.Board.State()
	w.imageID = imageID
	w.Board = w.mgr.newBoard(w, initial)
	if prev.Tool != models.AnnotationNone {
		w.Board.SetTool(prev.Tool, prev.Color)
	}
	return nil
}

func (w *Workspace) annotationOwner() string {
	if w.imageID != "" {
		return w.imageID
	}
	return w.id
}

// Manager handles open workspaces.
type Manager struct {
	sessions    map[string]*Workspace
	mu          sync.RWMutex
	repo        storage.Repository
	regions     *painmap.RegionMap
	colors      map[models.AnnotationType]string
	maxSessions int
	saveTimeout time.Duration
	now         func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxSessions caps concurrent workspaces; the least recently used is evicted.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxSessions = n
		}
	}
}

// WithRegionMap sets the body region map used by every pain map.
func WithRegionMap(r *painmap.RegionMap) Option {
	return func(m *Manager) { m.regions = r }
}

// WithToolColors overrides annotation tool colors.
func WithToolColors(colors map[models.AnnotationType]string) Option {
	return func(m *Manager) { m.colors = colors }
}

// WithSaveTimeout bounds each persistence call.
func WithSaveTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.saveTimeout = d
		}
	}
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a manager persisting through repo. A nil repo keeps
// everything in memory.
func NewManager(repo storage.Repository, opts ...Option) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Workspace),
		repo:        repo,
		regions:     painmap.DefaultRegionMap(),
		maxSessions: DefaultMaxSessions,
		saveTimeout: 5 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create opens a workspace for patientID. When initial is nil the
// patient's saved points are loaded.
func (m *Manager) Create(ctx context.Context, patientID string, initial []models.PainPoint, readOnly bool) (models.Session, error) {
	if initial == nil && m.repo != nil {
		loaded, err := m.repo.LoadPoints(ctx, patientID)
		if err != nil {
			return models.Session{}, fmt.Errorf("loading points: %w", err)
		}
		initial = loaded
	}

	m.evictIfNeeded()

	id := uuid.New().String()
	now := m.now()
	w := &Workspace{
		id:           id,
		patientID:    patientID,
		createdAt:    now,
		lastAccessed: now,
		mgr:          m,
	}
	w.Points = painmap.NewStore(initial,
		painmap.WithReadOnly(readOnly),
		painmap.WithRegionMap(m.regions),
		painmap.WithOnChange(func(points []models.PainPoint) { m.savePoints(w, points) }),
		painmap.WithOnSelect(func(pointID string) {
			log.Debugf("[Session %s] Selected point %s", shortID(id), pointID)
		}),
	)
	w.Board = m.newBoard(w, nil)

	m.mu.Lock()
	m.sessions[id] = w
	m.mu.Unlock()

	log.Infof("[Session %s] Opened for patient %s (%d points, readOnly=%v)", shortID(id), patientID, len(initial), readOnly)
	return w.Info(), nil
}

func (m *Manager) newBoard(w *Workspace, initial []models.Annotation) *annotation.Board {
	opts := []annotation.Option{
		annotation.WithOnChange(func(list []models.Annotation) { m.saveAnnotations(w, list) }),
	}
	if m.colors != nil {
		opts = append(opts, annotation.WithColors(m.colors))
	}
	return annotation.NewBoard(initial, opts...)
}

// savePoints runs inside a store callback, so the workspace lock is held.
func (m *Manager) savePoints(w *Workspace, points []models.PainPoint) {
	if m.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
	defer cancel()
	if err := m.repo.SavePoints(ctx, w.patientID, points); err != nil {
		log.Errorf("[Session %s] Saving points failed: %v", shortID(w.id), err)
	}
}

func (m *Manager) saveAnnotations(w *Workspace, list []models.Annotation) {
	if m.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
	defer cancel()
	if err := m.repo.SaveAnnotations(ctx, w.annotationOwner(), list); err != nil {
		log.Errorf("[Session %s] Saving annotations failed: %v", shortID(w.id), err)
	}
}

// With runs fn holding the workspace lock and marks the workspace used.
func (m *Manager) With(id string, fn func(w *Workspace) error) error {
	m.mu.RLock()
	w, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastAccessed = m.now()
	return fn(w)
}

// GetSession returns the summary of a workspace.
func (m *Manager) GetSession(id string) (models.Session, bool) {
	var info models.Session
	err := m.With(id, func(w *Workspace) error {
		info = w.Info()
		return nil
	})
	return info, err == nil
}

// TouchSession updates the LastAccessed timestamp of a workspace.
func (m *Manager) TouchSession(id string) bool {
	return m.With(id, func(*Workspace) error { return nil }) == nil
}

// Delete closes a workspace. Persisted data is kept.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(m.sessions, id)
	log.Infof("[Session %s] Closed", shortID(id))
	return nil
}

// List returns every open workspace, most recently used first.
func (m *Manager) List() []models.Session {
	m.mu.RLock()
	all := make([]*Workspace, 0, len(m.sessions))
	for _, w := range m.sessions {
		all = append(all, w)
	}
	m.mu.RUnlock()

	out := make([]models.Session, 0, len(all))
	for _, w := range all {
		w.mu.Lock()
		out = append(out, w.Info())
		w.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastAccessed.After(out[j].LastAccessed)
	})
	return out
}

// Count returns the number of open workspaces.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// evictIfNeeded drops least recently used workspaces to make room for one more.
func (m *Manager) evictIfNeeded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) < m.maxSessions {
		return
	}

	type entry struct {
		id   string
		last time.Time
	}
	entries := make([]entry, 0, len(m.sessions))
	for id, w := range m.sessions {
		w.mu.Lock()
		entries = append(entries, entry{id: id, last: w.lastAccessed})
		w.mu.Unlock()
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].last.Before(entries[j].last) })

	toFree := len(m.sessions) - m.maxSessions + 1
	for _, e := range entries[:toFree] {
		delete(m.sessions, e.id)
		log.Infof("[Manager] Evicted least recently used session %s", shortID(e.id))
	}
}

// CleanupOldSessions removes workspaces idle for longer than maxAge, but
// keeps any accessed within SessionKeepAliveWindow.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-maxAge)
	keepAliveCutoff := now.Add(-SessionKeepAliveWindow)

	removed := 0
	for id, w := range m.sessions {
		w.mu.Lock()
		last := w.lastAccessed
		w.mu.Unlock()

		if last.After(keepAliveCutoff) {
			continue
		}
		if last.Before(cutoff) {
			delete(m.sessions, id)
			removed++
			log.Infof("[Manager] Cleaned up idle session %s (last accessed: %s ago)",
				shortID(id), now.Sub(last).Round(time.Second))
		}
	}
	return removed
}

// RunCleanup calls CleanupOldSessions every interval until ctx is done.
func (m *Manager) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupOldSessions(maxAge)
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
