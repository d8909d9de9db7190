// mock_storage.go - In-memory storage implementations for testing
package testutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/biomech-visualizer/backend/internal/models"
	"github.com/biomech-visualizer/backend/internal/storage"
)

// MockStorage implements storage.Store in memory.
type MockStorage struct {
	files    map[string]*models.FileInfo
	fileData map[string][]byte
	mu       sync.RWMutex
}

// NewMockStorage creates an empty mock image store.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.FileInfo),
		fileData: make(map[string][]byte),
	}
}

func (m *MockStorage) Save(name, contentType string, r io.Reader) (*models.FileInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return m.AddFile(generateTestID(), name, contentType, data), nil
}

func (m *MockStorage) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	file, ok := m.files[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	copied := *file
	return &copied, nil
}

func (m *MockStorage) List(limit int) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	files := make([]*models.FileInfo, 0, len(m.files))
	for _, file := range m.files {
		copied := *file
		files = append(files, &copied)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].UploadedAt.After(files[j].UploadedAt)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func (m *MockStorage) Open(id string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.fileData[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[id]; !exists {
		return storage.ErrNotFound
	}
	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

// Ensure MockStorage implements storage.Store
var _ storage.Store = (*MockStorage)(nil)

// AddFile adds a file directly to the mock
func (m *MockStorage) AddFile(id, name, contentType string, data []byte) *models.FileInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := &models.FileInfo{
		ID:          id,
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadedAt:  time.Now(),
	}
	m.files[id] = file
	m.fileData[id] = data
	return file
}

// GetFileCount returns the number of stored files
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}

var testIDCounter int
var testIDMutex sync.Mutex

func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}

// MockRepository implements storage.Repository in memory. Set Err to make
// every call fail.
type MockRepository struct {
	mu          sync.Mutex
	points      map[string][]models.PainPoint
	annotations map[string][]models.Annotation
	saves       int
	closed      bool

	Err error
}

// NewMockRepository creates an empty repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		points:      make(map[string][]models.PainPoint),
		annotations: make(map[string][]models.Annotation),
	}
}

var _ storage.Repository = (*MockRepository)(nil)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("repository closed")

func (m *MockRepository) check() error {
	if m.closed {
		return ErrClosed
	}
	return m.Err
}

func (m *MockRepository) SavePoints(ctx context.Context, patientID string, points []models.PainPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	copied := make([]models.PainPoint, 0, len(points))
	for _, p := range points {
		copied = append(copied, p.Clone())
	}
	m.points[patientID] = copied
	m.saves++
	return nil
}

func (m *MockRepository) LoadPoints(ctx context.Context, patientID string) ([]models.PainPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	out := []models.PainPoint{}
	for _, p := range m.points[patientID] {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *MockRepository) SaveAnnotations(ctx context.Context, imageID string, annotations []models.Annotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	copied := make([]models.Annotation, 0, len(annotations))
	for _, a := range annotations {
		copied = append(copied, a.Clone())
	}
	m.annotations[imageID] = copied
	m.saves++
	return nil
}

func (m *MockRepository) LoadAnnotations(ctx context.Context, imageID string) ([]models.Annotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}
	out := []models.Annotation{}
	for _, a := range m.annotations[imageID] {
		out = append(out, a.Clone())
	}
	return out, nil
}

func (m *MockRepository) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Saves returns how many snapshots were written.
func (m *MockRepository) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// SetErr makes subsequent calls fail with err.
func (m *MockRepository) SetErr(err error) {
	m.mu.Lock()
	m.Err = err
	m.mu.Unlock()
}
