package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"line-register-bot/models"
)

// FileUserStore keeps all records in a single JSON object keyed by user id
// The whole file is rewritten on every change through a temp file and a
// rename, so a crash never leaves a half-written file behind
type FileUserStore struct {
	mu       sync.RWMutex
	filePath string
	users    map[string]*models.UserRecord
}

// NewFileUserStore opens (or prepares) dataDir/filename and loads it
func NewFileUserStore(dataDir, filename string) (*FileUserStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	s := &FileUserStore{
		filePath: filepath.Join(dataDir, filename),
		users:    make(map[string]*models.UserRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileUserStore) load() error {
	file, err := os.Open(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", s.filePath, err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(&s.users); err != nil {
		return fmt.Errorf("decode %s: %w", s.filePath, err)
	}
	if s.users == nil {
		s.users = make(map[string]*models.UserRecord)
	}
	return nil
}

// save must be called with mu held
func (s *FileUserStore) save() error {
	tempFile := s.filePath + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.users); err != nil {
		file.Close()
		os.Remove(tempFile)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *FileUserStore) Get(_ context.Context, userID string) (*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

// Put replaces the record. The in-memory copy is only updated once the file
// has been written
func (s *FileUserStore) Put(_ context.Context, rec *models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.users[rec.UserID]
	s.users[rec.UserID] = rec.Clone()
	if err := s.save(); err != nil {
		if had {
			s.users[rec.UserID] = prev
		} else {
			delete(s.users, rec.UserID)
		}
		return err
	}
	return nil
}

func (s *FileUserStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.users[userID]
	if !had {
		return nil
	}
	delete(s.users, userID)
	if err := s.save(); err != nil {
		s.users[userID] = prev
		return err
	}
	return nil
}

func (s *FileUserStore) List(_ context.Context) ([]*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedRecords(s.users), nil
}
