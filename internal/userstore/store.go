// Package userstore persists chat users and their profiles in a single JSON file.
package userstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrUserExists is returned by CreateUser for a taken username.
	ErrUserExists = errors.New("username already exists")
	// ErrUserNotFound is returned when no user matches.
	ErrUserNotFound = errors.New("user not found")
)

// Profile holds free-form profile fields keyed by name.
type Profile map[string]any

// User is one stored account.
type User struct {
	Username       string    `json:"username"`
	HashedPassword string    `json:"hashed_password"`
	CreatedAt      time.Time `json:"created_at"`
	Profile        Profile   `json:"profile"`
}

type document struct {
	Users map[string]User `json:"users"`
}

// Store is a mutex-guarded JSON file of users. Every write rewrites the file.
type Store struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

// New opens (creating when missing) the store at path.
func New(path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("users file path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, logger: logger.Named("userstore")}

	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat users file: %w", err)
		}
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create users directory: %w", err)
			}
		}
		if err := s.write(document{Users: map[string]User{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Ping verifies the backing file is still present.
func (s *Store) Ping(_ context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("users file unavailable: %w", err)
	}
	return nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers(_ context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	users := make([]User, 0, len(doc.Users))
	for _, u := range doc.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// GetUser returns the named user or ErrUserNotFound.
func (s *Store) GetUser(_ context.Context, username string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.read().Users[username]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

// CreateUser inserts a new user. CreatedAt is stamped when zero.
func (s *Store) CreateUser(_ context.Context, user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	if _, ok := doc.Users[user.Username]; ok {
		return User{}, ErrUserExists
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	doc.Users[user.Username] = user
	if err := s.write(doc); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateUser replaces an existing user record.
func (s *Store) UpdateUser(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	if _, ok := doc.Users[user.Username]; !ok {
		return ErrUserNotFound
	}
	doc.Users[user.Username] = user
	return s.write(doc)
}

// DeleteUser removes a user.
func (s *Store) DeleteUser(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	if _, ok := doc.Users[username]; !ok {
		return ErrUserNotFound
	}
	delete(doc.Users, username)
	return s.write(doc)
}

// GetProfile returns the user's profile, nil when none was saved.
func (s *Store) GetProfile(ctx context.Context, username string) (Profile, error) {
	u, err := s.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return u.Profile, nil
}

// SaveProfile merges fields into the stored profile and returns the result.
func (s *Store) SaveProfile(_ context.Context, username string, fields Profile) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.read()
	u, ok := doc.Users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	if u.Profile == nil {
		u.Profile = Profile{}
	}
	for k, v := range fields {
		u.Profile[k] = v
	}
	doc.Users[username] = u
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return u.Profile, nil
}

// read loads the document; a missing or corrupt file reads as empty.
func (s *Store) read() document {
	doc := document{Users: map[string]User{}}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("failed to read users file", zap.String("path", s.path), zap.Error(err))
		}
		return doc
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("users file is corrupt, treating as empty", zap.String("path", s.path), zap.Error(err))
		return document{Users: map[string]User{}}
	}
	if doc.Users == nil {
		doc.Users = map[string]User{}
	}
	return doc
}

func (s *Store) write(doc document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace users file: %w", err)
	}
	return nil
}
