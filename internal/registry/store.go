// Package registry persists the user-to-sheet mapping in a local JSON file.
//
// The file shape is {"user_emails": {<user_id>: {email, sheet_id, sheet_url}}}.
// Reads and writes fail soft: a broken or unwritable file is logged and the
// process keeps running on whatever state it has in memory.
package registry

import (
	"encoding/json"
	"os"
	"sync"

	applog "expensebot/internal/log"
)

// UserRecord is one provisioned user. Email stays a pointer so an absent
// email round-trips as JSON null.
type UserRecord struct {
	Email    *string `json:"email"`
	SheetID  string  `json:"sheet_id"`
	SheetURL string  `json:"sheet_url"`
}

type fileShape struct {
	UserEmails map[string]UserRecord `json:"user_emails"`
}

// Store owns the mapping. All mutations rewrite the whole file.
type Store struct {
	path string
	log  *applog.Logger

	mu    sync.Mutex
	users map[string]UserRecord
}

// Open loads the registry from path, creating the file with an empty mapping
// when it does not exist. Any read or parse failure falls back to an empty
// registry.
func Open(path string, logger *applog.Logger) *Store {
	s := &Store{
		path:  path,
		log:   logger.WithComponent(applog.ComponentRegistry),
		users: map[string]UserRecord{},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.persistLocked()
		return s
	}
	if err != nil {
		s.log.Error("reading registry file", applog.FieldPath, path, applog.FieldError, err)
		return s
	}

	var parsed fileShape
	if err := json.Unmarshal(data, &parsed); err != nil {
		s.log.Error("parsing registry file", applog.FieldPath, path, applog.FieldError, err)
		return s
	}
	if parsed.UserEmails != nil {
		s.users = parsed.UserEmails
	}
	return s
}

// Lookup returns the record for a user, if any.
func (s *Store) Lookup(userID string) (UserRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[userID]
	return rec, ok
}

// Has reports whether the user has ever completed setup.
func (s *Store) Has(userID string) bool {
	_, ok := s.Lookup(userID)
	return ok
}

// Upsert replaces the user's record and rewrites the file. Re-running setup
// overwrites the old mapping; the previous spreadsheet is left orphaned.
func (s *Store) Upsert(userID string, rec UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = rec
	s.persistLocked()
}

// Size returns the number of known users.
func (s *Store) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) persistLocked() {
	data, err := json.Marshal(fileShape{UserEmails: s.users})
	if err != nil {
		s.log.Error("serializing registry", applog.FieldError, err)
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		// Callers never observe save failures; the in-memory state stands.
		s.log.Error("writing registry file", applog.FieldPath, s.path, applog.FieldError, err)
	}
}
