package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/systemstart/formio-install/pkg/importer"
	"golang.org/x/crypto/bcrypt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	doc_json TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS entities_collection ON entities (collection);
CREATE TABLE IF NOT EXISTS submissions (
	id TEXT PRIMARY KEY,
	form_id TEXT NOT NULL,
	data_json TEXT NOT NULL,
	roles_json TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS submissions_form ON submissions (form_id);
CREATE TABLE IF NOT EXISTS projects (
	name TEXT PRIMARY KEY,
	snapshot_json TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// Store is a data platform backed by a single SQLite database.
type Store struct {
	db *sql.DB

	// HashCost is the bcrypt cost used by EncryptPassword.
	HashCost int
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db, HashCost: bcrypt.DefaultCost}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create stores doc in collection under a new identifier.
func (s *Store) Create(ctx context.Context, collection string, doc map[string]any) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal %s document: %w", collection, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entities (id, collection, doc_json, created_at) VALUES (?, ?, ?, ?)`,
		id, collection, string(payload), now(),
	)
	if err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

// Get returns the collection and document stored under id.
func (s *Store) Get(ctx context.Context, id string) (string, map[string]any, bool, error) {
	var collection, payload string
	err := s.db.QueryRowContext(ctx, `SELECT collection, doc_json FROM entities WHERE id = ?`, id).Scan(&collection, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, false, nil
		}
		return "", nil, false, fmt.Errorf("query entity %q: %w", id, err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return "", nil, false, fmt.Errorf("unmarshal entity %q: %w", id, err)
	}
	return collection, doc, true, nil
}

// Count returns the number of entities in collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE collection = ?`, collection).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}
	return n, nil
}

// EncryptPassword returns a bcrypt hash of plain.
func (s *Store) EncryptPassword(_ context.Context, plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.HashCost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hash), nil
}

// CreateSubmission stores a submission of formID owned by roles.
func (s *Store) CreateSubmission(ctx context.Context, formID string, data map[string]any, roles []string) (string, error) {
	if roles == nil {
		roles = []string{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal submission data: %w", err)
	}
	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return "", fmt.Errorf("marshal submission roles: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, form_id, data_json, roles_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, formID, string(dataJSON), string(rolesJSON), now(),
	)
	if err != nil {
		return "", fmt.Errorf("insert submission: %w", err)
	}
	return id, nil
}

// Submission is a stored form submission.
type Submission struct {
	ID     string
	FormID string
	Data   map[string]any
	Roles  []string
}

// FindSubmission returns the first submission of formID whose data field equals value.
func (s *Store) FindSubmission(ctx context.Context, formID, field, value string) (Submission, bool, error) {
	var dataJSON, rolesJSON string
	sub := Submission{FormID: formID}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, data_json, roles_json FROM submissions
		 WHERE form_id = ? AND json_extract(data_json, ?) = ?
		 ORDER BY created_at LIMIT 1`,
		formID, "$."+field, value,
	).Scan(&sub.ID, &dataJSON, &rolesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, false, nil
		}
		return Submission{}, false, fmt.Errorf("query submission: %w", err)
	}

	if err := json.Unmarshal([]byte(dataJSON), &sub.Data); err != nil {
		return Submission{}, false, fmt.Errorf("unmarshal submission data: %w", err)
	}
	if err := json.Unmarshal([]byte(rolesJSON), &sub.Roles); err != nil {
		return Submission{}, false, fmt.Errorf("unmarshal submission roles: %w", err)
	}
	return sub, true, nil
}

// SubmissionExists reports whether formID has a submission whose data field equals value.
func (s *Store) SubmissionExists(ctx context.Context, formID, field, value string) (bool, error) {
	_, found, err := s.FindSubmission(ctx, formID, field, value)
	return found, err
}

// SaveProject records the imported project so later runs can skip the import.
func (s *Store) SaveProject(ctx context.Context, project *importer.Project) error {
	payload, err := json.Marshal(project)
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO projects (name, snapshot_json, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		 snapshot_json = excluded.snapshot_json,
		 updated_at = excluded.updated_at`,
		project.Name, string(payload), now(),
	)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

// LoadProject returns the most recently saved project.
func (s *Store) LoadProject(ctx context.Context) (*importer.Project, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot_json FROM projects ORDER BY updated_at DESC LIMIT 1`,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("query project: %w", err)
	}

	var project importer.Project
	if err := json.Unmarshal([]byte(payload), &project); err != nil {
		return nil, false, fmt.Errorf("unmarshal project: %w", err)
	}
	return &project, true, nil
}

// timestampLayout is fixed width so stored timestamps sort chronologically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func now() string {
	return formatTime(time.Now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
