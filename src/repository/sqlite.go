package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	app "imghost/src/app"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// SQLiteStore is the relational catalog backend. One statement per call, no
// cross-statement transactions; user creation relies on the UNIQUE constraint
// instead of a check-then-insert.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users
(
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    username   TEXT NOT NULL UNIQUE,
    password   TEXT      DEFAULT '',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS images
(
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    INTEGER NOT NULL,
    image_url  TEXT    NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS categories
(
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    INTEGER NOT NULL,
    name       TEXT    NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE,
    UNIQUE (user_id, name)
);`

// NewSQLiteStore opens (or creates) the database file and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("can not open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("can not connect to database %s: %w", path, err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("can not initialize schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("sqlite store ready")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetOrCreateUser(ctx context.Context, username string) (int64, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return 0, err
	}
	// Upsert so two concurrent callers can not both pass an existence check
	// and insert. The no-op DO UPDATE makes RETURNING yield the id in both
	// the insert and the conflict case.
	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO users (username) VALUES (?)
         ON CONFLICT(username) DO UPDATE SET username = excluded.username
         RETURNING id`, username).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: get or create user: %v", ErrStorage, err)
	}
	return id, nil
}

func (s *SQLiteStore) Authenticate(ctx context.Context, username, password string) (app.User, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return app.User{}, err
	}

	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return app.User{}, fmt.Errorf("%w: hash password: %v", ErrStorage, err)
		}
		// Registers the user when absent; existing rows are left untouched.
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO users (username, password) VALUES (?, ?)
             ON CONFLICT(username) DO NOTHING`, username, string(hash)); err != nil {
			return app.User{}, fmt.Errorf("%w: create user: %v", ErrStorage, err)
		}
	}

	var user app.User
	err = s.db.QueryRowContext(ctx,
		`SELECT id, username, password, created_at FROM users WHERE username = ?`,
		username).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return app.User{}, ErrNotFound
	}
	if err != nil {
		return app.User{}, fmt.Errorf("%w: fetch user: %v", ErrStorage, err)
	}

	if password == "" {
		// Returning-session check: a known username without a password
		// passes. Not a security boundary.
		return user, nil
	}
	if user.PasswordHash == "" {
		// User existed without a password (created via get-or-create); the
		// first supplied password becomes theirs.
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return app.User{}, fmt.Errorf("%w: hash password: %v", ErrStorage, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`UPDATE users SET password = ? WHERE id = ? AND password = ''`,
			string(hash), user.ID); err != nil {
			return app.User{}, fmt.Errorf("%w: set password: %v", ErrStorage, err)
		}
		user.PasswordHash = string(hash)
		return user, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return app.User{}, ErrAuth
	}
	return user, nil
}

func (s *SQLiteStore) AddImage(ctx context.Context, username, ref string) (int64, error) {
	if strings.TrimSpace(ref) == "" {
		return 0, fmt.Errorf("%w: image reference is required", ErrValidation)
	}
	userID, err := s.GetOrCreateUser(ctx, username)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO images (user_id, image_url) VALUES (?, ?)`, userID, ref)
	if err != nil {
		return 0, fmt.Errorf("%w: add image: %v", ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: add image: %v", ErrStorage, err)
	}
	return id, nil
}

func (s *SQLiteStore) ListImages(ctx context.Context, username, category string) ([]string, error) {
	query := `SELECT i.image_url
              FROM images i
                       JOIN users u ON i.user_id = u.id
              WHERE u.username = ?`
	args := []any{username}
	if category != "" {
		query += ` AND instr(i.image_url, '/' || ? || '/') > 0`
		args = append(args, category)
	}
	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list images: %v", ErrStorage, err)
	}
	defer rows.Close()

	refs := make([]string, 0)
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("%w: list images: %v", ErrStorage, err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list images: %v", ErrStorage, err)
	}
	return refs, nil
}

func (s *SQLiteStore) DeleteImage(ctx context.Context, username, ref string) error {
	userID, ok, err := s.lookupUser(ctx, username)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM images WHERE user_id = ? AND image_url = ?`, userID, ref)
	if err != nil {
		return fmt.Errorf("%w: delete image: %v", ErrStorage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete image: %v", ErrStorage, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CategoryExists(ctx context.Context, username, name string) (int64, bool, error) {
	userID, ok, err := s.lookupUser(ctx, username)
	if err != nil || !ok {
		return 0, false, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE user_id = ? AND name = ?`,
		userID, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: category exists: %v", ErrStorage, err)
	}
	return id, true, nil
}

func (s *SQLiteStore) CreateCategory(ctx context.Context, username, name string) (app.CategoryResult, error) {
	if strings.TrimSpace(name) == "" {
		return app.CategoryResult{}, fmt.Errorf("%w: category name is required", ErrValidation)
	}
	if id, ok, err := s.CategoryExists(ctx, username, name); err != nil {
		return app.CategoryResult{}, err
	} else if ok {
		return app.CategoryResult{Success: false, Message: "Category already exists", CategoryID: id}, nil
	}

	userID, err := s.GetOrCreateUser(ctx, username)
	if err != nil {
		return app.CategoryResult{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name) VALUES (?, ?)`, userID, name)
	if err != nil {
		// Lost a race with a concurrent creation of the same name; the
		// UNIQUE(user_id, name) constraint turned it into a duplicate.
		if id, ok, existsErr := s.CategoryExists(ctx, username, name); existsErr == nil && ok {
			return app.CategoryResult{Success: false, Message: "Category already exists", CategoryID: id}, nil
		}
		return app.CategoryResult{}, fmt.Errorf("%w: create category: %v", ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return app.CategoryResult{}, fmt.Errorf("%w: create category: %v", ErrStorage, err)
	}
	return app.CategoryResult{Success: true, Message: "Category created", CategoryID: id}, nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context, username string) ([]app.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.name, c.created_at
         FROM categories c
                  JOIN users u ON c.user_id = u.id
         WHERE u.username = ?
         ORDER BY c.name`, username)
	if err != nil {
		return nil, fmt.Errorf("%w: list categories: %v", ErrStorage, err)
	}
	defer rows.Close()

	categories := make([]app.Category, 0)
	for rows.Next() {
		var c app.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: list categories: %v", ErrStorage, err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list categories: %v", ErrStorage, err)
	}
	return categories, nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("%w: delete user: %v", ErrStorage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: delete user: %v", ErrStorage, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) lookupUser(ctx context.Context, username string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = ?`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: fetch user: %v", ErrStorage, err)
	}
	return id, true, nil
}
