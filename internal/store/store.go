// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/verte-zerg/marsfocus/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout keeps a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for user progress and missions.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL,
			total_xp INTEGER NOT NULL,
			level INTEGER NOT NULL,
			total_focus_time INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_badges (
			user_id TEXT NOT NULL,
			badge_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			icon TEXT NOT NULL,
			requirement_type TEXT NOT NULL,
			requirement_value INTEGER NOT NULL,
			unlocked_at TEXT NOT NULL,
			PRIMARY KEY (user_id, badge_id)
		);`,
		`CREATE TABLE IF NOT EXISTS missions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			topic TEXT NOT NULL,
			description TEXT NOT NULL,
			duration_minutes INTEGER NOT NULL,
			tasks TEXT NOT NULL,
			quiz_questions TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			elapsed_seconds INTEGER NOT NULL DEFAULT 0,
			xp_earned INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS mission_distractions (
			mission_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (mission_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_missions_user_status ON missions(user_id, status);`,
		`CREATE INDEX IF NOT EXISTS idx_missions_end_time ON missions(end_time);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return s.ensureColumn("missions", "elapsed_seconds", "INTEGER NOT NULL DEFAULT 0")
}

// ensureColumn adds a column to databases created before it existed.
func (s *Store) ensureColumn(table, column, decl string) error {
	rows, err := s.db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return err
	}
	found := false
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		if name == column {
			found = true
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}
	if found {
		return nil
	}
	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LoadState returns the user and its completed missions ordered by completion.
// A missing user is created with default values.
func (s *Store) LoadState(ctx context.Context, userID string) (model.User, []model.Mission, error) {
	user, err := s.loadUser(ctx, s.db, userID)
	if errors.Is(err, ErrNotFound) {
		user = model.NewUser(s.now())
		user.ID = userID
		if err := s.SaveUser(ctx, user); err != nil {
			return model.User{}, nil, err
		}
		return user, nil, nil
	}
	if err != nil {
		return model.User{}, nil, err
	}
	missions, err := s.listMissions(ctx, s.db,
		`WHERE user_id = ? AND status = ? ORDER BY end_time ASC, created_at ASC`,
		userID, model.StatusCompleted)
	if err != nil {
		return model.User{}, nil, err
	}
	sort.SliceStable(missions, func(i, j int) bool {
		return missions[i].EndTime.Before(missions[j].EndTime)
	})
	return user, missions, nil
}

// CommitMission stores a completed mission together with the updated user in one transaction.
func (s *Store) CommitMission(ctx context.Context, user model.User, mission model.Mission) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if err = upsertMission(ctx, tx, user.ID, mission); err != nil {
		return err
	}
	if err = upsertUser(ctx, tx, user); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveMission stores a mission that is not yet completed.
func (s *Store) SaveMission(ctx context.Context, userID string, mission model.Mission) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if err = upsertMission(ctx, tx, userID, mission); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveUser stores the user and its badge collection.
func (s *Store) SaveUser(ctx context.Context, user model.User) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	if err = upsertUser(ctx, tx, user); err != nil {
		return err
	}
	return tx.Commit()
}

// GetMission returns a mission by id regardless of status.
func (s *Store) GetMission(ctx context.Context, id string) (model.Mission, error) {
	missions, err := s.listMissions(ctx, s.db, `WHERE id = ?`, id)
	if err != nil {
		return model.Mission{}, err
	}
	if len(missions) == 0 {
		return model.Mission{}, fmt.Errorf("mission %s: %w", id, ErrNotFound)
	}
	return missions[0], nil
}

// ListDrafts returns missions that were created or started but not completed, newest first.
func (s *Store) ListDrafts(ctx context.Context, userID string) ([]model.Mission, error) {
	return s.listMissions(ctx, s.db,
		`WHERE user_id = ? AND status != ? ORDER BY created_at DESC`,
		userID, model.StatusCompleted)
}

// Reset deletes all progress and missions of the user.
func (s *Store) Reset(ctx context.Context, userID string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	stmts := []string{
		`DELETE FROM mission_distractions WHERE mission_id IN (SELECT id FROM missions WHERE user_id = ?)`,
		`DELETE FROM missions WHERE user_id = ?`,
		`DELETE FROM user_badges WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err = tx.ExecContext(ctx, stmt, userID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertUser(ctx context.Context, tx execer, user model.User) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, email, name, total_xp, level, total_focus_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			total_xp = excluded.total_xp,
			level = excluded.level,
			total_focus_time = excluded.total_focus_time`,
		user.ID,
		user.Email,
		user.Name,
		user.TotalXP,
		user.Level,
		user.TotalFocusTime,
		formatTime(user.CreatedAt),
	); err != nil {
		return err
	}
	for _, b := range user.Badges {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_badges (user_id, badge_id, name, description, icon, requirement_type, requirement_value, unlocked_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			user.ID,
			b.ID,
			b.Name,
			b.Description,
			b.Icon,
			b.Requirement.Type,
			b.Requirement.Value,
			formatTime(b.UnlockedAt),
		); err != nil {
			return err
		}
	}
	return nil
}

func upsertMission(ctx context.Context, tx execer, userID string, m model.Mission) error {
	tasks, err := json.Marshal(nonNilTasks(m.Tasks))
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	quiz, err := json.Marshal(nonNilQuiz(m.QuizQuestions))
	if err != nil {
		return fmt.Errorf("encode quiz: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO missions (id, user_id, topic, description, duration_minutes, tasks, quiz_questions, start_time, end_time, elapsed_seconds, xp_earned, completed, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			topic = excluded.topic,
			description = excluded.description,
			duration_minutes = excluded.duration_minutes,
			tasks = excluded.tasks,
			quiz_questions = excluded.quiz_questions,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			elapsed_seconds = excluded.elapsed_seconds,
			xp_earned = excluded.xp_earned,
			completed = excluded.completed,
			status = excluded.status`,
		m.ID,
		userID,
		m.Topic,
		m.Description,
		m.DurationMinutes,
		string(tasks),
		string(quiz),
		formatTime(m.StartTime),
		formatTime(m.EndTime),
		m.ElapsedSeconds,
		m.XPEarned,
		boolToInt(m.Completed),
		m.Status,
		formatTime(m.CreatedAt),
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM mission_distractions WHERE mission_id = ?`, m.ID); err != nil {
		return err
	}
	for i, d := range m.Distractions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mission_distractions (mission_id, seq, timestamp, duration_ms) VALUES (?, ?, ?, ?)`,
			m.ID, i, formatTime(d.Timestamp), d.DurationMs,
		); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) loadUser(ctx context.Context, q queryer, userID string) (model.User, error) {
	var user model.User
	var createdAt string
	err := q.QueryRowContext(ctx,
		`SELECT id, email, name, total_xp, level, total_focus_time, created_at FROM users WHERE id = ?`,
		userID,
	).Scan(&user.ID, &user.Email, &user.Name, &user.TotalXP, &user.Level, &user.TotalFocusTime, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return model.User{}, err
	}
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.User{}, err
	}

	rows, err := q.QueryContext(ctx,
		`SELECT badge_id, name, description, icon, requirement_type, requirement_value, unlocked_at
		 FROM user_badges WHERE user_id = ? ORDER BY unlocked_at ASC, rowid ASC`,
		userID,
	)
	if err != nil {
		return model.User{}, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	user.Badges = []model.Badge{}
	for rows.Next() {
		var b model.Badge
		var unlockedAt string
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Icon, &b.Requirement.Type, &b.Requirement.Value, &unlockedAt); err != nil {
			return model.User{}, err
		}
		if b.UnlockedAt, err = parseTime(unlockedAt); err != nil {
			return model.User{}, err
		}
		user.Badges = append(user.Badges, b)
	}
	if err := rows.Err(); err != nil {
		return model.User{}, err
	}
	sort.SliceStable(user.Badges, func(i, j int) bool {
		return user.Badges[i].UnlockedAt.Before(user.Badges[j].UnlockedAt)
	})
	return user, nil
}

func (s *Store) listMissions(ctx context.Context, q queryer, where string, args ...any) ([]model.Mission, error) {
	query := `SELECT id, topic, description, duration_minutes, tasks, quiz_questions, start_time, end_time, elapsed_seconds, xp_earned, completed, status, created_at
		FROM missions ` + where
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var missions []model.Mission
	for rows.Next() {
		var m model.Mission
		var tasks, quiz, startTime, endTime, createdAt string
		var completed int
		if err := rows.Scan(&m.ID, &m.Topic, &m.Description, &m.DurationMinutes, &tasks, &quiz, &startTime, &endTime, &m.ElapsedSeconds, &m.XPEarned, &completed, &m.Status, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(tasks), &m.Tasks); err != nil {
			return nil, fmt.Errorf("decode tasks of %s: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(quiz), &m.QuizQuestions); err != nil {
			return nil, fmt.Errorf("decode quiz of %s: %w", m.ID, err)
		}
		if m.StartTime, err = parseTime(startTime); err != nil {
			return nil, err
		}
		if m.EndTime, err = parseTime(endTime); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		m.Completed = completed != 0
		missions = append(missions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.attachDistractions(ctx, q, missions); err != nil {
		return nil, err
	}
	return missions, nil
}

func (s *Store) attachDistractions(ctx context.Context, q queryer, missions []model.Mission) error {
	for i := range missions {
		rows, err := q.QueryContext(ctx,
			`SELECT timestamp, duration_ms FROM mission_distractions WHERE mission_id = ? ORDER BY seq ASC`,
			missions[i].ID,
		)
		if err != nil {
			return err
		}
		events := []model.DistractionEvent{}
		for rows.Next() {
			var ts string
			var d model.DistractionEvent
			if err := rows.Scan(&ts, &d.DurationMs); err != nil {
				_ = rows.Close()
				return err
			}
			if d.Timestamp, err = parseTime(ts); err != nil {
				_ = rows.Close()
				return err
			}
			events = append(events, d)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		if err := rows.Close(); err != nil {
			return err
		}
		missions[i].Distractions = events
	}
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNilTasks(tasks []string) []string {
	if tasks == nil {
		return []string{}
	}
	return tasks
}

func nonNilQuiz(qs []model.QuizQuestion) []model.QuizQuestion {
	if qs == nil {
		return []model.QuizQuestion{}
	}
	return qs
}
