package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tazhate/eventbot/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL DEFAULT '',
			event_date DATETIME NOT NULL,
			start_time DATETIME NOT NULL,
			end_time DATETIME,
			use_end_time INTEGER DEFAULT 0,
			notes TEXT DEFAULT '',
			reminder_intervals TEXT DEFAULT '[]',
			is_archived INTEGER DEFAULT 0,
			repeat_reminder INTEGER DEFAULT 0,
			repeat_frequency INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_archived ON events(is_archived)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date ON events(event_date, start_time)`,
		// Pending notification queue, delivered by the scheduler
		`CREATE TABLE IF NOT EXISTS notifications (
			identifier TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			fire_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_fire ON notifications(fire_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			// Ignore "duplicate column" errors for ALTER TABLE
			if !strings.Contains(err.Error(), "duplicate column") {
				return fmt.Errorf("exec migration: %w", err)
			}
		}
	}
	return nil
}

// === Events ===

const eventColumns = `id, title, event_date, start_time, end_time, use_end_time, notes,
	reminder_intervals, is_archived, repeat_reminder, repeat_frequency, created_at`

func (s *Storage) CreateEvent(e *domain.Event) error {
	intervals, err := marshalIntervals(e.ReminderIntervals)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(
		`INSERT INTO events (title, event_date, start_time, end_time, use_end_time, notes, reminder_intervals, is_archived, repeat_reminder, repeat_frequency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.EventDate, e.StartTime, e.EndTime, e.UseEndTime, e.Notes, intervals, e.IsArchived, e.RepeatReminder, e.RepeatFrequency,
	)
	if err != nil {
		return err
	}
	id, _ := res.LastInsertId()
	e.ID = id
	e.CreatedAt = time.Now()
	return nil
}

func (s *Storage) GetEvent(id int64) (*domain.Event, error) {
	row := s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (s *Storage) UpdateEvent(e *domain.Event) error {
	intervals, err := marshalIntervals(e.ReminderIntervals)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(
		`UPDATE events SET title = ?, event_date = ?, start_time = ?, end_time = ?, use_end_time = ?, notes = ?, reminder_intervals = ?, is_archived = ?, repeat_reminder = ?, repeat_frequency = ? WHERE id = ?`,
		e.Title, e.EventDate, e.StartTime, e.EndTime, e.UseEndTime, e.Notes, intervals, e.IsArchived, e.RepeatReminder, e.RepeatFrequency, e.ID,
	)
	return err
}

func (s *Storage) DeleteEvent(id int64) error {
	_, err := s.db.Exec(`DELETE FROM events WHERE id = ?`, id)
	return err
}

// ListActiveEvents returns non-archived events sorted by day, then start time.
func (s *Storage) ListActiveEvents() ([]*domain.Event, error) {
	return s.listEvents(`SELECT ` + eventColumns + ` FROM events WHERE is_archived = 0 ORDER BY event_date ASC, start_time ASC`)
}

// ListArchivedEvents returns archived events, most recent day first.
func (s *Storage) ListArchivedEvents() ([]*domain.Event, error) {
	return s.listEvents(`SELECT ` + eventColumns + ` FROM events WHERE is_archived = 1 ORDER BY event_date DESC, start_time DESC`)
}

func (s *Storage) listEvents(query string, args ...interface{}) ([]*domain.Event, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ArchiveEvent flips is_archived to true. One-way: nothing ever sets it back.
func (s *Storage) ArchiveEvent(id int64) error {
	_, err := s.db.Exec(`UPDATE events SET is_archived = 1 WHERE id = ?`, id)
	return err
}

// SpawnNextAndArchive inserts the next occurrence of a repeating event and
// archives the expired one in a single transaction, insert first. Archiving
// first and crashing would silently end the series, which is the failure
// mode this ordering exists to avoid.
func (s *Storage) SpawnNextAndArchive(next *domain.Event, oldID int64) error {
	intervals, err := marshalIntervals(next.ReminderIntervals)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO events (title, event_date, start_time, end_time, use_end_time, notes, reminder_intervals, is_archived, repeat_reminder, repeat_frequency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		next.Title, next.EventDate, next.StartTime, next.EndTime, next.UseEndTime, next.Notes, intervals, next.RepeatReminder, next.RepeatFrequency,
	)
	if err != nil {
		return fmt.Errorf("insert next occurrence: %w", err)
	}

	if _, err := tx.Exec(`UPDATE events SET is_archived = 1 WHERE id = ?`, oldID); err != nil {
		return fmt.Errorf("archive event %d: %w", oldID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	id, _ := res.LastInsertId()
	next.ID = id
	next.CreatedAt = time.Now()
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var intervals string
	err := row.Scan(&e.ID, &e.Title, &e.EventDate, &e.StartTime, &e.EndTime, &e.UseEndTime, &e.Notes,
		&intervals, &e.IsArchived, &e.RepeatReminder, &e.RepeatFrequency, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(intervals), &e.ReminderIntervals); err != nil {
		return nil, fmt.Errorf("unmarshal reminder intervals for event %d: %w", e.ID, err)
	}
	return e, nil
}

func marshalIntervals(intervals []int) (string, error) {
	intervals = domain.NormalizeIntervals(intervals)
	data, err := json.Marshal(intervals)
	if err != nil {
		return "", fmt.Errorf("marshal reminder intervals: %w", err)
	}
	return string(data), nil
}

// === Notifications ===

// Notification is a pending row in the notification queue.
type Notification struct {
	Identifier string
	Title      string
	Body       string
	FireAt     time.Time
}

// SaveNotification schedules a notification, replacing any existing entry
// with the same identifier.
func (s *Storage) SaveNotification(n *Notification) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO notifications (identifier, title, body, fire_at) VALUES (?, ?, ?, ?)`,
		n.Identifier, n.Title, n.Body, n.FireAt,
	)
	return err
}

func (s *Storage) ListNotifications() ([]*Notification, error) {
	return s.listNotifications(`SELECT identifier, title, body, fire_at FROM notifications ORDER BY fire_at ASC, identifier ASC`)
}

// ListDueNotifications returns notifications whose fire time has passed.
func (s *Storage) ListDueNotifications(now time.Time) ([]*Notification, error) {
	return s.listNotifications(`SELECT identifier, title, body, fire_at FROM notifications WHERE fire_at <= ? ORDER BY fire_at ASC, identifier ASC`, now)
}

func (s *Storage) listNotifications(query string, args ...interface{}) ([]*Notification, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.Identifier, &n.Title, &n.Body, &n.FireAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *Storage) DeleteNotifications(identifiers []string) error {
	if len(identifiers) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(identifiers)), ",")
	args := make([]interface{}, len(identifiers))
	for i, id := range identifiers {
		args[i] = id
	}

	_, err := s.db.Exec(`DELETE FROM notifications WHERE identifier IN (`+placeholders+`)`, args...)
	return err
}
