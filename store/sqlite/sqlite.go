/*
Package sqlite provides the SQLite-backed implementation of every storage
interface in the system.

INTERFACES IMPLEMENTED:
  schedule.TxSlotStore:     slot persistence with transactional writes
  schedule.LessonStore:     lesson records
  payroll.PaymentStore:     payment records
  payroll.TxPaymentStore:   via the PaymentTx adapter
  payroll.TeacherDirectory: teacher names for payment labeling

ATOMICITY:
  WithTx wraps a database transaction AND holds the store's write mutex for
  its duration. Slot writes therefore execute conflict-check-then-persist
  as one unit: no concurrent writer can commit an overlapping slot between
  the check and the insert. Settlement runs get the same all-or-nothing
  guarantee for their payment batch.

SETTLEMENT GUARD:
  A partial unique index on payments(teacher_id, year, month) where
  source = 'settlement' backstops the engine's idempotency check at the
  database level.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool with versioned migrations.

SEE ALSO:
  - schedule/store.go, payroll/types.go: interface definitions
  - store/memory: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/harmonia/lesson-engine/payroll"
	"github.com/harmonia/lesson-engine/schedule"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 1,
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		instruments TEXT,
		can_teach_art BOOLEAN DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		birth_date TEXT,
		parent_name TEXT,
		parent_phone TEXT,
		address TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS lessons (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL REFERENCES teachers(id),
		student_id TEXT NOT NULL REFERENCES students(id),
		room_id TEXT NOT NULL REFERENCES rooms(id),
		category TEXT NOT NULL,
		instrument TEXT,
		duration_minutes INTEGER NOT NULL,
		hourly_rate TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_lessons_teacher ON lessons(teacher_id);
	CREATE INDEX IF NOT EXISTS idx_lessons_room ON lessons(room_id);
	CREATE INDEX IF NOT EXISTS idx_lessons_active ON lessons(is_active);

	CREATE TABLE IF NOT EXISTS schedule_slots (
		id TEXT PRIMARY KEY,
		lesson_id TEXT NOT NULL REFERENCES lessons(id),
		day_of_week INTEGER NOT NULL,
		start_minute INTEGER NOT NULL,
		end_minute INTEGER NOT NULL,
		recurring BOOLEAN NOT NULL DEFAULT TRUE,
		valid_from TEXT NOT NULL,
		valid_to TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_slots_lesson ON schedule_slots(lesson_id);
	CREATE INDEX IF NOT EXISTS idx_slots_day ON schedule_slots(day_of_week);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL REFERENCES teachers(id),
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		source TEXT NOT NULL DEFAULT 'manual',
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_teacher ON payments(teacher_id);
	CREATE INDEX IF NOT EXISTS idx_payments_period ON payments(year, month);

	-- Settlement idempotency guard: at most one engine-generated payment
	-- per teacher per period. Manual rows are exempt.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_settlement
		ON payments(teacher_id, year, month)
		WHERE source = 'settlement';
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query helper can
// run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ROOMS
// =============================================================================

// SaveRoom inserts or replaces a room record.
func (s *Store) SaveRoom(ctx context.Context, r schedule.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, name, category, capacity, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, category = excluded.category,
			capacity = excluded.capacity, description = excluded.description`,
		r.ID, r.Name, string(r.Category), r.Capacity, nullString(r.Description),
		r.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save room: %w", err)
	}
	return nil
}

func (s *Store) GetRoom(ctx context.Context, id string) (*schedule.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, capacity, description, created_at
		FROM rooms WHERE id = ?`, id)
	r, err := scanRoom(row)
	if err == sql.ErrNoRows {
		return nil, schedule.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return r, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]schedule.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, capacity, description, created_at
		FROM rooms ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var out []schedule.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrRoomNotFound
	}
	return nil
}

func scanRoom(row rowScanner) (*schedule.Room, error) {
	var r schedule.Room
	var category, createdAt string
	var description sql.NullString
	err := row.Scan(&r.ID, &r.Name, &category, &r.Capacity, &description, &createdAt)
	if err != nil {
		return nil, err
	}
	r.Category = schedule.LessonCategory(category)
	r.Description = description.String
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &r, nil
}

// =============================================================================
// TEACHERS
// =============================================================================

// Teacher is a teacher profile record. Payroll only reads the name; the
// rest is staff-facing CRUD.
type Teacher struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	Instruments string
	CanTeachArt bool
	CreatedAt   time.Time
}

func (s *Store) SaveTeacher(ctx context.Context, t Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teachers (id, first_name, last_name, email, phone, instruments, can_teach_art, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name, last_name = excluded.last_name,
			email = excluded.email, phone = excluded.phone,
			instruments = excluded.instruments, can_teach_art = excluded.can_teach_art`,
		t.ID, t.FirstName, t.LastName, nullString(t.Email), nullString(t.Phone),
		nullString(t.Instruments), t.CanTeachArt, t.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save teacher: %w", err)
	}
	return nil
}

func (s *Store) GetTeacher(ctx context.Context, id string) (*Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone, instruments, can_teach_art, created_at
		FROM teachers WHERE id = ?`, id)
	t, err := scanTeacher(row)
	if err == sql.ErrNoRows {
		return nil, payroll.ErrTeacherNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return t, nil
}

func (s *Store) ListTeachers(ctx context.Context) ([]Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, email, phone, instruments, can_teach_art, created_at
		FROM teachers ORDER BY first_name ASC, last_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	defer rows.Close()

	var out []Teacher
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan teacher: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTeacher(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM teachers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete teacher: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payroll.ErrTeacherNotFound
	}
	return nil
}

// TeacherNames returns every teacher's display name keyed by id, so list
// views resolve names with one query instead of one per row.
func (s *Store) TeacherNames(ctx context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, first_name, last_name FROM teachers")
	if err != nil {
		return nil, fmt.Errorf("failed to list teacher names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, first, last string
		if err := rows.Scan(&id, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan teacher name: %w", err)
		}
		names[id] = first + " " + last
	}
	return names, rows.Err()
}

// GetTeacherName implements payroll.TeacherDirectory.
func (s *Store) GetTeacherName(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var first, last string
	err := s.db.QueryRowContext(ctx,
		"SELECT first_name, last_name FROM teachers WHERE id = ?", id).
		Scan(&first, &last)
	if err == sql.ErrNoRows {
		return "", payroll.ErrTeacherNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get teacher name: %w", err)
	}
	return first + " " + last, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTeacher(row rowScanner) (*Teacher, error) {
	var t Teacher
	var email, phone, instruments sql.NullString
	var createdAt string
	err := row.Scan(&t.ID, &t.FirstName, &t.LastName, &email, &phone, &instruments, &t.CanTeachArt, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Email = email.String
	t.Phone = phone.String
	t.Instruments = instruments.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

// =============================================================================
// STUDENTS
// =============================================================================

// Student is a student profile record, staff-facing CRUD only.
type Student struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	BirthDate   string // YYYY-MM-DD, optional
	ParentName  string
	ParentPhone string
	Address     string
	CreatedAt   time.Time
}

func (s *Store) SaveStudent(ctx context.Context, st Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st.CreatedAt.IsZero() {
		st.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, first_name, last_name, email, phone, birth_date, parent_name, parent_phone, address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name, last_name = excluded.last_name,
			email = excluded.email, phone = excluded.phone,
			birth_date = excluded.birth_date, parent_name = excluded.parent_name,
			parent_phone = excluded.parent_phone, address = excluded.address`,
		st.ID, st.FirstName, st.LastName, nullString(st.Email), nullString(st.Phone),
		nullString(st.BirthDate), nullString(st.ParentName), nullString(st.ParentPhone),
		nullString(st.Address), st.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

func (s *Store) GetStudent(ctx context.Context, id string) (*Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, email, phone, birth_date, parent_name, parent_phone, address, created_at
		FROM students WHERE id = ?`, id)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, ErrStudentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return st, nil
}

func (s *Store) ListStudents(ctx context.Context) ([]Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, email, phone, birth_date, parent_name, parent_phone, address, created_at
		FROM students ORDER BY first_name ASC, last_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (s *Store) DeleteStudent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func scanStudent(row rowScanner) (*Student, error) {
	var st Student
	var email, phone, birth, parentName, parentPhone, address sql.NullString
	var createdAt string
	err := row.Scan(&st.ID, &st.FirstName, &st.LastName, &email, &phone, &birth,
		&parentName, &parentPhone, &address, &createdAt)
	if err != nil {
		return nil, err
	}
	st.Email = email.String
	st.Phone = phone.String
	st.BirthDate = birth.String
	st.ParentName = parentName.String
	st.ParentPhone = parentPhone.String
	st.Address = address.String
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &st, nil
}

// =============================================================================
// LESSONS (schedule.LessonStore)
// =============================================================================

func (s *Store) SaveLesson(ctx context.Context, l schedule.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lessons (id, teacher_id, student_id, room_id, category, instrument, duration_minutes, hourly_rate, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			teacher_id = excluded.teacher_id, student_id = excluded.student_id,
			room_id = excluded.room_id, category = excluded.category,
			instrument = excluded.instrument, duration_minutes = excluded.duration_minutes,
			hourly_rate = excluded.hourly_rate, is_active = excluded.is_active`,
		l.ID, l.TeacherID, l.StudentID, l.RoomID, string(l.Category),
		nullString(l.Instrument), l.DurationMinutes, l.HourlyRate.String(),
		l.Active, l.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save lesson: %w", err)
	}
	return nil
}

func (s *Store) GetLesson(ctx context.Context, id string) (*schedule.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLessonIn(ctx, s.db, id)
}

func getLessonIn(ctx context.Context, q dbtx, id string) (*schedule.Lesson, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, teacher_id, student_id, room_id, category, instrument, duration_minutes, hourly_rate, is_active, created_at
		FROM lessons WHERE id = ?`, id)
	l, err := scanLesson(row)
	if err == sql.ErrNoRows {
		return nil, schedule.ErrLessonNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return l, nil
}

func (s *Store) ListLessons(ctx context.Context) ([]schedule.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLessons(ctx, `
		SELECT id, teacher_id, student_id, room_id, category, instrument, duration_minutes, hourly_rate, is_active, created_at
		FROM lessons ORDER BY created_at DESC`)
}

// ListActiveLessons implements schedule.LessonStore.
func (s *Store) ListActiveLessons(ctx context.Context) ([]schedule.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryLessons(ctx, `
		SELECT id, teacher_id, student_id, room_id, category, instrument, duration_minutes, hourly_rate, is_active, created_at
		FROM lessons WHERE is_active = TRUE ORDER BY id ASC`)
}

// DeactivateLesson clears the active flag; lessons are never hard-deleted.
func (s *Store) DeactivateLesson(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "UPDATE lessons SET is_active = FALSE WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate lesson: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrLessonNotFound
	}
	return nil
}

func (s *Store) queryLessons(ctx context.Context, query string, args ...any) ([]schedule.Lesson, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var out []schedule.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func scanLesson(row rowScanner) (*schedule.Lesson, error) {
	var l schedule.Lesson
	var category, rate, createdAt string
	var instrument sql.NullString
	err := row.Scan(&l.ID, &l.TeacherID, &l.StudentID, &l.RoomID, &category,
		&instrument, &l.DurationMinutes, &rate, &l.Active, &createdAt)
	if err != nil {
		return nil, err
	}
	l.Category = schedule.LessonCategory(category)
	l.Instrument = instrument.String
	l.HourlyRate, _ = decimal.NewFromString(rate)
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &l, nil
}

// =============================================================================
// SCHEDULE SLOTS (schedule.TxSlotStore)
// =============================================================================

const slotColumns = `id, lesson_id, day_of_week, start_minute, end_minute, recurring, valid_from, valid_to, created_at`

const slotJoinColumns = `s.id, s.lesson_id, s.day_of_week, s.start_minute, s.end_minute, s.recurring, s.valid_from, s.valid_to, s.created_at`

func (s *Store) GetSlot(ctx context.Context, id string) (*schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSlotIn(ctx, s.db, id)
}

func getSlotIn(ctx context.Context, q dbtx, id string) (*schedule.Slot, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+slotColumns+" FROM schedule_slots WHERE id = ?", id)
	slot, err := scanSlot(row)
	if err == sql.ErrNoRows {
		return nil, schedule.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return slot, nil
}

func (s *Store) ListSlotsForRoom(ctx context.Context, roomID string) ([]schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listSlotsForRoomIn(ctx, s.db, roomID)
}

func listSlotsForRoomIn(ctx context.Context, q dbtx, roomID string) ([]schedule.Slot, error) {
	return querySlots(ctx, q, `
		SELECT `+slotJoinColumns+`
		FROM schedule_slots s
		JOIN lessons l ON s.lesson_id = l.id
		WHERE l.room_id = ? AND l.is_active = TRUE
		ORDER BY s.id ASC`, roomID)
}

func (s *Store) ListSlotsForLesson(ctx context.Context, lessonID string) ([]schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querySlots(ctx, s.db,
		"SELECT "+slotColumns+" FROM schedule_slots WHERE lesson_id = ? ORDER BY id ASC", lessonID)
}

// ListSlots returns every slot whose lesson is still active, for the
// whole-school schedule view.
func (s *Store) ListSlots(ctx context.Context) ([]schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querySlots(ctx, s.db, `
		SELECT `+slotJoinColumns+`
		FROM schedule_slots s
		JOIN lessons l ON s.lesson_id = l.id
		WHERE l.is_active = TRUE
		ORDER BY s.day_of_week ASC, s.start_minute ASC`)
}

// ListSlotsInRange returns active slots whose validity window intersects
// [start, end]. Dates are stored as YYYY-MM-DD so string comparison works.
func (s *Store) ListSlotsInRange(ctx context.Context, start, end schedule.Date) ([]schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querySlots(ctx, s.db, `
		SELECT `+slotJoinColumns+`
		FROM schedule_slots s
		JOIN lessons l ON s.lesson_id = l.id
		WHERE l.is_active = TRUE
		  AND s.valid_from <= ?
		  AND (s.valid_to IS NULL OR s.valid_to >= ?)
		ORDER BY s.day_of_week ASC, s.start_minute ASC`,
		end.String(), start.String())
}

// ListSlotsForTeacher returns active slots for one teacher's lessons.
func (s *Store) ListSlotsForTeacher(ctx context.Context, teacherID string) ([]schedule.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querySlots(ctx, s.db, `
		SELECT `+slotJoinColumns+`
		FROM schedule_slots s
		JOIN lessons l ON s.lesson_id = l.id
		WHERE l.teacher_id = ? AND l.is_active = TRUE
		ORDER BY s.day_of_week ASC, s.start_minute ASC`, teacherID)
}

func (s *Store) CreateSlot(ctx context.Context, slot schedule.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createSlotIn(ctx, s.db, slot)
}

func createSlotIn(ctx context.Context, q dbtx, slot schedule.Slot) error {
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO schedule_slots (id, lesson_id, day_of_week, start_minute, end_minute, recurring, valid_from, valid_to, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slot.ID, slot.LessonID, int(slot.Day), int(slot.Start), int(slot.End),
		slot.Recurring, slot.ValidFrom.String(), dateOrNil(slot.ValidTo),
		slot.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (s *Store) UpdateSlot(ctx context.Context, slot schedule.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateSlotIn(ctx, s.db, slot)
}

func updateSlotIn(ctx context.Context, q dbtx, slot schedule.Slot) error {
	res, err := q.ExecContext(ctx, `
		UPDATE schedule_slots
		SET day_of_week = ?, start_minute = ?, end_minute = ?, recurring = ?, valid_from = ?, valid_to = ?
		WHERE id = ?`,
		int(slot.Day), int(slot.Start), int(slot.End), slot.Recurring,
		slot.ValidFrom.String(), dateOrNil(slot.ValidTo), slot.ID)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrSlotNotFound
	}
	return nil
}

func (s *Store) DeleteSlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteSlotIn(ctx, s.db, id)
}

func deleteSlotIn(ctx context.Context, q dbtx, id string) error {
	res, err := q.ExecContext(ctx, "DELETE FROM schedule_slots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrSlotNotFound
	}
	return nil
}

// WithTx executes fn within a database transaction, holding the store's
// write lock so check-then-commit sequences cannot interleave.
func (s *Store) WithTx(ctx context.Context, fn func(schedule.TxView) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&slotTx{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type slotTx struct {
	tx *sql.Tx
}

func (t *slotTx) GetLesson(ctx context.Context, id string) (*schedule.Lesson, error) {
	return getLessonIn(ctx, t.tx, id)
}

func (t *slotTx) GetSlot(ctx context.Context, id string) (*schedule.Slot, error) {
	return getSlotIn(ctx, t.tx, id)
}

func (t *slotTx) ListSlotsForRoom(ctx context.Context, roomID string) ([]schedule.Slot, error) {
	return listSlotsForRoomIn(ctx, t.tx, roomID)
}

func (t *slotTx) ListSlotsForLesson(ctx context.Context, lessonID string) ([]schedule.Slot, error) {
	return querySlots(ctx, t.tx,
		"SELECT "+slotColumns+" FROM schedule_slots WHERE lesson_id = ? ORDER BY id ASC", lessonID)
}

func (t *slotTx) CreateSlot(ctx context.Context, slot schedule.Slot) error {
	return createSlotIn(ctx, t.tx, slot)
}

func (t *slotTx) UpdateSlot(ctx context.Context, slot schedule.Slot) error {
	return updateSlotIn(ctx, t.tx, slot)
}

func (t *slotTx) DeleteSlot(ctx context.Context, id string) error {
	return deleteSlotIn(ctx, t.tx, id)
}

func querySlots(ctx context.Context, q dbtx, query string, args ...any) ([]schedule.Slot, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	var out []schedule.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		out = append(out, *slot)
	}
	return out, rows.Err()
}

func scanSlot(row rowScanner) (*schedule.Slot, error) {
	var slot schedule.Slot
	var day, start, end int
	var validFrom, createdAt string
	var validTo sql.NullString
	err := row.Scan(&slot.ID, &slot.LessonID, &day, &start, &end,
		&slot.Recurring, &validFrom, &validTo, &createdAt)
	if err != nil {
		return nil, err
	}
	slot.Day = time.Weekday(day)
	slot.Start = schedule.TimeOfDay(start)
	slot.End = schedule.TimeOfDay(end)
	if slot.ValidFrom, err = schedule.ParseDate(validFrom); err != nil {
		return nil, fmt.Errorf("failed to parse slot valid_from: %w", err)
	}
	if validTo.Valid {
		d, err := schedule.ParseDate(validTo.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse slot valid_to: %w", err)
		}
		slot.ValidTo = &d
	}
	slot.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &slot, nil
}

// =============================================================================
// PAYMENTS (payroll.PaymentStore)
// =============================================================================

const paymentColumns = `id, teacher_id, amount, payment_date, month, year, status, source, notes, created_at`

func (s *Store) GetPayment(ctx context.Context, id string) (*payroll.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPaymentIn(ctx, s.db, id)
}

func getPaymentIn(ctx context.Context, q dbtx, id string) (*payroll.Payment, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, payroll.ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (s *Store) ListPayments(ctx context.Context) ([]payroll.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPayments(ctx, s.db,
		"SELECT "+paymentColumns+" FROM payments ORDER BY year DESC, month DESC, payment_date DESC")
}

func (s *Store) ListPaymentsForPeriod(ctx context.Context, year, month int) ([]payroll.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPaymentsForPeriodIn(ctx, s.db, year, month)
}

func listPaymentsForPeriodIn(ctx context.Context, q dbtx, year, month int) ([]payroll.Payment, error) {
	return queryPayments(ctx, q,
		"SELECT "+paymentColumns+" FROM payments WHERE year = ? AND month = ? ORDER BY payment_date DESC, id ASC",
		year, month)
}

func (s *Store) ListPaymentsForTeacher(ctx context.Context, teacherID string) ([]payroll.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPayments(ctx, s.db,
		"SELECT "+paymentColumns+" FROM payments WHERE teacher_id = ? ORDER BY year DESC, month DESC, payment_date DESC",
		teacherID)
}

func (s *Store) CreatePayment(ctx context.Context, p payroll.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createPaymentIn(ctx, s.db, p)
}

func createPaymentIn(ctx context.Context, q dbtx, p payroll.Payment) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO payments (id, teacher_id, amount, payment_date, month, year, status, source, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TeacherID, p.Amount.String(), p.PaymentDate.String(),
		p.Month, p.Year, string(p.Status), string(p.Source), nullString(p.Notes),
		p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return payroll.ErrSettlementExists
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (s *Store) UpdatePayment(ctx context.Context, p payroll.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePaymentIn(ctx, s.db, p)
}

func updatePaymentIn(ctx context.Context, q dbtx, p payroll.Payment) error {
	res, err := q.ExecContext(ctx, `
		UPDATE payments
		SET amount = ?, payment_date = ?, month = ?, year = ?, status = ?, notes = ?
		WHERE id = ?`,
		p.Amount.String(), p.PaymentDate.String(), p.Month, p.Year,
		string(p.Status), nullString(p.Notes), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payroll.ErrPaymentNotFound
	}
	return nil
}

func (s *Store) DeletePayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deletePaymentIn(ctx, s.db, id)
}

func deletePaymentIn(ctx context.Context, q dbtx, id string) error {
	res, err := q.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return payroll.ErrPaymentNotFound
	}
	return nil
}

func queryPayments(ctx context.Context, q dbtx, query string, args ...any) ([]payroll.Payment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []payroll.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPayment(row rowScanner) (*payroll.Payment, error) {
	var p payroll.Payment
	var amount, paymentDate, status, source, createdAt string
	var notes sql.NullString
	err := row.Scan(&p.ID, &p.TeacherID, &amount, &paymentDate, &p.Month, &p.Year,
		&status, &source, &notes, &createdAt)
	if err != nil {
		return nil, err
	}
	p.Amount, _ = decimal.NewFromString(amount)
	if p.PaymentDate, err = schedule.ParseDate(paymentDate); err != nil {
		return nil, fmt.Errorf("failed to parse payment date: %w", err)
	}
	p.Status = payroll.PaymentStatus(status)
	p.Source = payroll.PaymentSource(source)
	p.Notes = notes.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// =============================================================================
// PAYMENT TRANSACTIONS (payroll.TxPaymentStore)
// =============================================================================

// PaymentTx adapts the store for the settlement engine: shared data and
// mutex, a payment-scoped WithTx.
type PaymentTx struct{ *Store }

func (p PaymentTx) WithTx(ctx context.Context, fn func(payroll.PaymentStore) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&paymentTx{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type paymentTx struct {
	tx *sql.Tx
}

func (t *paymentTx) GetPayment(ctx context.Context, id string) (*payroll.Payment, error) {
	return getPaymentIn(ctx, t.tx, id)
}

func (t *paymentTx) ListPayments(ctx context.Context) ([]payroll.Payment, error) {
	return queryPayments(ctx, t.tx,
		"SELECT "+paymentColumns+" FROM payments ORDER BY year DESC, month DESC, payment_date DESC")
}

func (t *paymentTx) ListPaymentsForPeriod(ctx context.Context, year, month int) ([]payroll.Payment, error) {
	return listPaymentsForPeriodIn(ctx, t.tx, year, month)
}

func (t *paymentTx) ListPaymentsForTeacher(ctx context.Context, teacherID string) ([]payroll.Payment, error) {
	return queryPayments(ctx, t.tx,
		"SELECT "+paymentColumns+" FROM payments WHERE teacher_id = ? ORDER BY year DESC, month DESC, payment_date DESC",
		teacherID)
}

func (t *paymentTx) CreatePayment(ctx context.Context, p payroll.Payment) error {
	return createPaymentIn(ctx, t.tx, p)
}

func (t *paymentTx) UpdatePayment(ctx context.Context, p payroll.Payment) error {
	return updatePaymentIn(ctx, t.tx, p)
}

func (t *paymentTx) DeletePayment(ctx context.Context, id string) error {
	return deletePaymentIn(ctx, t.tx, id)
}

// =============================================================================
// REPORTS
// =============================================================================

// EarningsRow is one line of the paid-revenue report: one teacher, one
// settled period.
type EarningsRow struct {
	TeacherID string
	FirstName string
	LastName  string
	Month     int
	Year      int
	Revenue   decimal.Decimal
}

// EarningsReport sums paid payments per teacher per period. Amounts are
// summed in Go with decimals rather than in SQL, since they are stored as
// text.
func (s *Store) EarningsReport(ctx context.Context) ([]EarningsRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.first_name, t.last_name, p.month, p.year, p.amount
		FROM payments p
		JOIN teachers t ON p.teacher_id = t.id
		WHERE p.status = 'paid'
		ORDER BY p.year DESC, p.month DESC, t.first_name ASC, t.last_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query earnings: %w", err)
	}
	defer rows.Close()

	var out []EarningsRow
	index := make(map[string]int)
	for rows.Next() {
		var teacherID, first, last, amount string
		var month, year int
		if err := rows.Scan(&teacherID, &first, &last, &month, &year, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan earnings row: %w", err)
		}
		a, _ := decimal.NewFromString(amount)
		k := fmt.Sprintf("%s|%d|%d", teacherID, year, month)
		if i, ok := index[k]; ok {
			out[i].Revenue = out[i].Revenue.Add(a)
			continue
		}
		index[k] = len(out)
		out = append(out, EarningsRow{
			TeacherID: teacherID, FirstName: first, LastName: last,
			Month: month, Year: year, Revenue: a,
		})
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// ErrStudentNotFound is returned when a referenced student doesn't exist.
var ErrStudentNotFound = fmt.Errorf("student not found")

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func dateOrNil(d *schedule.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
