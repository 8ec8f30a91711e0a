package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gearguard.io/internal/obs"
)

const (
	upSuffix     = ".up.sql"
	downSuffix   = ".down.sql"
	defaultTable = "schema_migrations"
)

// ErrNothingApplied is returned by Down on an empty history.
var ErrNothingApplied = errors.New("migrate: no migrations applied")

// Migration is one versioned schema step, e.g. "0001_init".
type Migration struct {
	Name string
	Up   string
	Down string
}

// State reports whether a known migration has been applied.
type State struct {
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Manager runs migrations from a filesystem of "<name>.up.sql" and
// "<name>.down.sql" files. Each step and its bookkeeping row commit together.
type Manager struct {
	db    *sql.DB
	files fs.FS
	table string
	now   func() time.Time
	log   logrus.FieldLogger
}

// Option configures Manager.
type Option func(*Manager)

// WithTable overrides the bookkeeping table name.
func WithTable(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.table = name
		}
	}
}

// WithFiles replaces the embedded migration source.
func WithFiles(files fs.FS) Option {
	return func(m *Manager) {
		if files != nil {
			m.files = files
		}
	}
}

func NewManager(db *sql.DB, opts ...Option) *Manager {
	m := &Manager{
		db:    db,
		files: Migrations(),
		table: defaultTable,
		now:   time.Now,
		log:   obs.Logger().WithField("component", "migrate"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Up applies every migration not yet recorded, in name order.
func (m *Manager) Up(ctx context.Context) error {
	all, err := Load(m.files)
	if err != nil {
		return err
	}
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, a := range applied {
		done[a.Name] = true
	}
	for _, mig := range all {
		if done[mig.Name] {
			continue
		}
		err := m.inTx(ctx, mig.Up, fmt.Sprintf(`insert into %s (name, applied_at) values ($1, $2)`, m.table),
			mig.Name, m.now().UTC())
		if err != nil {
			return fmt.Errorf("apply %s: %w", mig.Name, err)
		}
		m.log.WithField("migration", mig.Name).Info("migration applied")
	}
	return nil
}

// Down reverts the most recently applied migration.
func (m *Manager) Down(ctx context.Context) error {
	all, err := Load(m.files)
	if err != nil {
		return err
	}
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return ErrNothingApplied
	}
	last := applied[len(applied)-1].Name
	var mig *Migration
	for i := range all {
		if all[i].Name == last {
			mig = &all[i]
			break
		}
	}
	if mig == nil || mig.Down == "" {
		return fmt.Errorf("migrate: no down script for %s", last)
	}
	if err := m.inTx(ctx, mig.Down, fmt.Sprintf(`delete from %s where name = $1`, m.table), last); err != nil {
		return fmt.Errorf("revert %s: %w", last, err)
	}
	m.log.WithField("migration", last).Info("migration reverted")
	return nil
}

// Status lists every known migration with its applied state. Recorded
// names that no longer exist on disk are appended at the end.
func (m *Manager) Status(ctx context.Context) ([]State, error) {
	all, err := Load(m.files)
	if err != nil {
		return nil, err
	}
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}
	at := make(map[string]time.Time, len(applied))
	for _, a := range applied {
		at[a.Name] = a.AppliedAt
	}
	out := make([]State, 0, len(all))
	for _, mig := range all {
		t, ok := at[mig.Name]
		out = append(out, State{Name: mig.Name, Applied: ok, AppliedAt: t})
		delete(at, mig.Name)
	}
	for _, a := range applied {
		if _, orphan := at[a.Name]; orphan {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Manager) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`create table if not exists %s (
	name text primary key,
	applied_at timestamptz not null default now()
)`, m.table))
	return err
}

func (m *Manager) applied(ctx context.Context) ([]State, error) {
	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`select name, applied_at from %s order by name`, m.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []State
	for rows.Next() {
		s := State{Applied: true}
		if err := rows.Scan(&s.Name, &s.AppliedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// inTx runs script statement by statement, then the bookkeeping statement,
// in a single transaction.
func (m *Manager) inTx(ctx context.Context, script, record string, args ...any) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, stmt := range splitStatements(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return err
	}
	return tx.Commit()
}

// Load reads and pairs the migration files at the root of files, sorted
// by name. A down script without its up script is an error.
func Load(files fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	byName := map[string]*Migration{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		var name string
		var up bool
		switch {
		case strings.HasSuffix(e.Name(), upSuffix):
			name, up = strings.TrimSuffix(e.Name(), upSuffix), true
		case strings.HasSuffix(e.Name(), downSuffix):
			name = strings.TrimSuffix(e.Name(), downSuffix)
		default:
			continue
		}
		body, err := fs.ReadFile(files, e.Name())
		if err != nil {
			return nil, err
		}
		mig, ok := byName[name]
		if !ok {
			mig = &Migration{Name: name}
			byName[name] = mig
		}
		if up {
			mig.Up = string(body)
		} else {
			mig.Down = string(body)
		}
	}
	out := make([]Migration, 0, len(byName))
	for _, mig := range byName {
		if mig.Up == "" {
			return nil, fmt.Errorf("migrate: %s has a down script but no up script", mig.Name)
		}
		out = append(out, *mig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// splitStatements cuts a script on semicolons outside single-quoted
// literals and "--" comments. Empty statements are dropped.
func splitStatements(script string) []string {
	var (
		out     []string
		cur     strings.Builder
		quoted  bool
		comment bool
	)
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}
	for i := 0; i < len(script); i++ {
		c := script[i]
		switch {
		case comment:
			if c == '\n' {
				comment = false
				cur.WriteByte(c)
			}
		case quoted:
			cur.WriteByte(c)
			if c == '\'' {
				quoted = false
			}
		case c == '-' && i+1 < len(script) && script[i+1] == '-':
			comment = true
			i++
		case c == '\'':
			quoted = true
			cur.WriteByte(c)
		case c == ';':
			flush()
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return out
}
