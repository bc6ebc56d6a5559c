// Package persistence provides the platform-scope database handle. Its
// statements are not defined here: extensions contribute them at platform
// scope as ConfExtension components, and the handle collects them once every
// extension has contributed.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/danpasecinic/nest"
	"github.com/danpasecinic/nest/config"
)

var (
	ErrUnknownStatement   = errors.New("unknown statement")
	ErrDuplicateStatement = errors.New("statement already defined")
	ErrEmptyStatement     = errors.New("statement name or query is empty")
)

// Statement is a named query.
type Statement struct {
	Name  string
	Query string
}

// ConfExtension is contributed at platform scope by extensions that need
// their own statements.
type ConfExtension interface {
	Statements() []Statement
}

// Statements is a ConfExtension backed by a fixed list.
type Statements []Statement

func (s Statements) Statements() []Statement {
	return s
}

type Database struct {
	db     *sqlx.DB
	logger *zap.Logger

	mu         sync.RWMutex
	statements map[string]string
}

func New(db *sqlx.DB, logger *zap.Logger) *Database {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Database{
		db:         db,
		logger:     logger.Named("persistence"),
		statements: make(map[string]string),
	}
}

// Open prepares a handle from database.driver, database.url,
// database.username and database.password. No connection is made until
// Init pings it.
func Open(props config.Props, logger *zap.Logger) (*Database, error) {
	driver := props.Get(config.DatabaseDriver, "postgres")
	dsn, err := DSN(
		props.Get(config.DatabaseURL, ""),
		props.Get(config.DatabaseUsername, ""),
		props.Get(config.DatabasePassword, ""),
	)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	return New(db, logger), nil
}

// DSN puts the credentials into endpoint. URL endpoints get them as user
// info; key=value endpoints get user and password keys appended.
func DSN(endpoint, username, password string) (string, error) {
	if endpoint == "" {
		return "", errors.New("database endpoint is empty")
	}

	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("parse database endpoint: %w", err)
		}
		if username != "" {
			u.User = url.UserPassword(username, password)
		}
		return u.String(), nil
	}

	var b strings.Builder
	b.WriteString(endpoint)
	if username != "" {
		b.WriteString(" user=" + quoteValue(username))
	}
	if password != "" {
		b.WriteString(" password=" + quoteValue(password))
	}
	return b.String(), nil
}

func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Init collects the statements of every ConfExtension in the same scope, in
// registration order, and checks the connection.
func (d *Database) Init(ctx context.Context, c *nest.Container) error {
	for _, ext := range nest.All[ConfExtension](c) {
		if err := d.Define(ext.Statements()...); err != nil {
			return err
		}
	}

	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	d.logger.Info("database ready",
		zap.String("driver", d.db.DriverName()),
		zap.Int("statements", d.Len()),
	)
	return nil
}

// Define adds statements. A name may only be defined once.
func (d *Database) Define(stmts ...Statement) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, st := range stmts {
		if st.Name == "" || strings.TrimSpace(st.Query) == "" {
			return fmt.Errorf("%w: %q", ErrEmptyStatement, st.Name)
		}
		if _, exists := d.statements[st.Name]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateStatement, st.Name)
		}
		d.statements[st.Name] = st.Query
	}
	return nil
}

func (d *Database) Statement(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	q, ok := d.statements[name]
	return q, ok
}

// Names returns the defined statement names, sorted.
func (d *Database) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.statements))
	for name := range d.statements {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.statements)
}

func (d *Database) query(name string) (string, error) {
	q, ok := d.Statement(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStatement, name)
	}
	return d.db.Rebind(q), nil
}

func (d *Database) Exec(ctx context.Context, name string, args ...any) (sql.Result, error) {
	q, err := d.query(name)
	if err != nil {
		return nil, err
	}
	return d.db.ExecContext(ctx, q, args...)
}

// NamedExec binds arg, a struct or map, to :name placeholders.
func (d *Database) NamedExec(ctx context.Context, name string, arg any) (sql.Result, error) {
	q, ok := d.Statement(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatement, name)
	}
	return d.db.NamedExecContext(ctx, q, arg)
}

func (d *Database) Select(ctx context.Context, dest any, name string, args ...any) error {
	q, err := d.query(name)
	if err != nil {
		return err
	}
	return d.db.SelectContext(ctx, dest, q, args...)
}

func (d *Database) Get(ctx context.Context, dest any, name string, args ...any) error {
	q, err := d.query(name)
	if err != nil {
		return err
	}
	return d.db.GetContext(ctx, dest, q, args...)
}

// DB exposes the underlying handle for work the statement table does not
// cover.
func (d *Database) DB() *sqlx.DB {
	return d.db
}

func (d *Database) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) Close() error {
	d.logger.Debug("closing database")
	return d.db.Close()
}
