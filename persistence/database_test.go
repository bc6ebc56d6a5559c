package persistence_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/danpasecinic/nest"
	"github.com/danpasecinic/nest/config"
	"github.com/danpasecinic/nest/nesttest"
	"github.com/danpasecinic/nest/persistence"
)

type account struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
		sqlmock.MonitorPingsOption(true),
	)
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock
}

func TestDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		user     string
		password string
		want     string
	}{
		{
			name:     "url",
			endpoint: "postgres://db:5432/nest?sslmode=disable",
			user:     "app",
			password: "s3cret",
			want:     "postgres://app:s3cret@db:5432/nest?sslmode=disable",
		},
		{
			name:     "key value",
			endpoint: "host=db dbname=nest",
			user:     "app",
			password: "two words",
			want:     "host=db dbname=nest user=app password='two words'",
		},
		{
			name:     "no credentials",
			endpoint: "host=db",
			want:     "host=db",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := persistence.DSN(tt.endpoint, tt.user, tt.password)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := persistence.DSN("", "u", "p")
	assert.Error(t, err)
}

func TestDefine(t *testing.T) {
	t.Parallel()

	db, _ := newMock(t)
	d := persistence.New(db, zaptest.NewLogger(t))

	require.NoError(t, d.Define(persistence.Statement{Name: "a", Query: "SELECT 1"}))
	assert.ErrorIs(t, d.Define(persistence.Statement{Name: "a", Query: "SELECT 2"}), persistence.ErrDuplicateStatement)
	assert.ErrorIs(t, d.Define(persistence.Statement{Name: "b"}), persistence.ErrEmptyStatement)

	q, ok := d.Statement("a")
	assert.True(t, ok)
	assert.Equal(t, "SELECT 1", q)
	assert.Equal(t, []string{"a"}, d.Names())
}

func TestExecSelectGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, mock := newMock(t)
	d := persistence.New(db, nil)

	require.NoError(t, d.Define(
		persistence.Statement{Name: "rename", Query: "UPDATE accounts SET name = ? WHERE id = ?"},
		persistence.Statement{Name: "list", Query: "SELECT id, name FROM accounts"},
		persistence.Statement{Name: "one", Query: "SELECT id, name FROM accounts WHERE id = ?"},
	))

	mock.ExpectExec("UPDATE accounts SET name = $1 WHERE id = $2").
		WithArgs("carol", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id, name FROM accounts").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "alice").AddRow(2, "bob"))
	mock.ExpectQuery("SELECT id, name FROM accounts WHERE id = $1").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "bob"))

	res, err := d.Exec(ctx, "rename", "carol", 3)
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(1), n)

	var all []account
	require.NoError(t, d.Select(ctx, &all, "list"))
	assert.Equal(t, []account{{1, "alice"}, {2, "bob"}}, all)

	var one account
	require.NoError(t, d.Get(ctx, &one, "one", 2))
	assert.Equal(t, "bob", one.Name)

	_, err = d.Exec(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrUnknownStatement)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuiltinCollectsConfExtensions(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectPing()
	mock.ExpectClose()

	audit := nest.NewExtension("audit").At(nest.ScopePlatform,
		persistence.Contribute("audit", persistence.Statement{Name: "audit.insert", Query: "INSERT INTO audit VALUES (?)"}))
	billing := nest.NewExtension("billing").At(nest.ScopePlatform,
		persistence.Contribute("billing", persistence.Statement{Name: "billing.total", Query: "SELECT sum(amount) FROM invoices"}))

	h := nest.New(
		nest.WithLogger(zaptest.NewLogger(t)),
		nest.WithExtensions(audit, billing),
		nest.WithBuiltins(nest.ScopePlatform, persistence.Builtin(persistence.WithDB(db))),
	)
	ctx := context.Background()
	require.NoError(t, h.Start(ctx, nesttest.Props(t, nil)))

	d, err := nest.Resolve[*persistence.Database](h.ComponentContainer())
	require.NoError(t, err)
	assert.Equal(t, []string{"audit.insert", "billing.total"}, d.Names())

	owner, ok := h.ComponentContainer().Owner(nest.Key[*persistence.Database]())
	require.True(t, ok)
	assert.Equal(t, nest.ScopePlatform, owner.Scope())

	require.NoError(t, h.Stop(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuiltinPingFailureUnwinds(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	mock.ExpectClose()

	h := nest.New(
		nest.WithLogger(zaptest.NewLogger(t)),
		nest.WithBuiltins(nest.ScopePlatform, persistence.Builtin(persistence.WithDB(db))),
	)
	err := h.Start(context.Background(), nesttest.Props(t, nil))
	require.Error(t, err)
	assert.True(t, nest.IsStartupFailed(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Nil(t, h.ComponentContainer())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSharedDBIsLeftOpen(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectPing()
	mock.ExpectPing()

	h := nest.New(
		nest.WithLogger(zaptest.NewLogger(t)),
		nest.WithBuiltins(nest.ScopePlatform, persistence.Builtin(persistence.WithSharedDB(db))),
	)
	ctx := context.Background()
	require.NoError(t, h.Start(ctx, nesttest.Props(t, nil)))
	require.NoError(t, h.Stop(ctx))

	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateStatementAcrossExtensionsFailsStart(t *testing.T) {
	t.Parallel()

	db, mock := newMock(t)
	mock.ExpectClose()

	st := persistence.Statement{Name: "shared", Query: "SELECT 1"}
	a := nest.NewExtension("a").At(nest.ScopePlatform, persistence.Contribute("a", st))
	b := nest.NewExtension("b").At(nest.ScopePlatform, persistence.Contribute("b", st))

	h := nest.New(
		nest.WithExtensions(a, b),
		nest.WithBuiltins(nest.ScopePlatform, persistence.Builtin(persistence.WithDB(db))),
	)
	err := h.Start(context.Background(), nesttest.Props(t, nil))
	assert.True(t, nest.IsStartupFailed(err))
	assert.ErrorIs(t, err, persistence.ErrDuplicateStatement)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenFromProps(t *testing.T) {
	t.Parallel()

	props := nesttest.Props(t, map[string]string{
		config.DatabaseURL: "postgres://localhost:1/nest?sslmode=disable",
	})

	d, err := persistence.Open(props, nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.DB().DriverName())
	require.NoError(t, d.Close())
}
