package migrate

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/thesisreg/backend/migrations"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"000000_init.up.sql":     {Data: []byte("CREATE TABLE migrations (version INT PRIMARY KEY);")},
		"000000_init.down.sql":   {Data: []byte("DROP TABLE migrations;")},
		"000001_groups.up.sql":   {Data: []byte("CREATE TABLE a (id INT);\nCREATE TABLE b (id INT);")},
		"000001_groups.down.sql": {Data: []byte("DROP TABLE b; DROP TABLE a;")},
		"README.md":              {Data: []byte("ignored")},
	}
}

func TestLoadMigrationsOrdersByVersion(t *testing.T) {
	loaded, err := LoadMigrations(testFS())
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(loaded))
	}
	for i, migration := range loaded {
		if migration.Version != i {
			t.Fatalf("expected version %d at index %d, got %d", i, i, migration.Version)
		}
		if migration.UpSQL == "" || migration.DownSQL == "" {
			t.Fatalf("migration %d is missing a direction: %+v", i, migration)
		}
	}
}

func TestLoadMigrationsRejectsGapsAndMissingUp(t *testing.T) {
	gap := fstest.MapFS{
		"000000_init.up.sql":  {Data: []byte("SELECT 1")},
		"000002_later.up.sql": {Data: []byte("SELECT 2")},
	}
	if _, err := LoadMigrations(gap); err == nil {
		t.Fatal("expected a version gap to fail")
	}

	downOnly := fstest.MapFS{
		"000000_init.down.sql": {Data: []byte("SELECT 1")},
	}
	if _, err := LoadMigrations(downOnly); err == nil {
		t.Fatal("expected a missing up file to fail")
	}

	if _, err := LoadMigrations(fstest.MapFS{}); err == nil {
		t.Fatal("expected an empty directory to fail")
	}
}

func TestEmbeddedMigrationsLoad(t *testing.T) {
	loaded, err := LoadMigrations(migrations.FS)
	if err != nil {
		t.Fatalf("load embedded migrations: %v", err)
	}
	if len(loaded) < 3 {
		t.Fatalf("expected at least 3 embedded migrations, got %d", len(loaded))
	}
}

func TestUpAppliesEveryPendingMigration(t *testing.T) {
	mock, err := pgxmock.NewConn()
	if err != nil {
		t.Fatalf("create mock conn: %v", err)
	}
	loaded, err := LoadMigrations(testFS())
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	migrator := NewMigratorWithConn(mock, loaded)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(version) FROM migrations")).
		WillReturnError(&pgconn.PgError{Code: "42P01"})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE migrations")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO migrations")).WithArgs(0).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE a")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b")).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO migrations")).WithArgs(1).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := migrator.Up(context.Background()); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownRollsBackLatestMigration(t *testing.T) {
	mock, err := pgxmock.NewConn()
	if err != nil {
		t.Fatalf("create mock conn: %v", err)
	}
	loaded, err := LoadMigrations(testFS())
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	migrator := NewMigratorWithConn(mock, loaded)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(version) FROM migrations")).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(int64(1)))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE b")).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE a")).WillReturnResult(pgxmock.NewResult("DROP", 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM migrations")).WithArgs(1).WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	if err := migrator.Down(context.Background()); err != nil {
		t.Fatalf("down: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDownWithNothingApplied(t *testing.T) {
	mock, err := pgxmock.NewConn()
	if err != nil {
		t.Fatalf("create mock conn: %v", err)
	}
	loaded, err := LoadMigrations(testFS())
	if err != nil {
		t.Fatalf("load migrations: %v", err)
	}
	migrator := NewMigratorWithConn(mock, loaded)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(version) FROM migrations")).
		WillReturnError(&pgconn.PgError{Code: "42P01"})

	if err := migrator.Down(context.Background()); err == nil {
		t.Fatal("expected rollback with nothing applied to fail")
	}
}
