package data

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// Creates a database for testing. For the sake of simplicity, this only uses the
// SQLite engine and creates a new database on every invocation since it is relatively
// cheap to do so.
func setUpDatabase(t *testing.T) *gorm.DB {
	testDBFile := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(testDBFile))
	if err != nil {
		t.Fatalf("error initializing test database: %s", err)
	}

	if err = db.AutoMigrate(Models...); err != nil {
		t.Fatalf("error auto migrating db: %s", err)
	}
	return db
}

func TestDialector(t *testing.T) {
	tests := []struct {
		engine  string
		want    string
		wantErr bool
	}{
		{engine: "sqlite", want: "sqlite"},
		{engine: "Postgres", want: "postgres"},
		{engine: "mysql", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			dialector, err := Dialector(tt.engine, "source")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Dialector() wantErr = %v, error = %v", tt.wantErr, err)
			}
			if tt.wantErr {
				return
			}
			if dialector.Name() != tt.want {
				t.Errorf("Dialector() want = %s, got = %s", tt.want, dialector.Name())
			}
		})
	}
}

func TestOpen(t *testing.T) {
	dialector, err := Dialector("sqlite", filepath.Join(t.TempDir(), "open.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	db, err := Open(dialector, false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !db.Migrator().HasTable(&ModeStats{}) {
		t.Errorf("Open() did not migrate mode_stats")
	}
	if err := Close(db); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
