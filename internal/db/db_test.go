package db_test

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	dbpkg "github.com/garnizeh/bidboard/internal/db"
)

func openTemp(t *testing.T) *dbpkg.DB {
	t.Helper()
	dsn := dbpkg.FileDSN(filepath.Join(t.TempDir(), "test.db"), 5*time.Second)
	d, err := dbpkg.New(context.Background(), dsn, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestNew_Close_GetConn(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	d, err := dbpkg.New(ctx, "file::memory:", nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	conn := d.GetConn()
	if conn == nil {
		t.Fatalf("expected non-nil sql.DB from GetConn")
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestFileDSN(t *testing.T) {
	dsn := dbpkg.FileDSN("/tmp/market.db", 1500*time.Millisecond)

	if !strings.HasPrefix(dsn, "file:/tmp/market.db?") {
		t.Fatalf("unexpected prefix: %s", dsn)
	}
	for _, want := range []string{"_txlock=immediate", "busy_timeout%281500%29", "journal_mode%28WAL%29", "foreign_keys%281%29"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %q missing %q", dsn, want)
		}
	}

	if again := dbpkg.FileDSN("file:/tmp/market.db", time.Second); strings.Count(again, "file:") != 1 {
		t.Fatalf("file: prefix duplicated: %s", again)
	}
}

func TestExec_QueryRow_QueryRows(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)

	_, err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS items (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT);`)
	if err != nil {
		t.Fatalf("Exec create table returned error: %v", err)
	}

	res, err := d.Exec(ctx, `INSERT INTO items (name) VALUES (?), (?)`, "foo", "bar")
	if err != nil {
		t.Fatalf("Exec insert returned error: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 2 {
		t.Fatalf("expected 2 rows affected got %d", n)
	}

	var name string
	if err := d.QueryRow(ctx, `SELECT name FROM items WHERE id = 1`).Scan(&name); err != nil {
		t.Fatalf("QueryRow scan returned error: %v", err)
	}
	if name != "foo" {
		t.Fatalf("expected name 'foo' got %q", name)
	}

	rows, err := d.QueryRows(ctx, `SELECT name FROM items ORDER BY id`)
	if err != nil {
		t.Fatalf("QueryRows: %v", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			t.Fatalf("scan: %v", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if strings.Join(names, ",") != "foo,bar" {
		t.Fatalf("unexpected names %v", names)
	}
}

// Two transactions on the same file must not interleave: the second BeginTx
// waits until the first commits.
func TestBeginTx_SerializesWriters(t *testing.T) {
	ctx := context.Background()
	d := openTemp(t)
	if _, err := d.Exec(ctx, `CREATE TABLE counter (n INTEGER NOT NULL); INSERT INTO counter (n) VALUES (0);`); err != nil {
		t.Fatalf("setup: %v", err)
	}

	const workers = 6
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for _i := 0; _i < workers; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := d.BeginTx(ctx)
			if err != nil {
				errs <- err
				return
			}
			var n int
			if err := tx.QueryRowContext(ctx, `SELECT n FROM counter`).Scan(&n); err != nil {
				_ = tx.Rollback()
				errs <- err
				return
			}
			time.Sleep(5 * time.Millisecond)
			if _, err := tx.ExecContext(ctx, `UPDATE counter SET n = ?`, n+1); err != nil {
				_ = tx.Rollback()
				errs <- err
				return
			}
			errs <- tx.Commit()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("worker: %v", err)
		}
	}

	var n int
	if err := d.QueryRow(ctx, `SELECT n FROM counter`).Scan(&n); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != workers {
		t.Fatalf("lost update: expected %d got %d", workers, n)
	}
}

func TestNew_BadDSN(t *testing.T) {
	ctx := context.Background()
	_, err := dbpkg.New(ctx, "file:"+filepath.Join(t.TempDir(), "missing", "dir", "x.db")+"?mode=ro", nil)
	if err == nil {
		t.Fatalf("expected error for bad DSN, got nil")
	}
}
