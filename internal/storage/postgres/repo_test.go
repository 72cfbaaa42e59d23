package postgres

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/CMSgov/hpt-validator-sub001/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeTx records what SaveRun sends. Methods SaveRun does not use fall
// through to the nil embedded interface and would panic.
type fakeTx struct {
	pgx.Tx

	execs      []string
	copied     [][]any
	copyCalls  int
	copyErr    error
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, sql)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeTx) CopyFrom(ctx context.Context, table pgx.Identifier, cols []string, src pgx.CopyFromSource) (int64, error) {
	f.copyCalls++
	if f.copyErr != nil {
		return 0, f.copyErr
	}
	var n int64
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			return n, err
		}
		f.copied = append(f.copied, vals)
		n++
	}
	return n, nil
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

type fakePool struct {
	tx     *fakeTx
	execs  []string
	closed bool
}

func (p *fakePool) Begin(ctx context.Context) (pgx.Tx, error) { return p.tx, nil }
func (p *fakePool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, sql)
	return pgconn.CommandTag{}, nil
}
func (p *fakePool) Close() { p.closed = true }

func run(n int) storage.Run {
	r := storage.Run{ID: "r", Job: "j", Version: "v3.0.0", Format: "csv", StartedAt: time.Now()}
	for i := 0; i < n; i++ {
		r.Violations = append(r.Violations, storage.Violation{Seq: i, Kind: storage.KindError, Path: "A4", Message: "m"})
	}
	return r
}

func TestSaveRun_CopiesViolationsInBatches(t *testing.T) {
	t.Parallel()

	p := &fakePool{tx: &fakeTx{}}
	r := newWithPool(p)
	r.batchSize = 2

	if err := r.SaveRun(context.Background(), run(5)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	tx := p.tx
	if len(tx.execs) != 1 || !strings.HasPrefix(tx.execs[0], `INSERT INTO "hpt_runs"`) {
		t.Fatalf("execs = %v", tx.execs)
	}
	if !strings.Contains(tx.execs[0], "$14") {
		t.Fatalf("run insert should bind 14 params: %s", tx.execs[0])
	}
	if tx.copyCalls != 3 || len(tx.copied) != 5 {
		t.Fatalf("copy calls=%d rows=%d, want 3, 5", tx.copyCalls, len(tx.copied))
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}

func TestSaveRun_RollsBackOnCopyError(t *testing.T) {
	t.Parallel()

	p := &fakePool{tx: &fakeTx{copyErr: &pgconn.PgError{Message: "bad", Detail: "Key (run_id, seq) exists"}}}
	r := newWithPool(p)

	err := r.SaveRun(context.Background(), run(1))
	if err == nil || !strings.Contains(err.Error(), "Key (run_id, seq) exists") {
		t.Fatalf("err = %v, want detail surfaced", err)
	}
	if p.tx.committed || !p.tx.rolledBack {
		t.Fatalf("committed=%v rolledBack=%v", p.tx.committed, p.tx.rolledBack)
	}
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	p := &fakePool{}
	r := newWithPool(p)
	if err := r.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if len(p.execs) != 2 {
		t.Fatalf("execs = %v, want 2 statements", p.execs)
	}
	if !strings.Contains(p.execs[0], `CREATE TABLE IF NOT EXISTS "hpt_runs"`) ||
		!strings.Contains(p.execs[0], `"started_at" TIMESTAMPTZ NOT NULL`) {
		t.Fatalf("runs DDL = %s", p.execs[0])
	}
	if !strings.Contains(p.execs[1], `PRIMARY KEY ("run_id", "seq")`) {
		t.Fatalf("violations DDL = %s", p.execs[1])
	}
	r.Close()
	if !p.closed {
		t.Fatalf("Close did not close pool")
	}
}

func TestRegistration_UsesHook(t *testing.T) {
	orig := newRepository
	defer func() { newRepository = orig }()

	p := &fakePool{}
	newRepository = func(ctx context.Context, cfg storage.Config) (*Repository, error) {
		return newWithPool(p), nil
	}

	repo, err := storage.New(context.Background(), storage.Config{Kind: "postgres", DSN: "postgres://x", AutoCreate: true})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if len(p.execs) != 2 {
		t.Fatalf("AutoCreate should run two DDL statements, got %d", len(p.execs))
	}
	repo.Close()

	want := errors.New("hooked")
	newRepository = func(ctx context.Context, cfg storage.Config) (*Repository, error) { return nil, want }
	if _, err := storage.New(context.Background(), storage.Config{Kind: "postgres"}); !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

// TestIntegration_SaveRun runs against a real server when PG_TEST_DSN is set.
func TestIntegration_SaveRun(t *testing.T) {
	dsn := os.Getenv("PG_TEST_DSN")
	if dsn == "" {
		t.Skip("PG_TEST_DSN not set")
	}
	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn, AutoCreate: true})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer repo.Close()

	r := run(3)
	r.ID = "it-" + time.Now().Format("150405.000000000")
	if err := repo.SaveRun(ctx, r); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
}
