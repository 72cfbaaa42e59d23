package file

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeMRF(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLocalOpen(t *testing.T) {
	t.Parallel()

	const header = "hospital_name,last_updated_on,version\n"
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name    string
		path    func(t *testing.T) string
		ctx     context.Context
		want    string
		wantErr error
	}{
		{
			name: "reads file",
			path: func(t *testing.T) string { return writeMRF(t, "mrf.csv", header) },
			ctx:  context.Background(),
			want: header,
		},
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.json") },
			ctx:     context.Background(),
			wantErr: os.ErrNotExist,
		},
		{
			name:    "canceled before open",
			path:    func(t *testing.T) string { return writeMRF(t, "mrf.csv", header) },
			ctx:     canceled,
			wantErr: context.Canceled,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := tt.path(t)
			rc, err := NewLocal(path).Open(tt.ctx)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if rc != nil {
					rc.Close()
					t.Fatalf("got a reader alongside the error")
				}
				if errors.Is(tt.wantErr, os.ErrNotExist) && !strings.Contains(err.Error(), path) {
					t.Fatalf("error %q does not name the path", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer rc.Close()
			got, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocalName(t *testing.T) {
	t.Parallel()

	l := NewLocal(filepath.Join("data", "in", "123_h_standardcharges.json"))
	if got := l.Name(); got != "123_h_standardcharges.json" {
		t.Fatalf("Name() = %q", got)
	}
	if got := l.WithName("").Name(); got != "123_h_standardcharges.json" {
		t.Fatalf("empty override changed name to %q", got)
	}
	if got := l.WithName("upload.csv").Name(); got != "upload.csv" {
		t.Fatalf("override Name() = %q", got)
	}
	if l.Path() != filepath.Join("data", "in", "123_h_standardcharges.json") {
		t.Fatalf("Path() = %q", l.Path())
	}
}
