package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/CMSgov/hpt-validator-sub001/internal/runner"
)

// printer writes reports as text or as JSON lines. Watch and schedule modes
// print from worker goroutines, hence the lock.
type printer struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

func (p *printer) print(reports ...runner.Report) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.json {
		enc := json.NewEncoder(p.w)
		for _, rep := range reports {
			_ = enc.Encode(rep)
		}
		return
	}
	for _, rep := range reports {
		writeText(p.w, rep)
	}
}

func writeText(w io.Writer, rep runner.Report) {
	res := rep.Result
	switch {
	case rep.Error != "":
		fmt.Fprintf(w, "%s: failed: %s\n", rep.Name, rep.Error)
		return
	case res.Valid:
		fmt.Fprintf(w, "%s: valid (%s, version %s, %d rows)\n", rep.Name, rep.Format, rep.Version, rep.Rows)
	default:
		fmt.Fprintf(w, "%s: invalid (%s, version %s): %d error(s)\n", rep.Name, rep.Format, rep.Version, res.ErrorCount())
	}
	if n := res.WarningCount(); n > 0 || len(res.Alerts) > 0 {
		fmt.Fprintf(w, "  %d warning(s), %d alert(s)\n", n, len(res.Alerts))
	}
	for _, v := range res.Errors {
		kind := "error"
		if v.Warning {
			kind = "warning"
		}
		writeViolation(w, kind, v.Path, v.Field, v.Message)
	}
	for _, v := range res.Alerts {
		writeViolation(w, "alert", v.Path, v.Field, v.Message)
	}
}

func writeViolation(w io.Writer, kind, path, field, msg string) {
	if field != "" {
		fmt.Fprintf(w, "  %-7s %-8s %s: %s\n", kind, path, field, msg)
		return
	}
	fmt.Fprintf(w, "  %-7s %-8s %s\n", kind, path, msg)
}
