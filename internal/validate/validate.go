// Package validate runs inquiry tasks against their resources and merges the
// results into one Report. Tasks are independent and run on a bounded
// errgroup pool; each task owns its resources.
package validate

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"tabular/internal/config"
	"tabular/internal/errs"
	"tabular/internal/metrics"
	"tabular/internal/resource"
	"tabular/internal/stats"
	"tabular/internal/system"
)

// DefaultErrorLimit caps the errors kept per task.
const DefaultErrorLimit = 1000

// Options tunes a Run.
type Options struct {
	// Workers bounds concurrent tasks. Zero falls back to the inquiry, then
	// to one per CPU.
	Workers int
	// ErrorLimit stops a task once it has collected this many errors.
	ErrorLimit int
	// Registry defaults to system.Default.
	Registry *system.Registry
}

// Report is the merged result of an inquiry.
type Report struct {
	ID     uuid.UUID     `json:"id"`
	Job    string        `json:"job"`
	Valid  bool          `json:"valid"`
	Time   float64       `json:"time"`
	Stats  Summary       `json:"stats"`
	Errors []*errs.Error `json:"errors"`
	Tasks  []TaskReport  `json:"tasks"`
}

// Summary totals a report.
type Summary struct {
	Tasks  int `json:"tasks"`
	Rows   int `json:"rows"`
	Errors int `json:"errors"`
}

// TaskReport is the outcome of one task.
type TaskReport struct {
	Name    string        `json:"name"`
	Path    string        `json:"path,omitempty"`
	Scheme  string        `json:"scheme,omitempty"`
	Format  string        `json:"format,omitempty"`
	Valid   bool          `json:"valid"`
	Partial bool          `json:"partial,omitempty"`
	Time    float64       `json:"time"`
	Stats   stats.Stats   `json:"stats"`
	Invalid int           `json:"invalidRows"`
	Header  []string      `json:"header,omitempty"`
	Errors  []*errs.Error `json:"errors"`
}

// Run validates every task of inq. Task failures are recorded in the report;
// the returned error is only set for an invalid inquiry or a canceled ctx.
func Run(ctx context.Context, inq config.Inquiry, opts Options) (*Report, error) {
	if issues := config.ValidateInquiry(inq); config.HasErrors(issues) {
		for _, iss := range issues {
			if iss.Severity == config.SeverityError {
				return nil, fmt.Errorf("validate: inquiry: %w", iss)
			}
		}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = inq.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	job := inq.Job
	if job == "" {
		job = "default"
	}

	start := time.Now()
	results := make([]TaskReport, len(inq.Tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range inq.Tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = runTask(gctx, job, t, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	rep := &Report{
		ID:     uuid.New(),
		Job:    job,
		Valid:  true,
		Time:   time.Since(start).Seconds(),
		Errors: []*errs.Error{},
		Tasks:  results,
	}
	for _, tr := range results {
		rep.Stats.Tasks++
		rep.Stats.Rows += tr.Stats.Rows
		rep.Stats.Errors += len(tr.Errors)
		rep.Errors = append(rep.Errors, tr.Errors...)
		if !tr.Valid {
			rep.Valid = false
		}
	}
	log.Printf("validate: job=%s id=%s tasks=%d rows=%d errors=%d valid=%t",
		job, rep.ID, rep.Stats.Tasks, rep.Stats.Rows, rep.Stats.Errors, rep.Valid)
	return rep, nil
}

// Task validates a single task outside an inquiry.
func Task(ctx context.Context, t config.Task, opts Options) TaskReport {
	return runTask(ctx, "default", t, opts)
}

func runTask(ctx context.Context, job string, t config.Task, opts Options) TaskReport {
	start := time.Now()
	tr := check(ctx, t, opts)
	tr.Time = time.Since(start).Seconds()

	status := "valid"
	if !tr.Valid {
		status = "invalid"
	}
	metrics.RecordTask(job, tr.Name, status, time.Since(start))
	metrics.RecordRows(job, "read", int64(tr.Stats.Rows))
	metrics.RecordRows(job, "invalid", int64(tr.Invalid))
	return tr
}

func check(ctx context.Context, t config.Task, opts Options) TaskReport {
	tr := TaskReport{Name: t.Name, Path: t.Path, Errors: []*errs.Error{}}
	limit := opts.ErrorLimit
	if limit <= 0 {
		limit = DefaultErrorLimit
	}

	ropts := resource.FromTask(t)
	ropts.Registry = opts.Registry
	if ropts.OnError != config.OnErrorRaise {
		// Errors are collected from rows and the header, not reported twice.
		ropts.OnError = config.OnErrorIgnore
	}
	if len(t.Resources) > 0 {
		cat := resource.Catalog{}
		for _, rt := range t.Resources {
			ro := resource.FromTask(rt)
			ro.Registry = opts.Registry
			cat[rt.Name] = ro
		}
		ropts.Package = cat
	}

	res, err := resource.New(ropts)
	if err != nil {
		tr.Errors = append(tr.Errors, asError(err))
		return tr
	}
	tr.Name = res.Name()
	loc := res.Location()
	tr.Scheme, tr.Format = loc.Scheme, loc.Format

	if err := res.Open(ctx); err != nil {
		tr.Errors = append(tr.Errors, asError(err))
		return tr
	}
	defer res.Close()

	if h := res.Header(); h != nil {
		tr.Header = h.Labels
		tr.Errors = append(tr.Errors, h.Errors...)
	}

	for row, err := range res.Rows(ctx) {
		if err != nil {
			if ctx.Err() != nil {
				tr.Partial = true
			}
			// Header errors were collected above.
			if !errs.IsKind(err, errs.KindHeader) {
				tr.Errors = append(tr.Errors, asError(err))
			}
			break
		}
		if !row.Valid() {
			tr.Invalid++
			tr.Errors = append(tr.Errors, row.Errors...)
		}
		if len(tr.Errors) >= limit {
			tr.Errors = tr.Errors[:limit]
			tr.Partial = true
			break
		}
	}
	tr.Stats = res.Stats()
	tr.Valid = len(tr.Errors) == 0
	return tr
}

// asError keeps domain errors and wraps everything else as a resource error.
func asError(err error) *errs.Error {
	if e, ok := errs.As(err); ok {
		return e
	}
	return errs.Wrap(errs.CodeResource, err)
}
