// Command validate checks tabular resources against their schemas. It runs
// an inquiry file (-config) or a comma-separated list of paths (-list) and
// exits 1 when any task is invalid.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"

	"tabular/internal/config"
	"tabular/internal/datasource/file"
	"tabular/internal/metrics"
	"tabular/internal/metrics/datadog"
	"tabular/internal/metrics/prompush"
	"tabular/internal/validate"

	_ "tabular/internal/datasource/all"
	_ "tabular/internal/parser/all"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	// .env is optional; flags and the real environment still apply.
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath        = fs.String("config", "", "inquiry JSON path")
		list           = fs.String("list", "", "comma-separated resource paths, or @file with one path per line")
		workers        = fs.Int("workers", 0, "concurrent tasks (0 = inquiry value or one per CPU)")
		errorLimit     = fs.Int("error-limit", validate.DefaultErrorLimit, "errors kept per task")
		metricsBackend = fs.String("metrics-backend", "", "metrics backend: pushgateway, datadog or none (overrides env METRICS_BACKEND)")
		pushGatewayURL = fs.String("pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
		statsdAddr     = fs.String("statsd-addr", "", "DogStatsD address (overrides env DD_DOGSTATSD_ADDR)")
		trusted        = fs.Bool("trusted", false, "allow absolute and parent-relative paths")
		dryRun         = fs.Bool("dry-run", false, "lint the inquiry and exit")
		asJSON         = fs.Bool("json", false, "print the report as JSON")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	inq, err := loadInquiry(*cfgPath, *list, *trusted)
	if err != nil {
		fmt.Fprintf(stderr, "validate: %v\n", err)
		return 2
	}

	issues := config.ValidateInquiry(inq)
	for _, iss := range issues {
		fmt.Fprintf(stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("validate: inquiry is invalid")
		return 2
	}
	if *dryRun {
		log.Printf("validate: inquiry is valid tasks=%d", len(inq.Tasks))
		return 0
	}

	if flush := setupMetrics(inq.Job, *metricsBackend, *pushGatewayURL, *statsdAddr); flush != nil {
		defer flush()
	}

	rep, err := validate.Run(ctx, inq, validate.Options{Workers: *workers, ErrorLimit: *errorLimit})
	if err != nil {
		fmt.Fprintf(stderr, "validate: %v\n", err)
		return 2
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(stderr, "validate: encode report: %v\n", err)
			return 2
		}
	} else {
		printReport(stdout, rep)
	}
	if !rep.Valid {
		return 1
	}
	return 0
}

// loadInquiry decodes cfgPath, or builds one task per listed path.
func loadInquiry(cfgPath, list string, trusted bool) (config.Inquiry, error) {
	var inq config.Inquiry
	switch {
	case cfgPath != "" && list != "":
		return inq, fmt.Errorf("-config and -list are mutually exclusive")
	case cfgPath != "":
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return inq, fmt.Errorf("open config: %w", err)
		}
		if err := json.Unmarshal(b, &inq); err != nil {
			return inq, fmt.Errorf("decode config: %w", err)
		}
	case list != "":
		inq.Job = "list"
		paths := strings.Split(list, ",")
		if name, ok := strings.CutPrefix(list, "@"); ok {
			var err error
			if paths, err = file.ReadList(name); err != nil {
				return inq, err
			}
		}
		for _, p := range paths {
			if p = strings.TrimSpace(p); p != "" {
				inq.Tasks = append(inq.Tasks, config.Task{Path: p, Trusted: trusted})
			}
		}
	default:
		return inq, fmt.Errorf("one of -config or -list is required")
	}
	if trusted {
		for i := range inq.Tasks {
			inq.Tasks[i].Trusted = true
		}
	}
	return inq, nil
}

// setupMetrics installs the selected backend: flag, then env, then none.
// It returns a flush func, or nil when metrics are disabled.
func setupMetrics(job, backendName, gwURL, addr string) func() {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if job == "" {
		job = "tabular"
	}
	flush := func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}

	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(job, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init prom push backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, job)
		metrics.SetBackend(b)
		return flush

	case "datadog":
		if addr == "" {
			addr = os.Getenv("DD_DOGSTATSD_ADDR")
		}
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "tabular.",
			GlobalTags: []string{"job:" + job},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return nil
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", addr, backendName, job)
		metrics.SetBackend(b)
		return func() {
			flush()
			_ = b.Close()
		}

	case "", "none":
		return nil

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return nil
	}
}

func printReport(w io.Writer, rep *validate.Report) {
	fmt.Fprintf(w, "report id=%s job=%s valid=%t tasks=%d rows=%d errors=%d time=%.3fs\n",
		rep.ID, rep.Job, rep.Valid, rep.Stats.Tasks, rep.Stats.Rows, rep.Stats.Errors, rep.Time)
	for _, tr := range rep.Tasks {
		fmt.Fprintf(w, "task name=%s path=%s valid=%t rows=%d invalid=%d hash=%s\n",
			tr.Name, tr.Path, tr.Valid, tr.Stats.Rows, tr.Invalid, tr.Stats.Hash)
		for _, e := range tr.Errors {
			fmt.Fprintf(w, "  [%s] %s\n", e.Code, e.Error())
		}
		if tr.Partial {
			fmt.Fprintf(w, "  (stopped early)\n")
		}
	}
}
