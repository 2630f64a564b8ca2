// Command load reads one resource and writes its typed rows into a SQL
// table through one of the registered storage backends.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tabular/internal/config"
	"tabular/internal/resource"
	"tabular/internal/storage"

	_ "tabular/internal/datasource/all"
	_ "tabular/internal/parser/all"
	_ "tabular/internal/storage/all"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		path        = fs.String("path", "", "resource path or URL")
		format      = fs.String("format", "", "override the detected format")
		backend     = fs.String("backend", envOr("STORAGE_KIND", "sqlite"), "storage backend: "+strings.Join(storage.ListKinds(), ", "))
		dsn         = fs.String("dsn", os.Getenv("DATABASE_URL"), "backend DSN (env DATABASE_URL)")
		table       = fs.String("table", "", "destination table (defaults to the resource name)")
		batch       = fs.Int("batch", storage.DefaultBatchSize, "rows per CopyFrom batch")
		drop        = fs.Bool("drop", false, "drop the destination table first")
		create      = fs.Bool("create", true, "create the table from the inferred schema when missing")
		skipInvalid = fs.Bool("skip-invalid", false, "skip rows with errors instead of writing them")
		trusted     = fs.Bool("trusted", false, "allow absolute and parent-relative paths")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *path == "" && fs.NArg() > 0 {
		*path = fs.Arg(0)
	}
	if *path == "" || *dsn == "" {
		fmt.Fprintln(stderr, "load: -path and -dsn are required")
		return 2
	}

	res, err := resource.New(resource.Options{
		Path:    *path,
		Format:  *format,
		Trusted: *trusted,
		OnError: config.OnErrorIgnore,
	})
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return 1
	}
	if err := res.Open(ctx); err != nil {
		fmt.Fprintf(stderr, "load: open %s: %v\n", *path, err)
		return 1
	}
	defer res.Close()

	dest := *table
	if dest == "" {
		dest = res.Name()
	}

	repo, err := storage.New(ctx, storage.Config{Kind: *backend, DSN: *dsn, Table: dest})
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return 1
	}
	defer repo.Close()

	if *drop {
		if err := storage.Delete(ctx, repo, dest, true); err != nil {
			fmt.Fprintf(stderr, "load: %v\n", err)
			return 1
		}
	}

	start := time.Now()
	n, err := storage.WriteResource(ctx, repo, res, storage.WriteOptions{
		Kind:        *backend,
		Table:       dest,
		BatchSize:   *batch,
		Create:      *create,
		SkipInvalid: *skipInvalid,
	})
	if err != nil {
		fmt.Fprintf(stderr, "load: %v\n", err)
		return 1
	}
	log.Printf("load: backend=%s table=%s rows=%d elapsed=%s", *backend, dest, n, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(stdout, "%d\n", n)
	return 0
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
