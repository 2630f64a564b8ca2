package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestRun_List(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeFile(t, dir, "good.csv", "id,name\n1,ann\n2,bob\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-list", good, "-trusted"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit = %d, want 0; stdout=%s stderr=%s", code, stdout.String(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "valid=true") {
		t.Fatalf("stdout = %q, want valid=true", stdout.String())
	}
}

func TestRun_ListFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "id\n1\n")
	b := writeFile(t, dir, "b.csv", "id\n2\n")
	list := writeFile(t, dir, "paths.txt", "# inputs\n"+a+"\n"+b+"  # second\n")

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-list", "@" + list, "-trusted", "-json"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit = %d, want 0; stderr=%s", code, stderr.String())
	}
	var rep struct{ Stats struct{ Tasks, Rows int } }
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Stats.Tasks != 2 || rep.Stats.Rows != 2 {
		t.Fatalf("stats = %+v, want 2 tasks, 2 rows", rep.Stats)
	}
}

func TestRun_ConfigInvalidJSONReport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := writeFile(t, dir, "inquiry.json", `{
	  "job": "nightly",
	  "tasks": [{
	    "name": "people",
	    "data": [["id", "name"], ["1", "ann"], ["x", "bob"]],
	    "schema": {"fields": [{"name": "id", "type": "integer"}, {"name": "name", "type": "string"}]}
	  }]
	}`)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"-config", cfg, "-json"}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit = %d, want 1; stderr=%s", code, stderr.String())
	}
	var rep struct {
		Valid bool
		Stats struct{ Rows, Errors int }
	}
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("decode report: %v\n%s", err, stdout.String())
	}
	if rep.Valid || rep.Stats.Rows != 2 || rep.Stats.Errors != 1 {
		t.Fatalf("report = %+v, want invalid with 2 rows and 1 error", rep)
	}
}

func TestRun_DryRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := writeFile(t, dir, "inquiry.json", `{"tasks": [{"path": "x.csv", "onError": "explode"}]}`)

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"-config", cfg, "-dry-run"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "tasks[0].onError") {
		t.Fatalf("stderr = %q, want the onError issue", stderr.String())
	}
}

func TestRun_Usage(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), nil, &stdout, &stderr); code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
	if code := run(context.Background(), []string{"-config", "a.json", "-list", "b.csv"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
}
