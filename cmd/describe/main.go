// Command describe infers the dialect, schema and stats of one resource and
// prints its descriptor as JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"

	"tabular/internal/config"
	"tabular/internal/resource"

	_ "tabular/internal/datasource/all"
	_ "tabular/internal/parser/all"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		path       = fs.String("path", "", "resource path or URL")
		format     = fs.String("format", "", "override the detected format (csv, json, xlsx...)")
		encoding   = fs.String("encoding", "", "text encoding, e.g. windows-1250")
		hashing    = fs.String("hashing", "", "hash algorithm: md5, sha1, sha256, sha512, xxh3")
		sample     = fs.Int("sample", resource.DefaultSampleSize, "rows used for schema inference")
		onlySample = fs.Bool("only-sample", false, "stop after the sample instead of reading the whole resource")
		trusted    = fs.Bool("trusted", false, "allow absolute and parent-relative paths")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *path == "" && fs.NArg() > 0 {
		*path = fs.Arg(0)
	}
	if *path == "" {
		fmt.Fprintln(stderr, "describe: -path is required")
		return 2
	}

	desc, err := resource.Describe(ctx, resource.Options{
		Path:     *path,
		Format:   *format,
		Encoding: *encoding,
		Hashing:  *hashing,
		Trusted:  *trusted,
		Detect:   config.Detect{SampleSize: *sample, BufferSize: max(*sample, resource.DefaultBufferSize)},
	}, *onlySample)
	if err != nil {
		fmt.Fprintf(stderr, "describe: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(desc); err != nil {
		fmt.Fprintf(stderr, "describe: encode: %v\n", err)
		return 1
	}
	return 0
}
