// compute-template-checksums freezes the SHA-256 digest of every
// pinned export template, the one-time step an operator runs after a
// template is first uploaded or deliberately replaced. The running
// service performs the same computation on demand via the
// compute_template_checksums step; this is the offline equivalent for
// bootstrapping a fresh exports bucket.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/feedpipe/catalog-worker/internal/exportengine"
	"github.com/feedpipe/catalog-worker/internal/storage"
)

func main() {
	var bucket, endpoint, region, out string
	flag.StringVar(&bucket, "bucket", "", "exports bucket containing the pinned templates")
	flag.StringVar(&endpoint, "endpoint", "", "S3-compatible endpoint")
	flag.StringVar(&region, "region", "us-east-1", "S3 region")
	flag.StringVar(&out, "out", "", "write digests as JSON to this file instead of stdout")
	flag.Parse()

	if bucket == "" {
		fmt.Fprintln(os.Stderr, "error: -bucket is required")
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.NewS3Store(ctx, storage.Config{Endpoint: endpoint, Region: region})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}

	digests := map[string]string{}
	for key, spec := range exportengine.Specs {
		raw, err := store.Get(ctx, bucket, spec.TemplatePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %s\n", spec.Name, err.Error())
			os.Exit(1)
		}
		sum := sha256.Sum256(raw)
		digests[key] = hex.EncodeToString(sum[:])
	}

	data, err := json.MarshalIndent(digests, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
	data = append(data, '\n')

	if out == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
