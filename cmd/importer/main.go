// Command importer bulk-loads content from a JSON file: one import request
// per document, each replacing every stored version of its content_id.
//
// Input format:
//
//	[
//	  {
//	    "content_id": "c5cf09ee-3bc2-44c5-9edc-7f0c71e4d3a2",
//	    "content_items": [
//	      {"payload": {...}},
//	      {"action": "Publish", "payload": {...}}
//	    ]
//	  }
//	]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tendant/simple-publishing/pkg/simplepublishing"
	"github.com/tendant/simple-publishing/pkg/simplepublishing/config"
)

func main() {
	file := flag.String("file", "", "path to the JSON import file")
	flag.Parse()

	if *file == "" {
		slog.Error("missing required -file flag")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.WithEnv("PUBLISHING_"))
	if err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}

	svc, err := cfg.BuildService(ctx, nil)
	if err != nil {
		slog.Error("Failed to build service", "err", err)
		os.Exit(1)
	}

	requests, err := readRequests(*file)
	if err != nil {
		slog.Error("Failed to read import file", "file", *file, "err", err)
		os.Exit(1)
	}

	imported, failed := 0, 0
	for _, req := range requests {
		if ctx.Err() != nil {
			break
		}
		result, err := svc.Import(ctx, req)
		if err != nil {
			failed++
			slog.Error("Import failed", "content_id", req.ContentID, "err", err)
			continue
		}
		imported++
		slog.Info("Imported", "content_id", result.ContentID, "versions", len(req.ContentItems))
	}

	slog.Info("Import run finished", "imported", imported, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func readRequests(path string) ([]simplepublishing.ImportRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var requests []simplepublishing.ImportRequest
	if err := json.NewDecoder(f).Decode(&requests); err != nil {
		return nil, err
	}
	return requests, nil
}
