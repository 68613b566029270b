package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// supportedExtensions lists the plain-text formats the ingester reads.
// Binary formats would need dedicated extraction and are skipped.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".html": true,
	".htm":  true,
}

// DocumentStore is the slice of Store the ingester needs.
type DocumentStore interface {
	Add(ctx context.Context, doc Document) error
	SourceHash(ctx context.Context, source string) (string, error)
	DeleteSource(ctx context.Context, source string) (int64, error)
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	Files   int
	Skipped int
	Updated int
	Chunks  int
}

// Ingester walks a documents directory and keeps the store in sync with it.
// Unchanged files are detected by content hash and skipped; changed files
// have their old chunks deleted before the new ones are added.
type Ingester struct {
	store        DocumentStore
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// NewIngester builds an ingester with the given chunking parameters.
func NewIngester(store DocumentStore, chunkSize, chunkOverlap int, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		store:        store,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger,
	}
}

// Ingest processes every supported file under root.
func (in *Ingester) Ingest(ctx context.Context, root string) (IngestStats, error) {
	var stats IngestStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		stats.Files++
		changed, chunks, err := in.ingestFile(ctx, path)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		if changed {
			stats.Updated++
			stats.Chunks += chunks
		} else {
			stats.Skipped++
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	in.logger.Info("ingestion complete",
		"files", stats.Files, "updated", stats.Updated,
		"skipped", stats.Skipped, "chunks", stats.Chunks)
	return stats, nil
}

// ingestFile re-indexes one file unless its content hash is unchanged.
func (in *Ingester) ingestFile(ctx context.Context, path string) (changed bool, chunks int, err error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, 0, err
	}

	source := filepath.Base(path)
	hash := contentHash(content)

	stored, err := in.store.SourceHash(ctx, source)
	if err != nil {
		return false, 0, err
	}
	if stored == hash {
		in.logger.Debug("source unchanged", "source", source)
		return false, 0, nil
	}

	if stored != "" {
		deleted, err := in.store.DeleteSource(ctx, source)
		if err != nil {
			return false, 0, err
		}
		in.logger.Debug("replaced stale chunks", "source", source, "deleted", deleted)
	}

	pieces := Chunk(string(content), in.chunkSize, in.chunkOverlap)
	for i, piece := range pieces {
		doc := Document{
			ID:      chunkID(source, i),
			Content: piece,
			Source:  source,
			Metadata: map[string]string{
				"file_hash":   hash,
				"chunk_index": fmt.Sprintf("%d", i),
				"path":        path,
			},
		}
		if err := in.store.Add(ctx, doc); err != nil {
			return false, 0, err
		}
	}

	in.logger.Debug("ingested source", "source", source, "chunks", len(pieces))
	return true, len(pieces), nil
}

// chunkID derives a stable identifier from the source name and chunk
// position, so re-ingesting an unchanged layout upserts in place.
func chunkID(source string, index int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s#%d", source, index))
	return "doc_" + hex.EncodeToString(sum[:16])
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
