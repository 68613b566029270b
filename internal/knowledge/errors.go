package knowledge

import "errors"

var (
	// ErrNilEmbedder is returned when a store is built without an embedder.
	ErrNilEmbedder = errors.New("embedder is nil")

	// ErrNilDB is returned when a store is built without a database.
	ErrNilDB = errors.New("database is nil")

	// ErrEmbeddingModelMismatch means the index was built with a different
	// embedding model than the one configured for querying. Results would
	// silently degrade, so the search refuses to run instead.
	ErrEmbeddingModelMismatch = errors.New("index embedding model does not match configured model")
)
