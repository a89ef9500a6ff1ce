// Package store persists the fragment index and answering-run history.
package store

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-qa/internal/config"
	"github.com/sells-group/report-qa/internal/model"
)

// IndexedFragment is a fragment together with its embedding.
type IndexedFragment struct {
	Fragment model.Fragment
	Vector   []float32
}

// IndexInfo describes how the stored index was built.
type IndexInfo struct {
	EmbedProvider string    `json:"embed_provider"`
	EmbedModel    string    `json:"embed_model"`
	Dimensions    int       `json:"dimensions"`
	Fragments     int       `json:"fragments"`
	BuiltAt       time.Time `json:"built_at"`
}

// Store defines the persistence interface for the index and run history.
type Store interface {
	// Fragment index
	ReplaceFragments(ctx context.Context, fragments []IndexedFragment, info IndexInfo) error
	ListFragments(ctx context.Context) ([]IndexedFragment, error)
	GetIndexInfo(ctx context.Context) (*IndexInfo, error)

	// Runs
	CreateRun(ctx context.Context, run model.Run) (*model.Run, error)
	UpdateRunUpload(ctx context.Context, runID string, status int, body string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// encodeVector packs a vector as little-endian float32 values.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, eris.Errorf("store: vector blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
