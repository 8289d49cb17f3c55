// Package archive keeps a compressed copy of every finished checker run,
// either in a local directory or in an Azure Blob Storage container.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/spboyer/checkerd/internal/models"
)

// Extension is appended to every archived run.
const Extension = ".json.zst"

// Writer stores one encoded object under key.
type Writer interface {
	Write(ctx context.Context, key string, data []byte) error
}

// Archiver implements runner.RunObserver.
type Archiver struct {
	w       Writer
	encoder *zstd.Encoder
}

func New(w Writer) (*Archiver, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	return &Archiver{w: w, encoder: enc}, nil
}

// Key returns where run is archived: <checker>/<yyyy>/<mm>/<dd>/<run id>.json.zst.
func Key(run *models.CheckerRun) string {
	created := run.CreatedAt.UTC()
	return path.Join(run.Checker, created.Format("2006"), created.Format("01"), created.Format("02"), run.ID+Extension)
}

// RunCompleted encodes and stores run. Dry runs are not archived.
func (a *Archiver) RunCompleted(ctx context.Context, run *models.CheckerRun) error {
	if run.DryRun {
		return nil
	}
	data, err := Encode(a.encoder, run)
	if err != nil {
		return err
	}
	if err := a.w.Write(ctx, Key(run), data); err != nil {
		return fmt.Errorf("archiving run %s: %w", run.ID, err)
	}
	return nil
}

func (a *Archiver) Close() error {
	return a.encoder.Close()
}

// Encode returns run as zstd-compressed JSON.
func Encode(enc *zstd.Encoder, run *models.CheckerRun) ([]byte, error) {
	raw, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encoding run %s: %w", run.ID, err)
	}
	return enc.EncodeAll(raw, nil), nil
}

// Decode reverses Encode.
func Decode(data []byte) (*models.CheckerRun, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing run: %w", err)
	}
	var run models.CheckerRun
	if err := json.Unmarshal(raw, &run); err != nil {
		return nil, fmt.Errorf("decoding run: %w", err)
	}
	return &run, nil
}

// DirWriter writes objects below a local directory.
type DirWriter struct {
	Root string
}

func (d DirWriter) Write(_ context.Context, key string, data []byte) error {
	full := filepath.Join(d.Root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", filepath.Dir(full), err)
	}
	return os.WriteFile(full, data, 0o644)
}
