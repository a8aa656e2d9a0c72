package importer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/scoracle-softball/internal/columns"
)

// DetectFileType classifies a file by extension and, for CSVs, by its
// header row. An unrecognized extension is FileUnknown regardless of
// content.
func DetectFileType(name string, data []byte) FileType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xls":
		return FileExcel
	case ".csv":
		t, err := readTable(data)
		if err == nil && t.mapping.Dialect == columns.GameChanger {
			return FileGameChangerCSV
		}
		return FileCSV
	default:
		return FileUnknown
	}
}

// ImportFile imports one file and reports the outcome. It never returns an
// error: failures, panics included, land in the report so a batch can carry
// on with the next file.
func (im *Importer) ImportFile(ctx context.Context, name string, data []byte, req Request) (rep Report) {
	rep = Report{
		ImportID: uuid.New().String(),
		File:     filepath.Base(name),
		Errors:   []string{},
	}
	start := time.Now()
	logger := im.logger.With("import_id", rep.ImportID, "file", rep.File)

	defer func() {
		if p := recover(); p != nil {
			logger.Error("Import panicked", "panic", p, "stack", string(debug.Stack()))
			rep.fail(fmt.Errorf("internal error: %v", p))
		}
		if rep.Failed() {
			logger.Warn("Import failed", "error", rep.Err(), "duration", time.Since(start))
			return
		}
		logger.Info("Import complete", "summary", rep.Summary(), "duration", time.Since(start))
	}()

	rep.FileType = DetectFileType(name, data)
	switch {
	case rep.FileType == FileExcel:
		im.importExcel(ctx, &rep, rep.File, data)
	case rep.FileType.IsCSV():
		if req.SeasonID <= 0 {
			rep.CSVResult = &CSVResult{DetectedFields: map[string]string{}, MissingFields: []string{}}
			rep.fail(ErrSeasonRequired)
			return rep
		}
		im.importCSV(ctx, &rep, rep.File, data, req)
	default:
		rep.fail(fmt.Errorf("%w: %q", ErrUnknownFileType, filepath.Ext(name)))
	}
	return rep
}

// --------------------------------------------------------------------------
// Batches
// --------------------------------------------------------------------------

// Source is one file of a batch.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// PathSource reads a file from disk.
func PathSource(path string) Source {
	return Source{
		Name: path,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// BytesSource wraps file contents already in memory.
func BytesSource(name string, data []byte) Source {
	return Source{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// ImportBatch imports files one after another. Each file commits or rolls
// back on its own; a failed file does not undo the files before it. The
// same request applies to every CSV in the batch.
func (im *Importer) ImportBatch(ctx context.Context, sources []Source, req Request) BatchReport {
	batch := BatchReport{Errors: []string{}, Files: []Report{}}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			rep := Report{File: filepath.Base(src.Name), FileType: FileUnknown, Errors: []string{}}
			rep.fail(err)
			batch.Add(rep)
			continue
		}
		batch.Add(im.importSource(ctx, src, req))
	}
	im.logger.Info("Batch complete", "summary", batch.Summary())
	return batch
}

func (im *Importer) importSource(ctx context.Context, src Source, req Request) Report {
	data, err := readSource(src)
	if err != nil {
		rep := Report{
			ImportID: uuid.New().String(),
			File:     filepath.Base(src.Name),
			FileType: DetectFileType(src.Name, nil),
			Errors:   []string{},
		}
		rep.fail(fmt.Errorf("read %s: %w", src.Name, err))
		return rep
	}
	return im.ImportFile(ctx, src.Name, data, req)
}

func readSource(src Source) ([]byte, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
