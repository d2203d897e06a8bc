package overview

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jgivc/harvestoverview/internal/entity"
	"github.com/spf13/afero"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	tempSuffix = ".tmp-*"
)

type fileStorage struct {
	fs   afero.Fs
	path string
	log  *slog.Logger
}

func NewFileStorage(path string, log *slog.Logger) *fileStorage {
	return NewFileStorageWithFS(afero.NewOsFs(), path, log)
}

func NewFileStorageWithFS(fs afero.Fs, path string, log *slog.Logger) *fileStorage {
	return &fileStorage{
		fs:   fs,
		path: path,
		log:  log.With(slog.String("item", "FileStorage"), slog.String("path", path)),
	}
}

// Load reads the overview file. A missing file is a fresh deployment and
// yields an empty overview.
func (s *fileStorage) Load(_ context.Context) (*entity.Overview, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.log.Info("Overview file not found, start with empty overview")

			return &entity.Overview{}, nil
		}

		return nil, fmt.Errorf("cannot read overview file: %w", err)
	}

	o, err := Decode(data)
	if err != nil {
		s.log.Error("Cannot decode overview file", slog.Any("error", err))

		return nil, err
	}

	s.log.Info("Overview loaded", slog.Int("endpoints", len(o.Endpoints)))

	return o, nil
}

// Save writes the overview next to the target and renames it into place, so
// a crash leaves either the old or the new file.
func (s *fileStorage) Save(_ context.Context, o *entity.Overview) error {
	data, err := Encode(o)
	if err != nil {
		return err
	}

	dir, name := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}

	if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("cannot create overview dir: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, name+tempSuffix)
	if err != nil {
		return fmt.Errorf("cannot create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := writeAndClose(tmp, data); err != nil {
		s.fs.Remove(tmpName)

		return fmt.Errorf("cannot write temp file: %w", err)
	}

	if err := s.fs.Chmod(tmpName, filePerm); err != nil {
		s.log.Warn("Cannot chmod temp file", slog.String("temp", tmpName), slog.Any("error", err))
	}

	if err := s.fs.Rename(tmpName, s.path); err != nil {
		s.fs.Remove(tmpName)

		return fmt.Errorf("cannot replace overview file: %w", err)
	}

	s.log.Info("Overview saved", slog.Int("endpoints", len(o.Endpoints)))

	return nil
}

func writeAndClose(f afero.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()

		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()

		return err
	}

	return f.Close()
}
