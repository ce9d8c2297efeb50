package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads the configuration record. When the current file is absent the
// first existing legacy file is copied into place; when no file exists at all
// an empty default record is returned.
func Load(paths Paths) (*Record, error) {
	if err := migrate(paths); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(paths.Current)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, &ConfigError{Op: "read", Path: paths.Current, Err: err}
	}
	rec, err := decode(data)
	if err != nil {
		return nil, &ConfigError{Op: "decode", Path: paths.Current, Err: err}
	}
	return rec, nil
}

func decode(data []byte) (*Record, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var rec Record
	if err := decoder.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Default(), nil
		}
		return nil, err
	}
	rec.normalize()
	return &rec, nil
}

// Save writes the record to path atomically, creating parent directories.
func Save(path string, rec *Record) error {
	if rec == nil {
		rec = Default()
	}
	out := *rec
	out.normalize()
	data, err := yaml.Marshal(&out)
	if err != nil {
		return &ConfigError{Op: "encode", Path: path, Err: err}
	}
	if err := writeFileAtomic(path, data); err != nil {
		return &ConfigError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func migrate(paths Paths) error {
	if _, err := os.Stat(paths.Current); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return &ConfigError{Op: "stat", Path: paths.Current, Err: err}
	}
	for _, legacy := range paths.Legacy {
		if legacy == "" || legacy == paths.Current {
			continue
		}
		data, err := os.ReadFile(legacy)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return &ConfigError{Op: "read", Path: legacy, Err: err}
		}
		if err := writeFileAtomic(paths.Current, data); err != nil {
			return &ConfigError{Op: "migrate", Path: paths.Current, Err: fmt.Errorf("copy from %s: %w", legacy, err)}
		}
		return nil
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
