package storage

import (
	"VoiceBoard/pkg/errors"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore keeps objects on the local disk. Used in development and tests.
type LocalStore struct {
	Root    string
	BaseURL string
}

func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve local storage path")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "create local storage path")
	}
	return &LocalStore{Root: abs, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (l *LocalStore) path(key string) (string, error) {
	p := filepath.Join(l.Root, filepath.FromSlash(key))
	if !strings.HasPrefix(p, l.Root+string(os.PathSeparator)) {
		return "", errors.Validation("invalid object key")
	}
	return p, nil
}

func (l *LocalStore) Write(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (l *LocalStore) Read(_ context.Context, key string) (io.ReadCloser, int64, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (l *LocalStore) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := l.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (l *LocalStore) URL(_ context.Context, key string) (string, error) {
	return l.BaseURL + "/" + key, nil
}

func (l *LocalStore) URI(key string) string {
	return "file://" + filepath.ToSlash(filepath.Join(l.Root, filepath.FromSlash(key)))
}

func (l *LocalStore) Name() string { return "local" }
