package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/turtacn/KeyIP-JTNN/pkg/errors"
)

// LocalStore keeps artifacts as files under a root directory.  Writes go to
// a temporary file that is renamed into place.
type LocalStore struct {
	root string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.InvalidParam("local store root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBucketSetup, "create local store root")
	}
	return &LocalStore{root: root}, nil
}

// Root returns the store directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if key == "" || clean == "/" || strings.Contains(key, "..") {
		return "", errors.Newf(errors.CodeInvalidParam, "invalid artifact key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

func (s *LocalStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeUploadFailed, "create artifact directory")
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeUploadFailed, "create temp artifact")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.ErrCodeUploadFailed, "write artifact")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.ErrCodeUploadFailed, "close artifact")
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, errors.ErrCodeUploadFailed, "rename artifact")
	}
	return nil
}

func (s *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, errors.New(errors.ErrCodeObjectNotFound, "artifact not found").WithDetail(key)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDownloadFailed, "read artifact")
	}
	return data, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDownloadFailed, "stat artifact")
	}
	return true, nil
}

//Personal.AI order the ending
