package object

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	errs "PulseChat/tools/errs"

	"github.com/google/uuid"
)

// Store keeps message attachments. Save returns the stable URL the stored
// object is reachable at; Remove accepts that same URL.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Remove(ctx context.Context, url string) error
}

// DiskStore writes objects under Dir and serves them under BaseURL.
type DiskStore struct {
	Dir     string
	BaseURL string
}

func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.ErrInternal.Wrap(err)
	}
	return &DiskStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	f, err := os.Create(filepath.Join(s.Dir, name))
	if err != nil {
		return "", errs.ErrInternal.Wrap(err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", errs.ErrInternal.Wrap(err)
	}
	return s.BaseURL + "/" + name, nil
}

func (s *DiskStore) Remove(_ context.Context, url string) error {
	name := path.Base(url)
	if name == "." || name == "/" || name == "" {
		return errs.ErrBadRequest.WithDetail("bad object url")
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !os.IsNotExist(err) {
		return errs.ErrInternal.Wrap(err)
	}
	return nil
}
