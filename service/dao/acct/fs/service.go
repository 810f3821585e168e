// Package fs persists accounting records as JSON files through afs, so any
// afs-supported URL (local path, mem://, cloud storage) can hold them.
package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"github.com/viant/kproc/service/dao"
	"github.com/viant/kproc/service/dao/acct"
)

const ext = ".json"

// Service stores one file per record under baseURL.
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

var _ acct.Service = (*Service)(nil)

// New creates a store rooted at baseURL, creating the location if needed.
func New(ctx context.Context, baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("accounting url was empty")
	}
	fs := afs.New()
	baseURL = url.Normalize(baseURL, file.Scheme)
	exists, _ := fs.Exists(ctx, baseURL)
	if !exists {
		if err := fs.Create(ctx, baseURL, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create %v: %w", baseURL, err)
		}
	}
	return &Service{baseURL: baseURL, fs: fs}, nil
}

// Save writes r to <baseURL>/<id>.json.
func (s *Service) Save(ctx context.Context, r *acct.Record) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record %v: %w", r.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.recordURL(r.ID)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save record to %v: %w", location, err)
	}
	return nil
}

// Load reads a record or returns dao.ErrNotFound.
func (s *Service) Load(ctx context.Context, id string) (*acct.Record, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	location := s.recordURL(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check %v: %w", location, err)
	}
	if !exists {
		return nil, dao.ErrNotFound
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read %v: %w", location, err)
	}
	ret := &acct.Record{}
	if err = json.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %v: %w", location, err)
	}
	return ret, nil
}

// Delete removes a record or returns dao.ErrNotFound.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.recordURL(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check %v: %w", location, err)
	}
	if !exists {
		return dao.ErrNotFound
	}
	return s.fs.Delete(ctx, location)
}

// List reads every record matching parameters. Unreadable files are logged
// and skipped.
func (s *Service) List(ctx context.Context, parameters ...*dao.Parameter) ([]*acct.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(false))
	if err != nil {
		return nil, fmt.Errorf("failed to list %v: %w", s.baseURL, err)
	}
	var ret []*acct.Record
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ext) {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			log.Printf("acct: failed to read %v: %v", object.URL(), err)
			continue
		}
		record := &acct.Record{}
		if err = json.Unmarshal(data, record); err != nil {
			log.Printf("acct: failed to unmarshal %v: %v", object.URL(), err)
			continue
		}
		if record.Match(parameters) {
			ret = append(ret, record)
		}
	}
	sort.Slice(ret, func(i, j int) bool { return acct.Before(ret[i], ret[j]) })
	return ret, nil
}

func (s *Service) recordURL(id string) string {
	return url.Join(s.baseURL, path.Base(id)+ext)
}
