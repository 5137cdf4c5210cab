package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ironsheep/planogram-mcp/internal/planogram"
)

// FileRepository stores each planogram as <dir>/<id>.json.
//
// Writes go to a temporary file that is renamed into place, so a reader never
// sees half a document. FileRepository is safe for concurrent use within one
// process.
type FileRepository struct {
	dir string
	mu  sync.RWMutex
}

// NewFileRepository returns a repository rooted at dir, creating it if needed.
func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) Create(ctx context.Context, p *planogram.Planogram) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := prepareCreate(p); err != nil {
		return err
	}
	path, err := r.path(p.ID)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, p.ID)
	}
	return r.write(path, p)
}

func (r *FileRepository) Get(ctx context.Context, id string) (*planogram.Planogram, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := r.path(id)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(path, id)
}

func (r *FileRepository) Update(ctx context.Context, p *planogram.Planogram) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.path(p.ID)
	if err != nil {
		return err
	}
	if err := planogram.Validate(*p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return notFound(p.ID)
	}
	return r.write(path, p)
}

func (r *FileRepository) List(ctx context.Context, storeID string) ([]*Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	summaries := make([]*Summary, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		p, err := r.read(filepath.Join(r.dir, e.Name()), id)
		if err != nil {
			return nil, err
		}
		if storeID != "" && p.StoreID != storeID {
			continue
		}
		summaries = append(summaries, summarize(p))
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastModified.After(summaries[j].LastModified)
	})
	return summaries, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.path(id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound(id)
		}
		return fmt.Errorf("failed to delete planogram: %w", err)
	}
	return nil
}

// path maps an id to its file, rejecting ids that would escape the directory.
func (r *FileRepository) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", &planogram.ValidationError{Field: "id", Reason: fmt.Sprintf("%q cannot be used as a file name", id)}
	}
	return filepath.Join(r.dir, id+".json"), nil
}

func (r *FileRepository) read(path, id string) (*planogram.Planogram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("failed to read planogram: %w", err)
	}

	p, err := planogram.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode planogram %s: %w", id, err)
	}
	return &p, nil
}

func (r *FileRepository) write(path string, p *planogram.Planogram) error {
	data, err := planogram.Marshal(*p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, ".planogram-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write planogram: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write planogram: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to store planogram: %w", err)
	}
	return nil
}
