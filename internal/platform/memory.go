package platform

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"
)

// MemoryHTTPClient replays canned responses keyed by "METHOD url", recording
// every request it sees for later assertions.
type MemoryHTTPClient struct {
	mu        sync.Mutex
	responses map[string]*http.Response
	Requests  []*http.Request
}

// NewMemoryHTTPClient returns an empty MemoryHTTPClient.
func NewMemoryHTTPClient() *MemoryHTTPClient {
	return &MemoryHTTPClient{responses: make(map[string]*http.Response)}
}

// SetResponse registers the response returned for method+url.
func (c *MemoryHTTPClient) SetResponse(method, url string, resp *http.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[method+" "+url] = resp
}

func (c *MemoryHTTPClient) Do(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)
	key := req.Method + " " + req.URL.String()
	resp, ok := c.responses[key]
	if !ok {
		return nil, fmt.Errorf("platform: no recorded response for %s", key)
	}
	return resp, nil
}

// MemoryFileSystem implements FileSystem entirely in memory.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]struct{}
}

// NewMemoryFileSystem returns an empty MemoryFileSystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]struct{}),
	}
}

func (fsys *MemoryFileSystem) ReadFile(path string) ([]byte, error) {
	fsys.mu.RLock()
	defer fsys.mu.RUnlock()
	data, ok := fsys.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (fsys *MemoryFileSystem) WriteFile(path string, data []byte, _ fs.FileMode) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	out := make([]byte, len(data))
	copy(out, data)
	fsys.files[path] = out
	return nil
}

func (fsys *MemoryFileSystem) MkdirAll(path string, _ fs.FileMode) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	fsys.dirs[path] = struct{}{}
	return nil
}

func (fsys *MemoryFileSystem) Stat(path string) (fs.FileInfo, error) {
	fsys.mu.RLock()
	defer fsys.mu.RUnlock()
	if data, ok := fsys.files[path]; ok {
		return memFileInfo{name: path, size: int64(len(data))}, nil
	}
	if _, ok := fsys.dirs[path]; ok {
		return memFileInfo{name: path, isDir: true}, nil
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
}

func (fsys *MemoryFileSystem) Remove(path string) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()
	if _, ok := fsys.files[path]; ok {
		delete(fsys.files, path)
		return nil
	}
	if _, ok := fsys.dirs[path]; ok {
		delete(fsys.dirs, path)
		return nil
	}
	return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
}

type memFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (i memFileInfo) Name() string       { return i.name }
func (i memFileInfo) Size() int64        { return i.size }
func (i memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (i memFileInfo) ModTime() time.Time { return time.Time{} }
func (i memFileInfo) IsDir() bool        { return i.isDir }
func (i memFileInfo) Sys() any           { return nil }

// MemoryEnvironment implements Environment over a plain map.
type MemoryEnvironment struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewMemoryEnvironment returns a MemoryEnvironment seeded with vars.
func NewMemoryEnvironment(vars map[string]string) *MemoryEnvironment {
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return &MemoryEnvironment{vars: copied}
}

func (e *MemoryEnvironment) Getenv(key string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vars[key]
}

func (e *MemoryEnvironment) LookupEnv(key string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.vars[key]
	return v, ok
}

// Setenv sets key to value for subsequent lookups.
func (e *MemoryEnvironment) Setenv(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[key] = value
}

// MemoryProcessSpawner returns canned results instead of spawning real
// processes, recording every invocation for assertions.
type MemoryProcessSpawner struct {
	mu      sync.Mutex
	results map[string]*SpawnResult
	Calls   []string
}

// NewMemoryProcessSpawner returns an empty MemoryProcessSpawner.
func NewMemoryProcessSpawner() *MemoryProcessSpawner {
	return &MemoryProcessSpawner{results: make(map[string]*SpawnResult)}
}

// SetResult registers the result returned when name is spawned.
func (s *MemoryProcessSpawner) SetResult(name string, result *SpawnResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[name] = result
}

func (s *MemoryProcessSpawner) Spawn(_ context.Context, name string, args []string, _ SpawnOptions) (*SpawnResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, name)
	if result, ok := s.results[name]; ok {
		return result, nil
	}
	return nil, fmt.Errorf("platform: no recorded result for command %q", name)
}

// Memory returns a Platform backed entirely by in-memory fakes, suitable for
// unit tests that must not touch the network, disk, or process table.
func Memory() Platform {
	return Platform{
		HTTP: NewMemoryHTTPClient(),
		FS:   NewMemoryFileSystem(),
		Env:  NewMemoryEnvironment(nil),
		Proc: NewMemoryProcessSpawner(),
	}
}
