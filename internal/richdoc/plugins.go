package richdoc

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
)

// FileRepositoryName is the registry key of the upload plugin.
const FileRepositoryName = "FileRepository"

// Plugin is an editor extension looked up by name.
type Plugin interface {
	PluginName() string
}

// PluginRegistry maps plugin names to instances.
type PluginRegistry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

func newPluginRegistry() *PluginRegistry {
	return &PluginRegistry{plugins: make(map[string]Plugin)}
}

// Add registers p, replacing any plugin with the same name.
func (r *PluginRegistry) Add(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.plugins[p.PluginName()] = p
}

// Get returns the plugin called name.
func (r *PluginRegistry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[name]

	return p, ok
}

// Loader carries one pasted file to an upload adapter.
type Loader struct {
	Data     []byte
	MIMEType string
}

// UploadAdapter uploads one loader's file. Upload returns the attributes of
// the image element to insert; an empty result inserts nothing.
type UploadAdapter interface {
	Upload(ctx context.Context) (map[string]string, error)
	Abort()
}

// AdapterFactory creates the adapter for a loader.
type AdapterFactory func(loader *Loader) UploadAdapter

// FileRepository owns the editor's native upload path.
type FileRepository struct {
	mu      sync.RWMutex
	factory AdapterFactory
}

// NewFileRepository returns a repository whose adapters inline the image as
// a data URI.
func NewFileRepository() *FileRepository {
	return &FileRepository{factory: inlineAdapterFactory}
}

// PluginName implements Plugin.
func (*FileRepository) PluginName() string { return FileRepositoryName }

// SetAdapterFactory replaces the upload-adapter factory.
func (f *FileRepository) SetAdapterFactory(factory AdapterFactory) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.factory = factory
}

// CreateUploadAdapter builds an adapter for loader with the current factory.
func (f *FileRepository) CreateUploadAdapter(loader *Loader) UploadAdapter {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.factory(loader)
}

func inlineAdapterFactory(loader *Loader) UploadAdapter {
	return inlineAdapter{loader: loader}
}

type inlineAdapter struct {
	loader *Loader
}

func (a inlineAdapter) Upload(context.Context) (map[string]string, error) {
	uri := fmt.Sprintf("data:%s;base64,%s", a.loader.MIMEType, base64.StdEncoding.EncodeToString(a.loader.Data))
	return map[string]string{"src": uri}, nil
}

func (inlineAdapter) Abort() {}

// NoopAdapterFactory returns adapters that upload nothing.
func NoopAdapterFactory(*Loader) UploadAdapter {
	return noopAdapter{}
}

type noopAdapter struct{}

func (noopAdapter) Upload(context.Context) (map[string]string, error) { return map[string]string{}, nil }

func (noopAdapter) Abort() {}
