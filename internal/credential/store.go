package credential

import "github.com/tonimelisma/paste-proxy/internal/tokenfile"

// FileStore persists the credential in a 0600 JSON file.
type FileStore struct {
	Path string
}

// NewFileStore returns a FileStore at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load() (*tokenfile.File, error) { return tokenfile.Load(s.Path) }

func (s *FileStore) Save(tf *tokenfile.File) error { return tokenfile.Save(s.Path, tf) }

func (s *FileStore) Remove() error { return tokenfile.Remove(s.Path) }
