package session

import "os"

// DirLister lists the entry names of a directory. The session uses it for
// the pre-mount safety gate and the post-mount verification; a missing
// directory should surface as an fs.ErrNotExist-compatible error.
type DirLister interface {
	List(path string) ([]string, error)
}

type osLister struct{}

func (osLister) List(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
