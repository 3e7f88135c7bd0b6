package util

import (
	"os"
	"path/filepath"
)

// PathExists reports whether the given path exists on disk.
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// CreateFileBySize creates a file and extends it to the given size.
func CreateFileBySize(filePath string, size int64) error {
	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	if size > 0 {
		if err := f.Truncate(size); err != nil {
			return err
		}
	}
	return nil
}

// RecreateDir removes dir if it exists and creates it again together with
// all missing parents.
func RecreateDir(dir string) error {
	if exists, err := PathExists(dir); err != nil {
		return err
	} else if exists {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return os.MkdirAll(dir, 0o755)
}

// ListDirNames returns the names of the immediate subdirectories of path.
func ListDirNames(path string) (map[string]string, error) {
	resultMap := make(map[string]string)
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			resultMap[e.Name()] = e.Name()
		}
	}
	return resultMap, nil
}

// ConstructPath joins dir and the given components into a single path.
func ConstructPath(dir string, components ...string) string {
	return filepath.Join(append([]string{dir}, components...)...)
}
