package util

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// FileStore is the filesystem surface used by the installer
type FileStore interface {
	// Path returns the host path for the given installer path
	Path(p string) string
	Exists(p string) bool
	MkdirAll(p string, perm os.FileMode) error
	// RemoveAll deletes the path and anything it contains. A missing path is not an error
	RemoveAll(p string) error
	// Copy copies a file or a directory tree
	Copy(src, dst string) error
	ReadFile(p string) ([]byte, error)
	// List returns the names of the directory entries
	List(p string) ([]string, error)
	// WriteFile replaces the file atomically, creating parent directories when required
	WriteFile(p string, data []byte, perm os.FileMode) error
	// Checksum returns the hex encoded SHA-256 of the file content
	Checksum(p string) (string, error)
	MakeExecutable(p string) error
}

// OSFileStore is a FileStore backed by the local filesystem. All paths are resolved under Root when set
type OSFileStore struct {
	Root string
}

// NewFileStore returns a store rooted at root. An empty root means the real filesystem root
func NewFileStore(root string) *OSFileStore {
	return &OSFileStore{Root: root}
}

func (s *OSFileStore) Path(p string) string {
	if s.Root == "" {
		return p
	}
	return filepath.Join(s.Root, filepath.VolumeName(p), p[len(filepath.VolumeName(p)):])
}

func (s *OSFileStore) Exists(p string) bool {
	return FileExists(s.Path(p))
}

func (s *OSFileStore) MkdirAll(p string, perm os.FileMode) error {
	return os.MkdirAll(s.Path(p), perm)
}

func (s *OSFileStore) RemoveAll(p string) error {
	err := os.RemoveAll(s.Path(p))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *OSFileStore) Copy(src, dst string) error {
	src, dst = s.Path(src), s.Path(dst)
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyDir(src, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return err
	}
	return CopyFileContents(src, dst)
}

func (s *OSFileStore) ReadFile(p string) ([]byte, error) {
	return os.ReadFile(s.Path(p))
}

func (s *OSFileStore) List(p string) ([]string, error) {
	entries, err := os.ReadDir(s.Path(p))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (s *OSFileStore) WriteFile(p string, data []byte, perm os.FileMode) error {
	file := s.Path(p)
	configDir, configFileName, err := prepareConfigFileDir(file)
	if err != nil {
		return fmt.Errorf("prepare dir: %w", err)
	}
	return writeBytes(file, configDir, configFileName, data, perm)
}

func (s *OSFileStore) Checksum(p string) (string, error) {
	f, err := os.Open(s.Path(p))
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("failed to close file %s: %v", p, err)
		}
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", p, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (s *OSFileStore) MakeExecutable(p string) error {
	file := s.Path(p)
	info, err := os.Stat(file)
	if err != nil {
		return err
	}
	return os.Chmod(file, info.Mode()|0111)
}

// writeBytes writes bytes to a file using atomic write (temp file + rename)
func writeBytes(file string, configDir string, configFileName string, bs []byte, perm os.FileMode) error {
	tempFile, err := os.CreateTemp(configDir, ".*"+configFileName)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}

	tempFileName := tempFile.Name()
	defer func() {
		if _, err := os.Stat(tempFileName); err == nil {
			_ = os.Remove(tempFileName)
		}
	}()

	if _, err = tempFile.Write(bs); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write: %w", err)
	}

	if err = tempFile.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tempFileName, err)
	}

	if err := os.Chmod(tempFileName, perm); err != nil {
		return fmt.Errorf("set temp file permissions: %w", err)
	}

	if err = os.Rename(tempFileName, file); err != nil {
		return fmt.Errorf("move %s to %s: %w", tempFileName, file, err)
	}

	return nil
}

// CopyFileContents copies contents of the given src file to the dst file
func CopyFileContents(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return
	}
	defer func() {
		cErr := out.Close()
		if err == nil {
			err = cErr
		}
	}()
	if _, err = io.Copy(out, in); err != nil {
		return
	}
	err = out.Sync()
	return
}

func copyDir(srcDir string, dstDir string) error {
	if err := os.MkdirAll(dstDir, 0750); err != nil {
		return err
	}

	return filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0750)
		}
		if !d.Type().IsRegular() {
			log.Debugf("skipping non regular file %s", path)
			return nil
		}
		return CopyFileContents(path, target)
	})
}

// prepareConfigFileDir prepares the directory for a config file.
// The directory is created with 0750 permissions.
func prepareConfigFileDir(file string) (string, string, error) {
	configDir, configFileName := filepath.Split(file)
	if configDir == "" {
		return filepath.Dir(file), configFileName, nil
	}

	err := os.MkdirAll(configDir, 0750)
	if err != nil {
		return "", "", err
	}

	return configDir, configFileName, err
}
