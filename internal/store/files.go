package store

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/wolfeidau/tlsca/internal/pki"
)

// Output file extensions.
const (
	CertExt   = ".crt"
	KeyExt    = ".key"
	BundleExt = ".pem"
)

// Permissions for written material. Private keys are owner-only.
const (
	dirPerm  os.FileMode = 0o755
	certPerm os.FileMode = 0o644
	keyPerm  os.FileMode = 0o600
)

// FilesystemError reports a failed filesystem operation on Path.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// FileStore writes PEM encoded certificates and keys into a single output
// directory.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore creates a FileStore rooted at dir on fs.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{
		fs:  fs,
		dir: dir,
	}
}

// Dir returns the configured output directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// AbsDir returns the output directory as an absolute path.
func (s *FileStore) AbsDir() (string, error) {
	abs, err := filepath.Abs(s.dir)
	if err != nil {
		return "", &FilesystemError{Op: "resolve", Path: s.dir, Err: err}
	}
	return abs, nil
}

// Prepare creates the output directory if it does not exist.
func (s *FileStore) Prepare() error {
	if err := s.fs.MkdirAll(s.dir, dirPerm); err != nil {
		return &FilesystemError{Op: "mkdir", Path: s.dir, Err: err}
	}
	return nil
}

// Path returns the path of basename+ext inside the output directory.
func (s *FileStore) Path(basename, ext string) string {
	return filepath.Join(s.dir, basename+ext)
}

// WriteCertificate writes <basename>.crt and returns its path.
func (s *FileStore) WriteCertificate(basename string, cert *x509.Certificate) (string, error) {
	return s.write(s.Path(basename, CertExt), pki.EncodeCert(cert), certPerm)
}

// WriteKey writes <basename>.key and returns its path.
func (s *FileStore) WriteKey(basename string, key *rsa.PrivateKey) (string, error) {
	return s.write(s.Path(basename, KeyExt), pki.EncodeKey(key), keyPerm)
}

// WriteBundle writes <basename>.pem holding the key followed by the
// certificate and returns its path.
func (s *FileStore) WriteBundle(basename string, key *rsa.PrivateKey, cert *x509.Certificate) (string, error) {
	return s.write(s.Path(basename, BundleExt), pki.EncodeKeyAndCert(key, cert), keyPerm)
}

func (s *FileStore) write(path string, data []byte, perm os.FileMode) (string, error) {
	if err := afero.WriteFile(s.fs, path, data, perm); err != nil {
		return "", &FilesystemError{Op: "write", Path: path, Err: err}
	}
	return path, nil
}

// ReadFile reads path from fs, wrapping failures in a FilesystemError.
func ReadFile(fs afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &FilesystemError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}
