package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/tlsca/internal/pki"
)

func newTestCA(t *testing.T) *pki.CA {
	t.Helper()

	ca, err := pki.NewIssuer().GenerateCA("Test CA")
	require.NoError(t, err)
	return ca
}

func TestFileStore_Write(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "out/certs")
	ca := newTestCA(t)

	require.NoError(t, s.Prepare())

	t.Run("prepare creates directory", func(t *testing.T) {
		ok, err := afero.DirExists(fs, "out/certs")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("certificate", func(t *testing.T) {
		path, err := s.WriteCertificate("ca", ca.Cert)
		require.NoError(t, err)
		require.Equal(t, filepath.Join("out/certs", "ca.crt"), path)

		data, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		require.Equal(t, pki.EncodeCert(ca.Cert), data)

		info, err := fs.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	})

	t.Run("key is owner only", func(t *testing.T) {
		path, err := s.WriteKey("ca", ca.Key)
		require.NoError(t, err)
		require.Equal(t, filepath.Join("out/certs", "ca.key"), path)

		data, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		require.Equal(t, pki.EncodeKey(ca.Key), data)

		info, err := fs.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("bundle", func(t *testing.T) {
		path, err := s.WriteBundle("wildcard.example.com", ca.Key, ca.Cert)
		require.NoError(t, err)
		require.Equal(t, filepath.Join("out/certs", "wildcard.example.com.pem"), path)

		data, err := afero.ReadFile(fs, path)
		require.NoError(t, err)
		require.Equal(t, pki.EncodeKeyAndCert(ca.Key, ca.Cert), data)
	})
}

func TestFileStore_AbsDir(t *testing.T) {
	s := NewFileStore(afero.NewMemMapFs(), "certs")

	abs, err := s.AbsDir()
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(abs))
	require.Equal(t, "certs", filepath.Base(abs))
	require.Equal(t, "certs", s.Dir())
}

func TestFileStore_Failures(t *testing.T) {
	ca := newTestCA(t)
	s := NewFileStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "out")

	t.Run("mkdir", func(t *testing.T) {
		err := s.Prepare()

		var fsErr *FilesystemError
		require.ErrorAs(t, err, &fsErr)
		require.Equal(t, "mkdir", fsErr.Op)
		require.Equal(t, "out", fsErr.Path)
	})

	t.Run("write", func(t *testing.T) {
		_, err := s.WriteCertificate("ca", ca.Cert)

		var fsErr *FilesystemError
		require.ErrorAs(t, err, &fsErr)
		require.Equal(t, "write", fsErr.Op)
		require.Equal(t, filepath.Join("out", "ca.crt"), fsErr.Path)
	})
}

func TestReadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "ca.crt", []byte("data"), 0o644))

	data, err := ReadFile(fs, "ca.crt")
	require.NoError(t, err)
	require.Equal(t, []byte("data"), data)

	_, err = ReadFile(fs, "missing.crt")
	var fsErr *FilesystemError
	require.ErrorAs(t, err, &fsErr)
	require.Equal(t, "read", fsErr.Op)
	require.ErrorIs(t, err, os.ErrNotExist)
}
