package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SilentEigen/pdf-hindi-translator/config"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())

	location, err := s.Save(ctx, "abc", "out.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.BaseDir, "abc", "outputs", "out.pdf"), location)

	r, err := s.Open(ctx, "abc", "out.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, r.Close())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	require.NoError(t, s.Delete(ctx, "abc", "out.pdf"))
	_, err = s.Open(ctx, "abc", "out.pdf")
	assert.ErrorIs(t, err, ErrNotFound)

	// 重复删除不报错
	assert.NoError(t, s.Delete(ctx, "abc", "out.pdf"))
}

func TestLocalStorageRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())

	for _, name := range []string{"", "..", "../x.pdf", `a\b.pdf`} {
		_, err := s.Save(ctx, "abc", name, strings.NewReader("x"))
		assert.Error(t, err, name)
	}
	_, err := s.Save(ctx, "../etc", "x.pdf", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestLocalStorageNoTempLeftovers(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())

	_, err := s.Save(ctx, "abc", "out.pdf", strings.NewReader("data"))
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.BaseDir, "abc", "outputs"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.pdf", entries[0].Name())
}

func TestNewSelectsBackend(t *testing.T) {
	st, err := New(config.StorageConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, st)

	_, err = New(config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)

	_, err = New(config.StorageConfig{Backend: "s3"})
	assert.Error(t, err, "缺少 bucket")
}

func TestObjectKey(t *testing.T) {
	key, err := objectKey("outputs", "abc", "out.pdf")
	require.NoError(t, err)
	assert.Equal(t, "outputs/abc/out.pdf", key)

	key, err = objectKey("", "abc", "out.pdf")
	require.NoError(t, err)
	assert.Equal(t, "abc/out.pdf", key)
}

func newTestS3(t *testing.T, handler http.HandlerFunc) *S3Storage {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewS3Storage(config.S3Config{
		Region:    "us-east-1",
		Bucket:    "bucket",
		Endpoint:  server.URL,
		AccessKey: "test",
		SecretKey: "test",
		Prefix:    "outputs",
	})
	require.NoError(t, err)
	return s
}

func TestS3StorageOpen(t *testing.T) {
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/bucket/outputs/abc/out.pdf" {
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	r, err := s.Open(context.Background(), "abc", "out.pdf")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestS3StorageDelete(t *testing.T) {
	var gotPath string
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			gotPath = r.URL.Path
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})

	require.NoError(t, s.Delete(context.Background(), "abc", "out.pdf"))
	assert.Equal(t, "/bucket/outputs/abc/out.pdf", gotPath)
}

func TestS3StorageSave(t *testing.T) {
	var gotPath string
	s := newTestS3(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			gotPath = r.URL.Path
			_, _ = io.Copy(io.Discard, r.Body)
			w.Header().Set("ETag", `"etag"`)
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	})

	location, err := s.Save(context.Background(), "abc", "out.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/outputs/abc/out.pdf", location)
	assert.Equal(t, "/bucket/outputs/abc/out.pdf", gotPath)
}
