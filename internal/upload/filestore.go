package upload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/osse101/mobilesync/internal/domain"
)

// FileStorage keeps chunks under tempDir/<upload_id>/ and promoted files
// under storageDir. Temporary usage is bounded by maxTempBytes.
type FileStorage struct {
	tempDir      string
	storageDir   string
	maxTempBytes int64

	mu   sync.Mutex
	used int64
}

// NewFileStorage creates both directories and accounts for chunk files
// left over from a previous run.
func NewFileStorage(tempDir, storageDir string, maxTempBytes int64) (*FileStorage, error) {
	for _, dir := range []string{tempDir, storageDir} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	fsys := &FileStorage{tempDir: tempDir, storageDir: storageDir, maxTempBytes: maxTempBytes}
	used, err := dirSize(tempDir)
	if err != nil {
		return nil, err
	}
	fsys.used = used
	return fsys, nil
}

// WriteChunk stores one chunk, failing with domain.ErrUploadStorageFull
// when the quota would be exceeded.
func (f *FileStorage) WriteChunk(ctx context.Context, uploadID string, index int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := f.sessionDir(uploadID)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}
	p := filepath.Join(dir, fmt.Sprintf(chunkFileFormat, index))

	var previous int64
	if info, err := os.Stat(p); err == nil {
		previous = info.Size()
	}
	delta := int64(len(data)) - previous
	if err := f.reserve(delta); err != nil {
		return err
	}
	if err := os.WriteFile(p, data, filePerm); err != nil {
		f.release(delta)
		return err
	}
	return nil
}

// Assemble concatenates chunks in index order and hashes the result
func (f *FileStorage) Assemble(ctx context.Context, uploadID string, totalChunks int) (Assembly, error) {
	dir := f.sessionDir(uploadID)
	out := filepath.Join(dir, assembledFileName)
	dst, err := os.OpenFile(out, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return Assembly{}, err
	}
	defer dst.Close()

	h := sha256.New()
	w := io.MultiWriter(dst, h)
	var size int64
	for i := 0; i < totalChunks; i++ {
		if err := ctx.Err(); err != nil {
			return Assembly{}, err
		}
		n, err := appendFile(w, filepath.Join(dir, fmt.Sprintf(chunkFileFormat, i)))
		if err != nil {
			return Assembly{}, fmt.Errorf("chunk %d: %w", i, err)
		}
		size += n
	}
	if err := dst.Sync(); err != nil {
		return Assembly{}, err
	}
	return Assembly{Path: out, Size: size, Checksum: hex.EncodeToString(h.Sum(nil))}, nil
}

// Promote moves an assembled file into permanent storage
func (f *FileStorage) Promote(_ context.Context, assembledPath, name string) (string, error) {
	final := filepath.Join(f.storageDir, filepath.Base(name))
	if err := os.Rename(assembledPath, final); err == nil {
		return final, nil
	}
	// Rename fails across filesystems
	src, err := os.Open(assembledPath)
	if err != nil {
		return "", err
	}
	defer src.Close()
	dst, err := os.OpenFile(final, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	return final, dst.Close()
}

// Discard removes every temporary file of uploadID
func (f *FileStorage) Discard(_ context.Context, uploadID string) error {
	dir := f.sessionDir(uploadID)
	size, err := dirSize(dir)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	f.release(size)
	return nil
}

// TempUsage returns the bytes currently held in temporary storage
func (f *FileStorage) TempUsage() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.used
}

func (f *FileStorage) reserve(n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.maxTempBytes > 0 && n > 0 && f.used+n > f.maxTempBytes {
		return domain.ErrUploadStorageFull
	}
	f.used += n
	return nil
}

func (f *FileStorage) release(n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used -= n
	if f.used < 0 {
		f.used = 0
	}
}

func (f *FileStorage) sessionDir(uploadID string) string {
	return filepath.Join(f.tempDir, filepath.Base(uploadID))
}

func appendFile(w io.Writer, p string) (int64, error) {
	src, err := os.Open(p)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return io.Copy(w, src)
}

// dirSize sums chunk files below dir; a missing dir is empty
func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() == assembledFileName {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return total, err
}
