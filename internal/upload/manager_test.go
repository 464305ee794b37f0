package upload

import (
	"bytes"
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/mobilesync/internal/domain"
)

const testChunkSize = 4

type managerFixture struct {
	sessions *mapSessions
	files    *FileStorage
	manager  *Manager
	clock    time.Time
}

func newManagerFixture(t *testing.T, maxTemp int64) *managerFixture {
	t.Helper()
	files, err := NewFileStorage(t.TempDir(), t.TempDir(), maxTemp)
	require.NoError(t, err)

	f := &managerFixture{
		sessions: newMapSessions(),
		files:    files,
		clock:    time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	f.manager = NewManager(f.sessions, files, nil, nil, Config{
		ChunkSize:     testChunkSize,
		TTL:           time.Hour,
		PublicBaseURL: "https://files.example.com/",
	})
	f.manager.now = func() time.Time { return f.clock }
	return f
}

func (f *managerFixture) init(t *testing.T, content []byte) *domain.UploadSession {
	t.Helper()
	s, err := f.manager.Init(context.Background(), InitRequest{
		Filename:  "photo.JPG",
		TotalSize: int64(len(content)),
		MimeType:  "image/jpeg",
		FileHash:  Checksum(content),
		DeviceID:  "d1",
	})
	require.NoError(t, err)
	return s
}

func chunks(content []byte) [][]byte {
	var out [][]byte
	for i := 0; i < len(content); i += testChunkSize {
		end := i + testChunkSize
		if end > len(content) {
			end = len(content)
		}
		out = append(out, content[i:end])
	}
	return out
}

func TestInit(t *testing.T) {
	f := newManagerFixture(t, 0)

	s := f.init(t, []byte("0123456789"))

	assert.Equal(t, int64(testChunkSize), s.ChunkSize)
	assert.Equal(t, 3, s.TotalChunks)
	assert.Equal(t, domain.UploadStateActive, s.Status)
	assert.Equal(t, f.clock.Add(time.Hour), s.ExpiresAt)
	assert.Empty(t, s.UploadedChunks)
}

func TestInit_RejectsInvalidRequests(t *testing.T) {
	f := newManagerFixture(t, 0)
	valid := Checksum([]byte("x"))

	tests := []struct {
		name string
		req  InitRequest
	}{
		{"missing filename", InitRequest{TotalSize: 1, FileHash: valid}},
		{"zero size", InitRequest{Filename: "a", FileHash: valid}},
		{"bad hash", InitRequest{Filename: "a", TotalSize: 1, FileHash: "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.manager.Init(context.Background(), tt.req)
			assert.ErrorIs(t, err, domain.ErrUploadInvalid)
			assert.Equal(t, domain.CodeUploadInvalid, domain.CodeOf(err))
		})
	}
}

func TestUploadAndFinalize(t *testing.T) {
	f := newManagerFixture(t, 0)
	ctx := context.Background()
	content := []byte("hello resumable world")
	s := f.init(t, content)

	parts := chunks(content)
	require.Len(t, parts, s.TotalChunks)
	for i := len(parts) - 1; i >= 0; i-- {
		_, err := f.manager.UploadChunk(ctx, s.ID, i, parts[i], Checksum(parts[i]))
		require.NoError(t, err)
	}

	ref, err := f.manager.Finalize(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, Checksum(content), ref.Checksum)
	assert.Equal(t, int64(len(content)), ref.Size)
	assert.Equal(t, "https://files.example.com/"+s.ID+".jpg", ref.URL)

	stored, err := os.ReadFile(ref.Path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(content, stored))
	assert.Equal(t, int64(0), f.files.TempUsage(), "temporary chunks released")

	again, err := f.manager.Finalize(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, ref, again)

	got, err := f.manager.Reference(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, ref.Path, got.Path)
}

func TestUploadChunk_Progress(t *testing.T) {
	f := newManagerFixture(t, 0)
	content := []byte("0123456789")
	s := f.init(t, content)

	res, err := f.manager.UploadChunk(context.Background(), s.ID, 1, []byte("4567"), Checksum([]byte("4567")))

	require.NoError(t, err)
	assert.True(t, res.Uploaded)
	assert.Equal(t, 1, res.ChunkIndex)
	assert.Equal(t, 2, res.RemainingChunks)
	assert.Equal(t, 33.33, res.ProgressPct)

	status, err := f.manager.Status(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, status.UploadedChunks)
	assert.Equal(t, []int{0, 2}, status.MissingChunks)
}

func TestUploadChunk_WrongChecksumNotRecorded(t *testing.T) {
	f := newManagerFixture(t, 0)
	s := f.init(t, []byte("01234567"))

	_, err := f.manager.UploadChunk(context.Background(), s.ID, 0, []byte("0123"), Checksum([]byte("nope")))

	require.ErrorIs(t, err, domain.ErrChecksumMismatch)
	assert.Equal(t, domain.CodeChecksumMismatch, domain.CodeOf(err))
	status, err := f.manager.Status(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Empty(t, status.UploadedChunks)
	assert.Equal(t, int64(0), f.files.TempUsage())
}

func TestUploadChunk_DuplicateIsNoop(t *testing.T) {
	f := newManagerFixture(t, 0)
	s := f.init(t, []byte("01234567"))
	ctx := context.Background()

	_, err := f.manager.UploadChunk(ctx, s.ID, 0, []byte("0123"), Checksum([]byte("0123")))
	require.NoError(t, err)
	res, err := f.manager.UploadChunk(ctx, s.ID, 0, []byte("0123"), Checksum([]byte("0123")))

	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, res.RemainingChunks)
	assert.Equal(t, int64(4), f.files.TempUsage())
}

func TestUploadChunk_Rejections(t *testing.T) {
	f := newManagerFixture(t, 0)
	s := f.init(t, []byte("0123456789"))
	ctx := context.Background()

	t.Run("unknown session", func(t *testing.T) {
		_, err := f.manager.UploadChunk(ctx, "missing", 0, []byte("0123"), Checksum([]byte("0123")))
		assert.ErrorIs(t, err, domain.ErrUploadNotFound)
		assert.Equal(t, domain.CodeUploadInvalid, domain.CodeOf(err))
	})

	t.Run("index out of range", func(t *testing.T) {
		_, err := f.manager.UploadChunk(ctx, s.ID, 3, []byte("89"), Checksum([]byte("89")))
		assert.ErrorIs(t, err, domain.ErrChunkOutOfRange)
	})

	t.Run("short middle chunk", func(t *testing.T) {
		_, err := f.manager.UploadChunk(ctx, s.ID, 1, []byte("45"), Checksum([]byte("45")))
		assert.ErrorIs(t, err, domain.ErrChunkSizeMismatch)
	})

	t.Run("last chunk carries the remainder", func(t *testing.T) {
		_, err := f.manager.UploadChunk(ctx, s.ID, 2, []byte("89"), Checksum([]byte("89")))
		assert.NoError(t, err)
	})
}

func TestUploadChunk_Expired(t *testing.T) {
	f := newManagerFixture(t, 0)
	s := f.init(t, []byte("0123"))
	f.clock = f.clock.Add(2 * time.Hour)

	_, err := f.manager.UploadChunk(context.Background(), s.ID, 0, []byte("0123"), Checksum([]byte("0123")))

	assert.ErrorIs(t, err, domain.ErrUploadExpired)
	assert.Equal(t, domain.CodeUploadExpired, domain.CodeOf(err))
}

func TestUploadChunk_StorageFull(t *testing.T) {
	f := newManagerFixture(t, 6)
	s := f.init(t, []byte("01234567"))
	ctx := context.Background()

	_, err := f.manager.UploadChunk(ctx, s.ID, 0, []byte("0123"), Checksum([]byte("0123")))
	require.NoError(t, err)
	_, err = f.manager.UploadChunk(ctx, s.ID, 1, []byte("4567"), Checksum([]byte("4567")))

	assert.ErrorIs(t, err, domain.ErrUploadStorageFull)
	assert.True(t, domain.IsRetryable(err))
}

func TestUploadChunk_ParallelChunks(t *testing.T) {
	f := newManagerFixture(t, 0)
	content := []byte("abcdefghijklmnopqrstuvwxyz0123456789ABCD")
	s := f.init(t, content)
	parts := chunks(content)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, len(parts)*2)
	for i, p := range parts {
		for r := 0; r < 2; r++ {
			wg.Add(1)
			go func(i int, p []byte) {
				defer wg.Done()
				_, err := f.manager.UploadChunk(ctx, s.ID, i, p, Checksum(p))
				errs <- err
			}(i, p)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	ref, err := f.manager.Finalize(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, Checksum(content), ref.Checksum)
}

func TestFinalize_Incomplete(t *testing.T) {
	f := newManagerFixture(t, 0)
	s := f.init(t, []byte("01234567"))
	_, err := f.manager.UploadChunk(context.Background(), s.ID, 0, []byte("0123"), Checksum([]byte("0123")))
	require.NoError(t, err)

	_, err = f.manager.Finalize(context.Background(), s.ID)

	assert.ErrorIs(t, err, domain.ErrUploadIncomplete)
	assert.Equal(t, domain.CodeUploadInvalid, domain.CodeOf(err))
}

func TestFinalize_FileHashMismatch(t *testing.T) {
	f := newManagerFixture(t, 0)
	ctx := context.Background()
	s, err := f.manager.Init(ctx, InitRequest{Filename: "a.bin", TotalSize: 4, FileHash: Checksum([]byte("zzzz"))})
	require.NoError(t, err)
	_, err = f.manager.UploadChunk(ctx, s.ID, 0, []byte("0123"), Checksum([]byte("0123")))
	require.NoError(t, err)

	_, err = f.manager.Finalize(ctx, s.ID)

	assert.ErrorIs(t, err, domain.ErrChecksumMismatch)
	_, err = f.manager.Reference(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrUploadRefNotUsable)
}

func TestFinalize_FileHashMismatchClearsChunks(t *testing.T) {
	f := newManagerFixture(t, 0)
	ctx := context.Background()
	s := f.init(t, []byte("01234567"))

	// chunk 1 was corrupted before the device hashed it
	_, err := f.manager.UploadChunk(ctx, s.ID, 0, []byte("0123"), Checksum([]byte("0123")))
	require.NoError(t, err)
	_, err = f.manager.UploadChunk(ctx, s.ID, 1, []byte("4X67"), Checksum([]byte("4X67")))
	require.NoError(t, err)

	_, err = f.manager.Finalize(ctx, s.ID)
	require.ErrorIs(t, err, domain.ErrChecksumMismatch)

	status, err := f.manager.Status(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStateActive, status.Status)
	assert.Empty(t, status.UploadedChunks)
	assert.Equal(t, []int{0, 1}, status.MissingChunks)
	assert.Equal(t, int64(0), f.files.TempUsage())

	for i, c := range chunks([]byte("01234567")) {
		res, err := f.manager.UploadChunk(ctx, s.ID, i, c, Checksum(c))
		require.NoError(t, err)
		assert.False(t, res.Duplicate)
	}
	ref, err := f.manager.Finalize(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), ref.Size)
}

func TestCancel(t *testing.T) {
	f := newManagerFixture(t, 0)
	s := f.init(t, []byte("01234567"))
	ctx := context.Background()
	_, err := f.manager.UploadChunk(ctx, s.ID, 0, []byte("0123"), Checksum([]byte("0123")))
	require.NoError(t, err)

	require.NoError(t, f.manager.Cancel(ctx, s.ID))

	assert.Equal(t, int64(0), f.files.TempUsage(), "released without waiting for the sweep")
	assert.NoError(t, f.manager.Cancel(ctx, s.ID), "cancel is idempotent")
	_, err = f.manager.UploadChunk(ctx, s.ID, 1, []byte("4567"), Checksum([]byte("4567")))
	assert.ErrorIs(t, err, domain.ErrUploadNotActive)
	_, err = f.manager.Finalize(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrUploadNotActive)
}

func TestSweepExpired(t *testing.T) {
	f := newManagerFixture(t, 0)
	ctx := context.Background()
	stale := f.init(t, []byte("0123"))
	_, err := f.manager.UploadChunk(ctx, stale.ID, 0, []byte("0123"), Checksum([]byte("0123")))
	require.NoError(t, err)

	f.clock = f.clock.Add(30 * time.Minute)
	fresh := f.init(t, []byte("4567"))
	f.clock = f.clock.Add(45 * time.Minute)

	n, err := f.manager.SweepExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(0), f.files.TempUsage())

	status, err := f.manager.Status(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStateExpired, status.Status)
	status, err = f.manager.Status(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStateActive, status.Status)

	require.NoError(t, NewSweepJob(f.manager).Process(ctx))
}

func TestChecksum(t *testing.T) {
	assert.Equal(t,
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		Checksum([]byte("hello")))
	assert.Equal(t, 64, len(Checksum(nil)))
}
