package domain

import (
	"sort"
	"time"
)

// UploadState is the state of a resumable upload session.
type UploadState string

const (
	UploadStateActive    UploadState = "active"
	UploadStateFinalized UploadState = "finalized"
	UploadStateCancelled UploadState = "cancelled"
	UploadStateExpired   UploadState = "expired"
)

// UploadSession tracks a chunked transfer.
// UploadedChunks is kept sorted. It only grows, except that a failed
// whole-file hash check empties it.
type UploadSession struct {
	ID                string      `json:"upload_id" db:"upload_id"`
	DeviceID          string      `json:"device_id,omitempty" db:"device_id"`
	Filename          string      `json:"filename" db:"filename"`
	MimeType          string      `json:"mime_type" db:"mime_type"`
	ExpectedTotalSize int64       `json:"expected_total_size" db:"expected_total_size"`
	ChunkSize         int64       `json:"chunk_size" db:"chunk_size"`
	TotalChunks       int         `json:"total_chunks" db:"total_chunks"`
	UploadedChunks    []int       `json:"uploaded_chunks" db:"uploaded_chunks"`
	FileHash          string      `json:"file_hash" db:"file_hash"`
	Status            UploadState `json:"status" db:"status"`
	FilePath          string      `json:"file_path,omitempty" db:"file_path"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
	ExpiresAt         time.Time   `json:"expires_at" db:"expires_at"`
	FinalizedAt       *time.Time  `json:"finalized_at,omitempty" db:"finalized_at"`
}

// HasChunk reports whether index is already recorded.
func (s *UploadSession) HasChunk(index int) bool {
	i := sort.SearchInts(s.UploadedChunks, index)
	return i < len(s.UploadedChunks) && s.UploadedChunks[i] == index
}

// AddChunk records index, keeping the set sorted. Returns false if already present.
func (s *UploadSession) AddChunk(index int) bool {
	i := sort.SearchInts(s.UploadedChunks, index)
	if i < len(s.UploadedChunks) && s.UploadedChunks[i] == index {
		return false
	}
	s.UploadedChunks = append(s.UploadedChunks, 0)
	copy(s.UploadedChunks[i+1:], s.UploadedChunks[i:])
	s.UploadedChunks[i] = index
	return true
}

// MissingChunks lists indices in [0, TotalChunks) not yet uploaded.
func (s *UploadSession) MissingChunks() []int {
	missing := make([]int, 0, s.TotalChunks-len(s.UploadedChunks))
	for i := 0; i < s.TotalChunks; i++ {
		if !s.HasChunk(i) {
			missing = append(missing, i)
		}
	}
	return missing
}

// Complete reports whether every chunk has been uploaded.
func (s *UploadSession) Complete() bool {
	return len(s.UploadedChunks) == s.TotalChunks
}

// ProgressPct returns upload progress rounded to two decimals.
func (s *UploadSession) ProgressPct() float64 {
	if s.TotalChunks == 0 {
		return 100
	}
	pct := float64(len(s.UploadedChunks)) / float64(s.TotalChunks) * 100
	return float64(int64(pct*100+0.5)) / 100
}

// ExpectedChunkSize returns the exact byte length required for chunk index.
func (s *UploadSession) ExpectedChunkSize(index int) int64 {
	if index == s.TotalChunks-1 {
		if rem := s.ExpectedTotalSize - int64(index)*s.ChunkSize; rem > 0 {
			return rem
		}
	}
	return s.ChunkSize
}

// Expired reports whether the session TTL has elapsed at now.
func (s *UploadSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// UploadStatus is the derived, read-only view of a session.
type UploadStatus struct {
	UploadID       string      `json:"upload_id"`
	Status         UploadState `json:"status"`
	UploadedChunks []int       `json:"uploaded_chunks"`
	MissingChunks  []int       `json:"missing_chunks"`
	ProgressPct    float64     `json:"progress_pct"`
	ExpiresAt      time.Time   `json:"expires_at"`
}

// FileReference is the stable handle to a finalized upload.
type FileReference struct {
	UploadID string `json:"upload_id"`
	URL      string `json:"file_url"`
	Path     string `json:"file_path"`
	Size     int64  `json:"file_size"`
	Checksum string `json:"checksum"`
	MimeType string `json:"mime_type,omitempty"`
}
