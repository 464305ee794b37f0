package upload

// Lock key prefix for per-session locks
const lockPrefix = "upload:"

// Temporary file layout
const (
	chunkFileFormat   = "%06d.part"
	assembledFileName = "assembled.tmp"
	dirPerm           = 0o750
	filePerm          = 0o640
)

// Log messages
const (
	LogMsgSessionCreated   = "Upload session created"
	LogMsgChunkStored      = "Upload chunk stored"
	LogMsgChunkDuplicate   = "Duplicate upload chunk ignored"
	LogMsgChecksumRejected = "Upload chunk rejected: checksum mismatch"
	LogMsgFinalized        = "Upload finalized"
	LogMsgFileHashMismatch = "Reassembled file hash does not match claimed hash"
	LogMsgCancelled        = "Upload cancelled"
	LogMsgExpired          = "Upload session expired"
	LogMsgDiscardFailed    = "Failed to release temporary upload storage"
	LogMsgSweepComplete    = "Upload sweep complete"
	LogMsgSweepFailed      = "Upload sweep failed"
)

// Error message formats
const (
	ErrMsgFilenameRequired = "%w: filename is required"
	ErrMsgTotalSizeInvalid = "%w: total_size must be positive"
	ErrMsgFileHashInvalid  = "%w: file_hash must be a hex sha-256 digest"
	ErrMsgChunkIndex       = "%w: index %d not in [0,%d)"
	ErrMsgChunkSize        = "%w: chunk %d is %d bytes, expected %d"
	ErrMsgChunkChecksum    = "%w: chunk %d"
	ErrMsgMissingChunks    = "%w: %d chunks missing"
	ErrMsgFileChecksum     = "%w: file hash %s does not match claimed %s"
	ErrMsgStore            = "%w: %v"
	ErrMsgStorage          = "upload storage: %w"
)
