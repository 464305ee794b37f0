package config

const (
	// Storage backends
	StorageBackendPostgres = "postgres"
	StorageBackendMemory   = "memory"

	// Default filesystem locations
	DefaultSchemaDir        = "configs/schemas"
	DefaultUploadTempDir    = "data/uploads/tmp"
	DefaultUploadStorageDir = "data/uploads/files"
	DefaultDeadLetterPath   = "logs/event_deadletter.jsonl"
)
