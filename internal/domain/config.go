package domain

import "time"

// Config carries the runtime knobs the inner layers need. Built once in
// main from the file config.
type Config struct {
	AdminTokenHash string

	UploadTimeout  time.Duration
	PersistTimeout time.Duration
	DebounceWindow time.Duration
}
