package constants

import "time"

const (
	SyncDebounce        = 400 * time.Millisecond
	HostedPollInterval  = 2 * time.Second
	SessionTTL          = 24 * time.Hour
	SessionCodeLength   = 6
	SessionCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	SessionCodeAttempts = 3
)

const (
	RemoteTimeout   = 10 * time.Second
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
	ExportTimeout   = 30 * time.Second
)

const (
	DBMaxOpenConns    = 1
	DBMaxIdleConns    = 1
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	AbbreviationMaxRunes = 4
	IDLength             = 12
	WatchBuffer          = 1
)

// IDAlphabet keeps ids safe to pass as command line arguments.
const IDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
