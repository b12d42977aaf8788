package ports

import (
	"context"
	"time"
)

// CryptoMeta is the single crypto_meta row.
type CryptoMeta struct {
	Salt          []byte
	KDFParams     string
	FormatVersion int
}

// StoredRecord is the encrypted tree payload.
type StoredRecord struct {
	Payload       []byte
	FormatVersion int
	SavedAt       time.Time
}

type RecordStore interface {
	LoadMeta(ctx context.Context) (CryptoMeta, bool, error)
	SaveMeta(ctx context.Context, meta CryptoMeta) error
	LoadRecord(ctx context.Context) (StoredRecord, bool, error)
	// SaveRecord replaces the stored record atomically.
	SaveRecord(ctx context.Context, record StoredRecord) error
	Close() error
}
