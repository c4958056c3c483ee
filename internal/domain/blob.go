package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo describes a stored object.
type BlobInfo struct {
	Path         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// BlobWriter uploads data to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error
}

// BlobReader retrieves data from object storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// SettlementArchiver exports the settlement ledger of resolved or canceled
// markets to cold storage for audit, and reads archived documents back.
type SettlementArchiver interface {
	ArchiveMarket(ctx context.Context, marketID int64) (string, error)
	// ReadSettlement returns the most recent archived settlement document
	// for the market together with the object key it lives under.
	ReadSettlement(ctx context.Context, marketID int64) ([]byte, string, error)
}
