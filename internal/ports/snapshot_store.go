package ports

import (
	"context"
	"image"
	"time"
)

type SnapshotMeta struct {
	TabID      string
	URL        string
	Title      string
	CapturedAt time.Time
}

type SnapshotStore interface {
	Write(ctx context.Context, img image.Image, meta SnapshotMeta) (ref string, err error)
	ReadMeta(ctx context.Context, ref string) (SnapshotMeta, error)
	Delete(ctx context.Context, ref string) error
}
