package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/image/draw"

	"github.com/Tobito320/ryxsurf/internal/ports"
)

const (
	DefaultMaxWidth = 512

	imageExt = ".png"
	metaExt  = ".toml"

	snapshotDirMode  = 0o700
	snapshotFileMode = 0o600
	tempFilePattern  = ".snapshot-*.tmp"
)

var ErrInvalidRef = errors.New("invalid snapshot ref")

type metaSchema struct {
	TabID      string    `toml:"tab_id"`
	URL        string    `toml:"url"`
	Title      string    `toml:"title"`
	CapturedAt time.Time `toml:"captured_at"`
	Width      int       `toml:"width"`
	Height     int       `toml:"height"`
}

// Store keeps one downscaled PNG and a TOML sidecar per tab. Refs are the
// PNG file names, relative to the directory.
type Store struct {
	dir      string
	maxWidth int
}

var _ ports.SnapshotStore = (*Store)(nil)

func NewStore(dir string, maxWidth int) *Store {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	return &Store{dir: dir, maxWidth: maxWidth}
}

// DefaultDir is $XDG_DATA_HOME/ryxsurf/snapshots, falling back to
// ~/.local/share.
func DefaultDir() (string, error) {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "ryxsurf", "snapshots"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "ryxsurf", "snapshots"), nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Write(ctx context.Context, img image.Image, meta ports.SnapshotMeta) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil {
		return "", errors.New("nil snapshot image")
	}
	if err := validateName(meta.TabID); err != nil {
		return "", err
	}

	scaled := resizeToMaxWidth(img, s.maxWidth)

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	sidecar, err := toml.Marshal(metaSchema{
		TabID:      meta.TabID,
		URL:        meta.URL,
		Title:      meta.Title,
		CapturedAt: meta.CapturedAt.UTC(),
		Width:      scaled.Bounds().Dx(),
		Height:     scaled.Bounds().Dy(),
	})
	if err != nil {
		return "", fmt.Errorf("encode snapshot meta: %w", err)
	}

	if err := os.MkdirAll(s.dir, snapshotDirMode); err != nil {
		return "", fmt.Errorf("create snapshot directory: %w", err)
	}

	ref := meta.TabID + imageExt
	if err := s.writeAtomic(ref, buf.Bytes()); err != nil {
		return "", err
	}
	if err := s.writeAtomic(meta.TabID+metaExt, sidecar); err != nil {
		return "", err
	}

	return ref, nil
}

func (s *Store) ReadMeta(ctx context.Context, ref string) (ports.SnapshotMeta, error) {
	if err := ctx.Err(); err != nil {
		return ports.SnapshotMeta{}, err
	}
	base, err := refBase(ref)
	if err != nil {
		return ports.SnapshotMeta{}, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, base+metaExt))
	if err != nil {
		return ports.SnapshotMeta{}, fmt.Errorf("read snapshot meta: %w", err)
	}

	var schema metaSchema
	if err := toml.Unmarshal(data, &schema); err != nil {
		return ports.SnapshotMeta{}, fmt.Errorf("decode snapshot meta: %w", err)
	}

	return ports.SnapshotMeta{
		TabID:      schema.TabID,
		URL:        schema.URL,
		Title:      schema.Title,
		CapturedAt: schema.CapturedAt,
	}, nil
}

// ReadImage decodes the stored PNG for ref.
func (s *Store) ReadImage(ref string) (image.Image, error) {
	base, err := refBase(ref)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.dir, base+imageExt))
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return img, nil
}

// Delete removes the image and its sidecar. Missing files are ignored.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	base, err := refBase(ref)
	if err != nil {
		return err
	}

	var errs []error
	for _, ext := range []string{imageExt, metaExt} {
		if err := os.Remove(filepath.Join(s.dir, base+ext)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Store) writeAtomic(name string, data []byte) error {
	tempFile, err := os.CreateTemp(s.dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp snapshot file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp snapshot file: %w", err)
	}
	if err := tempFile.Chmod(snapshotFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp snapshot file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp snapshot file: %w", err)
	}

	if err := os.Rename(tempName, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	cleanup = false

	return nil
}

func refBase(ref string) (string, error) {
	base, ok := strings.CutSuffix(ref, imageExt)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	if err := validateName(base); err != nil {
		return "", err
	}
	return base, nil
}

func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidRef, name)
	}
	return nil
}

// resizeToMaxWidth scales src so its width is at most maxWidth, keeping the
// aspect ratio.
func resizeToMaxWidth(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	if srcW <= maxWidth {
		return src
	}

	newW := maxWidth
	newH := max(1, srcH*maxWidth/srcW)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
