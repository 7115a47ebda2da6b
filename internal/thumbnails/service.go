package thumbnails

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/orderdesk/orderdesk-backend/pkg/config"
	pkgerrors "github.com/orderdesk/orderdesk-backend/pkg/errors"
	"github.com/orderdesk/orderdesk-backend/pkg/logger"
)

// ObjectStore is the storage surface the thumbnail cache sits on.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Service is a deterministic content-hash thumbnail cache. Keys embed a
// version prefix; bumping the configured version makes every stale key
// unreachable without touching the stored objects.
type Service struct {
	store     ObjectStore
	version   int
	maxWidth  int
	maxHeight int
	logger    *logger.Logger
}

// NewService builds the thumbnail service.
func NewService(store ObjectStore, cfg config.ThumbnailConfig, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if cfg.MaxWidth <= 0 || cfg.MaxHeight <= 0 {
		return nil, fmt.Errorf("thumbnail dimensions must be positive")
	}
	return &Service{
		store:     store,
		version:   cfg.Version,
		maxWidth:  cfg.MaxWidth,
		maxHeight: cfg.MaxHeight,
		logger:    logg,
	}, nil
}

// Key derives the deterministic cache key for a source object. The hash
// covers the source key and the render parameters so any change to either
// produces a fresh key.
func (s *Service) Key(sourceKey string) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%dx%d", sourceKey, s.maxWidth, s.maxHeight))
	return fmt.Sprintf("thumbnails/v%d/%s.jpg", s.version, hex.EncodeToString(sum[:]))
}

// Ensure returns the cache key for the source image, generating and storing
// the thumbnail on a miss.
func (s *Service) Ensure(ctx context.Context, sourceKey string) (string, error) {
	if sourceKey == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "source key required")
	}

	key := s.Key(sourceKey)
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check thumbnail")
	}
	if exists {
		return key, nil
	}

	source, err := s.store.Get(ctx, sourceKey)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch source image")
	}
	thumb, err := s.render(source)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "render thumbnail")
	}
	if err := s.store.Put(ctx, key, "image/jpeg", thumb); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store thumbnail")
	}

	if s.logger != nil {
		s.logger.Info(s.logger.WithField(ctx, "thumbnail_key", key), "thumbnail generated")
	}
	return key, nil
}

// render decodes the source and box-samples it down to fit the configured
// bounds, preserving aspect ratio.
func (s *Service) render(source []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("decode source: %w", err)
	}

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, fmt.Errorf("empty source image")
	}

	dstW, dstH := fit(srcW, srcH, s.maxWidth, s.maxHeight)
	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	for y := 0; y < dstH; y++ {
		sy := bounds.Min.Y + y*srcH/dstH
		for x := 0; x < dstW; x++ {
			sx := bounds.Min.X + x*srcW/dstW
			dst.Set(x, y, img.At(sx, sy))
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales (w, h) to fit inside (maxW, maxH) without upscaling.
func fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	scaledW := maxW
	scaledH := h * maxW / w
	if scaledH > maxH {
		scaledH = maxH
		scaledW = w * maxH / h
	}
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}
	return scaledW, scaledH
}
