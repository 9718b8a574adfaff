package article

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path"
	"strings"

	"github.com/disintegration/imaging"

	"linuxos/internal/pkg/storage"
)

const (
	imageDir        = "article/thumbnails"
	imageSize       = 512
	thumbnailSize   = 100
	thumbnailSuffix = "_standard"
)

// storedImage is an article image and its thumbnail in storage.
type storedImage struct {
	Image     string
	Thumbnail string
}

// saveImage fits the uploaded image into imageSize and stores it together with
// its thumbnail. Both are re-encoded in the format implied by the file name.
func saveImage(ctx context.Context, files storage.Storage, filename string, src image.Image) (storedImage, error) {
	filename = storage.SanitizeFilename(filename)
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return storedImage{}, fmt.Errorf("%w: %s", ErrInvalidImage, filename)
	}

	fitted := imaging.Fit(src, imageSize, imageSize, imaging.Lanczos)
	name, err := saveEncoded(ctx, files, path.Join(imageDir, filename), fitted, format)
	if err != nil {
		return storedImage{}, err
	}

	thumb := imaging.Fit(fitted, thumbnailSize, thumbnailSize, imaging.Lanczos)
	ext := path.Ext(name)
	thumbName, err := saveEncoded(ctx, files, strings.TrimSuffix(name, ext)+thumbnailSuffix+ext, thumb, format)
	if err != nil {
		_ = files.Delete(name)
		return storedImage{}, err
	}
	return storedImage{Image: name, Thumbnail: thumbName}, nil
}

func saveEncoded(ctx context.Context, files storage.Storage, name string, img image.Image, format imaging.Format) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return files.Save(ctx, name, &buf)
}

func (s storedImage) remove(files storage.Storage) {
	if s.Image != "" {
		_ = files.Delete(s.Image)
	}
	if s.Thumbnail != "" {
		_ = files.Delete(s.Thumbnail)
	}
}
