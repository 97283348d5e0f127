package imaging

import (
	"image"
	"os"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// ImageCache provides thread-safe caching of decoded calibration images.
//
// The cache stores decoded images keyed by their file path. Once an image is
// loaded, subsequent Load calls for the same path return the cached copy
// without disk I/O. The tool server keeps one cache for its lifetime so that
// successive pipeline stages on the same photograph decode it once.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates an empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Supported formats are those of github.com/disintegration/imaging: JPEG,
// PNG, GIF, TIFF and BMP.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	img, ok := c.images[path]
	c.mu.RUnlock()
	if ok {
		if Exists(path) {
			return img, nil
		}
		c.Evict(path)
	}

	img, err := Open(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// LoadBuffer loads path through the cache and converts it to an RGB pixel
// buffer.
func (c *ImageCache) LoadBuffer(path string) (image.Image, *Buffer, error) {
	img, err := c.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return img, FromImage(img), nil
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Open decodes an image file.
func Open(path string) (image.Image, error) {
	if !Exists(path) {
		return nil, errors.Errorf("image file %q not found", path)
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q", path)
	}
	return img, nil
}

// Save encodes img to path, choosing the format from the file extension.
func Save(img image.Image, path string) error {
	if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
		return errors.Wrapf(err, "failed to save image %q", path)
	}
	return nil
}
