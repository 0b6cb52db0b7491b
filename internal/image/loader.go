// Package image provides utilities for loading and decoding images to sample from.
package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // Register BMP format
	_ "golang.org/x/image/tiff" // Register TIFF format
	_ "golang.org/x/image/webp" // Register WebP format

	"github.com/jmylchreest/swatch/internal/compression"
	"github.com/jmylchreest/swatch/internal/security"
	httputil "github.com/jmylchreest/swatch/internal/util/http"
	"github.com/jmylchreest/swatch/internal/util/imagecache"
)

// DefaultMaxBytes bounds the decoded payload of a single image.
const DefaultMaxBytes = 32 << 20

// DefaultMaxPixels bounds the decoded raster of a single image. It matches the
// largest frame a source plugin may send.
const DefaultMaxPixels = 8192 * 8192

var (
	// ErrTooLarge is returned when an image payload exceeds its size or pixel limit.
	ErrTooLarge = errors.New("image too large")

	// ErrUnsupportedFormat is returned when a payload is not a decodable image.
	ErrUnsupportedFormat = errors.New("unsupported or invalid image format")
)

// Loader handles loading images from various sources.
type Loader interface {
	// Load loads an image from the given path.
	Load(path string) (image.Image, error)
}

// Decode reads an image of at most maxBytes (after decompression) and
// DefaultMaxPixels from r. The pixel limit is checked from the header before
// the raster is allocated.
// Gzip, xz and bzip2 wrapped images are unwrapped transparently and EXIF
// orientation is applied, so pixel coordinates match what a viewer displays.
// It returns the decoded image and its format name.
func Decode(r io.Reader, maxBytes int64) (image.Image, string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	dr, _, err := compression.NewReader(r, maxBytes)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	data, err := io.ReadAll(dr)
	if err != nil {
		if errors.Is(err, security.ErrSizeLimitExceeded) {
			return nil, "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, maxBytes)
		}
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, fmt.Errorf("%w: image has no pixels", ErrUnsupportedFormat)
	}
	if cfg.Width > DefaultMaxPixels/cfg.Height {
		return nil, format, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, DefaultMaxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, format, fmt.Errorf("failed to decode image (format: %s): %w", format, err)
	}

	return img, format, nil
}

// DecodeUpload decodes an uploaded image, rejecting payloads over maxBytes.
func DecodeUpload(r io.Reader, maxBytes int64) (image.Image, error) {
	img, _, err := Decode(r, maxBytes)
	return img, err
}

// FileLoader loads images from the local filesystem.
type FileLoader struct {
	maxBytes int64
}

// NewFileLoader creates a new FileLoader instance.
func NewFileLoader() *FileLoader {
	return &FileLoader{maxBytes: DefaultMaxBytes}
}

// Load loads an image from a file path.
// Supported formats: JPEG, PNG, GIF, WebP, BMP, TIFF, optionally gzip/xz/bzip2 compressed.
func (l *FileLoader) Load(path string) (image.Image, error) {
	// Validate path.
	if path == "" {
		return nil, fmt.Errorf("image path cannot be empty")
	}

	// Check if file exists.
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to stat image file: %w", err)
	}

	// Check if it's a directory.
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	// Open the file.
	file, err := os.Open(path) // #nosec G304 - User-specified image path, intended to be read
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer file.Close()

	img, _, err := Decode(file, l.maxBytes)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// ValidateImagePath checks if the given path is valid and points to a supported image file.
// Supports both local file paths and HTTP(S) URLs.
// For HTTP(S) URLs, it just validates the URL format (actual fetching happens later).
func ValidateImagePath(path string) error {
	// Check if path is empty.
	if path == "" {
		return fmt.Errorf("image path cannot be empty")
	}

	if IsURL(path) {
		// We don't fetch it here to avoid double-fetching.
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("image file not found: %s", path)
		}
		return fmt.Errorf("failed to access image path: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !isImageFile(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return nil
}

// SupportedImageExtensions returns a list of supported image file extensions.
func SupportedImageExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}
}

// compressedExtensions are stripped before checking the image extension.
var compressedExtensions = []string{".gz", ".xz", ".bz2"}

// isImageFile checks if a file has a supported image extension, optionally
// followed by a compression extension.
func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if slices.Contains(compressedExtensions, ext) {
		path = strings.TrimSuffix(path, filepath.Ext(path))
		ext = strings.ToLower(filepath.Ext(path))
	}
	return slices.Contains(SupportedImageExtensions(), ext)
}

// IsURL reports whether path is an HTTP(S) URL.
func IsURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// SmartOption configures a SmartLoader.
type SmartOption func(*SmartLoader)

// WithCacheDir caches downloaded images in dir.
func WithCacheDir(dir string) SmartOption {
	return func(l *SmartLoader) {
		l.cacheDir = dir
		l.useCache = true
	}
}

// WithFetchOptions configures remote downloads.
func WithFetchOptions(opts httputil.FetchOptions) SmartOption {
	return func(l *SmartLoader) {
		l.fetch = opts
	}
}

// WithURLValidator replaces the URL check applied before any download.
func WithURLValidator(fn func(string) error) SmartOption {
	return func(l *SmartLoader) {
		l.validateURL = fn
	}
}

// SmartLoader loads images from both local files and HTTP(S) URLs.
type SmartLoader struct {
	fileLoader  *FileLoader
	fetch       httputil.FetchOptions
	validateURL func(string) error
	useCache    bool
	cacheDir    string
}

// NewSmartLoader creates a new SmartLoader instance. Remote URLs must pass
// security.ValidateHTTPURL unless another validator is configured.
func NewSmartLoader(opts ...SmartOption) *SmartLoader {
	l := &SmartLoader{
		fileLoader:  NewFileLoader(),
		validateURL: security.ValidateHTTPURL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads an image from either a local file path or HTTP(S) URL.
func (l *SmartLoader) Load(path string) (image.Image, error) {
	return l.LoadContext(context.Background(), path)
}

// LoadContext is Load with a context bounding remote fetches.
func (l *SmartLoader) LoadContext(ctx context.Context, path string) (image.Image, error) {
	if !IsURL(path) {
		return l.fileLoader.Load(path)
	}

	if l.validateURL != nil {
		if err := l.validateURL(path); err != nil {
			return nil, fmt.Errorf("refusing to fetch image: %w", err)
		}
	}

	if l.useCache {
		cached, err := imagecache.DownloadAndCache(ctx, path, imagecache.CacheOptions{
			CacheDir: l.cacheDir,
			Fetch:    l.fetch,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch image from URL: %w", err)
		}
		return l.fileLoader.Load(cached)
	}

	return l.loadFromURL(ctx, path)
}

// loadFromURL fetches and decodes an image from an HTTP(S) URL.
func (l *SmartLoader) loadFromURL(ctx context.Context, url string) (image.Image, error) {
	data, err := httputil.Fetch(ctx, url, l.fetch)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image from URL: %w", err)
	}

	img, _, err := Decode(bytes.NewReader(data), l.fileLoader.maxBytes)
	if err != nil {
		return nil, err
	}
	return img, nil
}
