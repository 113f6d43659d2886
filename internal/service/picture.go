package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"sociable/internal/config"
	"sociable/internal/middleware"
	"sociable/internal/models"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	// PictureURLPrefix is where UPLOAD_DIR is served.
	PictureURLPrefix = "/uploads/"

	pictureMaxSize     = 512
	pictureWebPQuality = 80
	picturesSubdir     = "pictures"
)

// PictureStore converts uploaded avatars to webp and keeps them under the
// upload directory.
type PictureStore struct {
	dir      string
	maxBytes int64
}

func NewPictureStore(cfg *config.Config) *PictureStore {
	return &PictureStore{dir: cfg.UploadDir, maxBytes: cfg.MaxUploadBytes()}
}

// Save validates and re-encodes content, writes it and returns the public
// URL path of the new file.
func (p *PictureStore) Save(username string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", models.NewValidationError("No file was submitted")
	}
	if int64(len(content)) > p.maxBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", p.maxBytes/(1024*1024)))
	}
	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return "", models.NewValidationError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	decoded, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return "", models.NewValidationError("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resizeToFit(decoded, pictureMaxSize, pictureMaxSize), &webp.Options{Quality: pictureWebPQuality}); err != nil {
		return "", models.NewInternalError(err)
	}

	rel := filepath.ToSlash(filepath.Join(picturesSubdir, fmt.Sprintf("%s-%s.webp", slugify(username), uuid.NewString())))
	abs := filepath.Join(p.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o750); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o600); err != nil {
		return "", models.NewInternalError(err)
	}
	return PictureURLPrefix + rel, nil
}

// Remove deletes the file behind a URL returned by Save. Anything outside
// the pictures directory is ignored.
func (p *PictureStore) Remove(url string) {
	if p == nil || url == "" {
		return
	}
	path, ok := p.localPath(url)
	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		middleware.Logger.Warn("failed to remove picture", "path", path, "error", err)
	}
}

func (p *PictureStore) localPath(url string) (string, bool) {
	rel, found := strings.CutPrefix(url, PictureURLPrefix)
	if !found {
		return "", false
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.Dir(clean) != picturesSubdir {
		return "", false
	}
	return filepath.Join(p.dir, clean), true
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scale := min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h))
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// slugify keeps ASCII letters and digits and joins everything else with
// single hyphens.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "picture"
	}
	return out
}
