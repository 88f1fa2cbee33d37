package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	// Register decoders for accepted upload formats.
	_ "image/gif"
	_ "image/png"

	"yatube/internal/config"
	"yatube/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir             = "/tmp/yatube/media"
	DefaultImageMaxUploadSizeMB = 5
	// MaxImageSide bounds the longest side of a stored post image.
	MaxImageSide = 1080
	JPEGQuality  = 82
	WebPQuality  = 70

	postImageDir = "posts"
)

type UploadImageInput struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService validates, resizes and stores post images under the media dir.
type ImageService struct {
	mediaDir           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaDir := DefaultMediaDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		mediaDir:           mediaDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaDir is the root directory served under /media.
func (s *ImageService) MediaDir() string {
	return s.mediaDir
}

// Save stores the image as JPEG plus a WebP variant named by content hash and
// returns the JPEG path relative to the media dir. Identical uploads share files.
func (s *ImageService) Save(_ context.Context, in UploadImageInput) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewFieldValidationError(map[string]string{"image": "The submitted file is empty."})
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return "", models.NewFieldValidationError(map[string]string{
			"image": fmt.Sprintf("File too large (max %dMB).", s.maxUploadSizeBytes/(1024*1024)),
		})
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", invalidImage()
	}
	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", invalidImage()
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, decodedFormatToMime(format)) {
		return "", models.NewFieldValidationError(map[string]string{"image": "Image content type mismatch."})
	}

	resized := resizeToFit(decoded, MaxImageSide, MaxImageSide)
	jpgBytes, err := encodeJPEG(resized, JPEGQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	webpBytes, err := encodeWebP(resized, WebPQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	hash := contentHash(jpgBytes)
	jpgRel := filepath.ToSlash(filepath.Join(postImageDir, hash+".jpg"))
	webpRel := filepath.ToSlash(filepath.Join(postImageDir, hash+".webp"))
	jpgAbs := filepath.Join(s.mediaDir, filepath.FromSlash(jpgRel))
	webpAbs := filepath.Join(s.mediaDir, filepath.FromSlash(webpRel))

	if err := writeBytesToFile(jpgAbs, jpgBytes); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writeBytesToFile(webpAbs, webpBytes); err != nil {
		_ = os.Remove(jpgAbs)
		return "", models.NewInternalError(err)
	}
	return jpgRel, nil
}

// WebPVariant returns the WebP path stored next to a JPEG path from Save.
func WebPVariant(jpgRel string) string {
	return strings.TrimSuffix(jpgRel, ".jpg") + ".webp"
}

func invalidImage() error {
	return models.NewFieldValidationError(map[string]string{
		"image": "Upload a valid image. The file you uploaded was either not an image or a corrupted image.",
	})
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

	scale := float64(maxWidth) / float64(w)
	if scaleH := float64(maxHeight) / float64(h); scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func decodedFormatToMime(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
