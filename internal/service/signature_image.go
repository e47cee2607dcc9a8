package service

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"strings"

	"proposta/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const webpDataURLPrefix = "data:image/webp;base64,"

// SignatureImageProcessor turns an uploaded signature drawing into a bounded,
// lossless WebP data URL.
type SignatureImageProcessor struct {
	maxBytes int
	maxWidth int
}

// NewSignatureImageProcessor creates a processor accepting images up to maxKB
// and downscaling anything wider than maxWidth.
func NewSignatureImageProcessor(maxKB, maxWidth int) *SignatureImageProcessor {
	return &SignatureImageProcessor{maxBytes: maxKB * 1024, maxWidth: maxWidth}
}

// Normalize decodes a data URL (png, jpeg or webp) and re-encodes it.
func (p *SignatureImageProcessor) Normalize(dataURL string) (string, error) {
	raw, err := p.decodeDataURL(dataURL)
	if err != nil {
		return "", err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", models.NewValidationError("signature image is not a valid image")
	}
	if !isSupportedSignatureFormat(format) {
		return "", models.NewValidationError("unsupported signature image format")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > 8*p.maxWidth || cfg.Height > 8*p.maxWidth {
		return "", models.NewValidationError("signature image dimensions are out of range")
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", models.NewValidationError("signature image is not a valid image")
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resizeToWidth(decoded, p.maxWidth), &webp.Options{Lossless: true}); err != nil {
		return "", models.NewInternalError(err)
	}
	return webpDataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (p *SignatureImageProcessor) decodeDataURL(dataURL string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimSpace(dataURL), ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, models.NewValidationError("signature image must be a base64 image data URL")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > p.maxBytes+3 {
		return nil, models.NewValidationError("signature image is too large")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, models.NewValidationError("signature image is not valid base64")
	}
	if len(raw) > p.maxBytes {
		return nil, models.NewValidationError("signature image is too large")
	}
	return raw, nil
}

func isSupportedSignatureFormat(format string) bool {
	switch format {
	case "png", "jpeg", "webp":
		return true
	default:
		return false
	}
}

func resizeToWidth(src image.Image, maxWidth int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxWidth {
		return src
	}
	nh := max(1, h*maxWidth/w)
	dst := image.NewNRGBA(image.Rect(0, 0, maxWidth, nh))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
