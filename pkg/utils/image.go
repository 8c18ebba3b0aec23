package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// JPEGQuality matches the default quality of common imaging libraries.
const JPEGQuality = 75

var (
	ErrEmptyPayload  = errors.New("empty image payload")
	ErrInvalidBase64 = errors.New("invalid base64 image data")
	ErrInvalidImage  = errors.New("invalid image format")
)

// StripDataURIPrefix drops everything up to and including the first comma,
// so "data:image/png;base64,AAAA" becomes "AAAA".
func StripDataURIPrefix(payload string) string {
	if idx := strings.Index(payload, ","); idx >= 0 {
		return payload[idx+1:]
	}
	return payload
}

// DecodeBase64Payload accepts a raw or data-URI base64 string. Whitespace is
// ignored and missing padding is tolerated.
func DecodeBase64Payload(payload string) ([]byte, error) {
	encoded := strings.Join(strings.Fields(StripDataURIPrefix(payload)), "")
	if encoded == "" {
		return nil, ErrEmptyPayload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
	}

	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	return data, nil
}

// DetectImageMIME sniffs the content type, falling back to image/jpeg for
// anything that is not recognised as an image.
func DetectImageMIME(data []byte) string {
	mtype := mimetype.Detect(data)
	if strings.HasPrefix(mtype.String(), "image/") {
		return mtype.String()
	}
	return "image/jpeg"
}

func EncodeDataURI(data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", DetectImageMIME(data), base64.StdEncoding.EncodeToString(data))
}

// DecodeImage fully decodes data and rejects anything that is not a readable,
// non-empty image.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyPayload
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("%w: empty dimensions", ErrInvalidImage)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return img, format, nil
}

// ToRGBA copies img into an opaque RGBA canvas anchored at the origin.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReencodeJPEG decodes any supported format and writes it back as JPEG.
func ReencodeJPEG(data []byte) ([]byte, error) {
	if DetectImageMIME(data) == "image/jpeg" {
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			return data, nil
		}
	}

	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}

	return EncodeJPEG(ToRGBA(img))
}
