// Package artwork turns an embedded cover picture into something a browser can show directly.
package artwork

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"net/http"

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/tagview/tagview-server/internal/tags"
)

// blurHashSize is the longest edge of the thumbnail the hash is computed from.
const blurHashSize = 64

// Artwork is a cover image ready for display.
type Artwork struct {
	DataURL  string `json:"dataUrl"`
	MIMEType string `json:"mimeType"`
	Width    int    `json:"width,omitempty"`
	Height   int    `json:"height,omitempty"`
	// BlurHash is empty when the image could not be decoded.
	BlurHash string `json:"blurHash,omitempty"`
}

// Build encodes the picture as a data: URL with a BlurHash placeholder.
// It returns nil when the picture has no data.
func Build(p tags.Picture) *Artwork {
	if len(p.Data) == 0 {
		return nil
	}

	mimeType := p.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(p.Data)
	}

	art := &Artwork{
		DataURL:  "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(p.Data),
		MIMEType: mimeType,
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(p.Data)); err == nil {
		art.Width, art.Height = cfg.Width, cfg.Height
	}
	if hash, err := ComputeBlurHash(p.Data); err == nil {
		art.BlurHash = hash
	}
	return art
}

// ComputeBlurHash decodes image bytes and encodes a 4x3 component BlurHash.
func ComputeBlurHash(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	hash, err := blurhash.Encode(4, 3, thumbnail(img))
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}

// thumbnail scales img down with nearest-neighbour sampling.
func thumbnail(img image.Image) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW <= blurHashSize && srcH <= blurHashSize {
		return img
	}

	dstW, dstH := blurHashSize, blurHashSize
	if srcW > srcH {
		dstH = max(srcH*blurHashSize/srcW, 1)
	} else {
		dstW = max(srcW*blurHashSize/srcH, 1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xRatio := float64(srcW) / float64(dstW)
	yRatio := float64(srcH) / float64(dstH)
	for y := range dstH {
		for x := range dstW {
			dst.Set(x, y, img.At(bounds.Min.X+int(float64(x)*xRatio), bounds.Min.Y+int(float64(y)*yRatio)))
		}
	}
	return dst
}
