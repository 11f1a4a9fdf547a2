// Package fingerprint computes document checksums and perceptual hashes.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math/bits"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/joseph-ayodele/docintel/constants"
	"github.com/joseph-ayodele/docintel/internal/entity"
)

const (
	// GridSize is the side of the grayscale grid sampled for the perceptual hash.
	GridSize = 8
	// HashBits is the perceptual hash length in bits; also the "no information" distance.
	HashBits = GridSize * GridSize
	// HashHexLen is the perceptual hash length in hex characters.
	HashHexLen = HashBits / 4
)

// Checksum is the hex SHA-256 of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// PerceptualHash returns an average hash for decodable images and a truncated
// SHA-256 for everything else. A byte-derived hash can only ever exact-match.
// An error means the content claimed to be an image in a known format but could not be decoded.
func PerceptualHash(content []byte, mimeType string) (string, error) {
	if !constants.IsImageMime(mimeType) {
		return byteHash(content), nil
	}
	img, _, err := image.Decode(bytes.NewReader(content))
	if errors.Is(err, image.ErrFormat) {
		// no decoder registered (e.g. HEIC)
		return byteHash(content), nil
	}
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	return AverageHash(img), nil
}

// AverageHash downsamples img to a GridSize x GridSize grayscale grid and sets one bit
// per sample brighter than the grid mean, most significant bit first.
func AverageHash(img image.Image) string {
	grid := image.NewGray(image.Rect(0, 0, GridSize, GridSize))
	draw.ApproxBiLinear.Scale(grid, grid.Bounds(), img, img.Bounds(), draw.Src, nil)

	var sum int
	for _, p := range grid.Pix {
		sum += int(p)
	}
	mean := sum / len(grid.Pix)

	var h uint64
	for i, p := range grid.Pix {
		if int(p) > mean {
			h |= 1 << (HashBits - 1 - i)
		}
	}
	return fmt.Sprintf("%0*x", HashHexLen, h)
}

func byteHash(content []byte) string {
	return Checksum(content)[:HashHexLen]
}

// HammingDistance compares two hex hashes bit by bit. It returns the distance and
// the bit length it was measured over. Missing, unequal-length or non-hex hashes
// yield (HashBits, HashBits): maximal distance, never an error.
func HammingDistance(a, b string) (distance, bitLength int) {
	if a == "" || b == "" || len(a) != len(b) {
		return HashBits, HashBits
	}
	for i := 0; i < len(a); i++ {
		x, ok1 := hexNibble(a[i])
		y, ok2 := hexNibble(b[i])
		if !ok1 || !ok2 {
			return HashBits, HashBits
		}
		distance += bits.OnesCount8(x ^ y)
	}
	return distance, len(a) * 4
}

// VisualSimilarity is 1 - distance/bitLength.
func VisualSimilarity(a, b string) float64 {
	d, n := HammingDistance(a, b)
	return 1 - float64(d)/float64(n)
}

func hexNibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// Builder produces fingerprints, skipping the perceptual hash for malformed images.
type Builder struct {
	logger *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

// Build fills the fields that are not already known. Precomputed values are kept,
// lower-cased. Without content no perceptual hash is derived.
func (b *Builder) Build(content []byte, mimeType string, known entity.DocumentFingerprint) entity.DocumentFingerprint {
	fp := known
	fp.Checksum = strings.ToLower(strings.TrimSpace(fp.Checksum))
	fp.PerceptualHash = strings.ToLower(strings.TrimSpace(fp.PerceptualHash))
	if fp.Checksum == "" {
		fp.Checksum = Checksum(content)
	}
	if fp.PerceptualHash == "" && len(content) > 0 {
		ph, err := PerceptualHash(content, mimeType)
		if err != nil {
			b.logger.Warn("perceptual hash skipped", "mime_type", mimeType, "bytes", len(content), "error", err)
		}
		fp.PerceptualHash = ph
	}
	return fp
}
