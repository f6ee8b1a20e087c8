// internal/safe/compression.go
package safe

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CompressionOptions configures compression behavior
type CompressionOptions struct {
	Enabled bool
	// Minimum size in bytes before compressing
	MinSize int
	// Compression level (1=fastest, 4=best)
	Level int
}

// DefaultCompressionOptions provides sensible defaults
func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		Enabled: true,
		MinSize: 1024, // 1KB
		Level:   2,    // Balanced speed/compression
	}
}

// Magic numbers of formats that are already compressed. Compressing them
// again costs time and rarely saves space.
var compressedMagic = [][]byte{
	{0x28, 0xB5, 0x2F, 0xFD}, // zstd
	{0x1F, 0x8B},             // gzip
	{0x50, 0x4B, 0x03, 0x04}, // zip, docx, xlsx, jar
	{0xFD, 0x37, 0x7A, 0x58}, // xz
	{0x42, 0x5A, 0x68},       // bzip2
	{0x89, 0x50, 0x4E, 0x47}, // png
	{0xFF, 0xD8, 0xFF},       // jpeg
	{0x47, 0x49, 0x46, 0x38}, // gif
	{0x25, 0x50, 0x44, 0x46}, // pdf
}

// compressionManager handles compression operations. zstd encoders and
// decoders are safe for concurrent EncodeAll/DecodeAll use, so one of
// each is shared.
type compressionManager struct {
	opts CompressionOptions
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

func newCompressionManager(opts CompressionOptions) (*compressionManager, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(opts.Level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	return &compressionManager{opts: opts, enc: enc, dec: dec}, nil
}

// shouldCompress determines if content should be compressed
func (cm *compressionManager) shouldCompress(content []byte) bool {
	if !cm.opts.Enabled || len(content) < cm.opts.MinSize {
		return false
	}

	for _, magic := range compressedMagic {
		if bytes.HasPrefix(content, magic) {
			return false
		}
	}

	return true
}

// compress returns the bytes to write to disk and whether they are
// compressed. Output that does not shrink the content is discarded.
func (cm *compressionManager) compress(content []byte) ([]byte, bool) {
	if !cm.shouldCompress(content) {
		return content, false
	}

	out := cm.enc.EncodeAll(content, make([]byte, 0, len(content)/2))
	if len(out) >= len(content) {
		return content, false
	}
	return out, true
}

func (cm *compressionManager) decompress(content []byte) ([]byte, error) {
	out, err := cm.dec.DecodeAll(content, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (cm *compressionManager) close() {
	cm.enc.Close()
	cm.dec.Close()
}
