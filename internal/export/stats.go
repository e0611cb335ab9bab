package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// CompressionStats compares the serialized sizes of two values
type CompressionStats struct {
	OriginalSize     int `json:"originalSize"`
	CompressedSize   int `json:"compressedSize"`
	CompressionRatio int `json:"compressionRatio"`
	Savings          int `json:"savings"`
}

// Stats measures original and compressed by the byte length of their compact
// JSON encodings, with <, > and & left unescaped. The ratio is a rounded percentage and is negative when the
// compressed form is larger.
func Stats(original, compressed any) (CompressionStats, error) {
	ob, err := marshalJSON(original)
	if err != nil {
		return CompressionStats{}, fmt.Errorf("failed to measure original: %w", err)
	}
	cb, err := marshalJSON(compressed)
	if err != nil {
		return CompressionStats{}, fmt.Errorf("failed to measure compressed: %w", err)
	}
	return CompressionStats{
		OriginalSize:     len(ob),
		CompressedSize:   len(cb),
		CompressionRatio: compressionRatio(len(ob), len(cb)),
		Savings:          len(ob) - len(cb),
	}, nil
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func compressionRatio(originalSize, compressedSize int) int {
	if originalSize == 0 {
		return 0
	}
	pct := (1 - float64(compressedSize)/float64(originalSize)) * 100
	// Halves round up, so -2.5 becomes -2.
	return int(math.Floor(pct + 0.5))
}
