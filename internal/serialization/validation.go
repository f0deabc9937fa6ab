package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// span is the byte range of one tensor inside the data section.
type span struct {
	name       string
	begin, end int64
}

// validateSpans checks for overlapping tensor ranges and out-of-bounds access.
func validateSpans(spans []span, dataSize int64) error {
	if len(spans) > MaxTensorCount {
		return &ValidationError{
			Err:     ErrTooManyTensors,
			Details: fmt.Sprintf("got %d, max %d", len(spans), MaxTensorCount),
		}
	}

	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].begin < sorted[j].begin
	})

	for i, s := range sorted {
		if s.begin < 0 || s.end < s.begin || s.end > dataSize {
			return &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  s.name,
				Details: fmt.Sprintf("range [%d-%d], data_size %d", s.begin, s.end, dataSize),
			}
		}
		if i < len(sorted)-1 {
			next := sorted[i+1]
			if s.end > next.begin {
				return &ValidationError{
					Err:     ErrOffsetOverlap,
					Tensor:  s.name,
					Tensor2: next.name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						s.begin, s.end, next.begin, next.end),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName checks tensor names for path traversal and malicious patterns.
func ValidateTensorName(name string) error {
	invalid := func(details string) error {
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: details}
	}
	switch {
	case name == "":
		return invalid("empty name")
	case len(name) > MaxTensorNameLen:
		return invalid(fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen))
	case name == metadataKey:
		return invalid("reserved name")
	case strings.Contains(name, ".."):
		return invalid("contains '..' (path traversal attempt)")
	case strings.ContainsAny(name, "/\\"):
		return invalid("contains path separator (/ or \\)")
	case strings.Contains(name, "\x00"):
		return invalid("contains null byte")
	}
	return nil
}
