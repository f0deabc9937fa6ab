package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	metadataKey = "__metadata__"
	dtypeF64    = "F64"
	f64Size     = 8
)

// SafeTensorHeader represents a tensor in the SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Write writes tensors to w in SafeTensors format.
//
// Tensors are written in alphabetical order by name. The checksum of the
// data section is added to a copy of metadata under ChecksumKey.
func Write(w io.Writer, tensors map[string]*mat.Dense, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name, m := range tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		if m == nil || m.IsEmpty() {
			return fmt.Errorf("%w: tensor %q is empty", ErrInvalidHeader, name)
		}
		names = append(names, name)
	}
	if len(names) > MaxTensorCount {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyTensors, len(names), MaxTensorCount)
	}
	sort.Strings(names)

	header := make(map[string]any, len(names)+1)
	var data bytes.Buffer
	for _, name := range names {
		m := tensors[name]
		r, c := m.Dims()
		begin := int64(data.Len())

		// Row-major F64 little-endian.
		buf := make([]byte, f64Size)
		for i := range r {
			for j := range c {
				binary.LittleEndian.PutUint64(buf, math.Float64bits(m.At(i, j)))
				data.Write(buf)
			}
		}

		header[name] = SafeTensorHeader{
			DType:       dtypeF64,
			Shape:       []int64{int64(r), int64(c)},
			DataOffsets: [2]int64{begin, int64(data.Len())},
		}
	}

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	meta[ChecksumKey] = ComputeChecksum(data.Bytes())
	header[metadataKey] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	// Write header size (8 bytes, little-endian uint64)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// Read reads a SafeTensors stream written with F64 tensors of rank 1 or 2.
// Rank-1 tensors are returned as single-column matrices.
func Read(r io.Reader) (map[string]*mat.Dense, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read header size: %v", ErrInvalidHeader, err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes, max %d", ErrHeaderTooLarge, headerSize, MaxHeaderSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read header: %v", ErrInvalidHeader, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	var metadata map[string]string
	if m, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(m, &metadata); err != nil {
			return nil, nil, fmt.Errorf("%w: metadata: %v", ErrInvalidHeader, err)
		}
		delete(raw, metadataKey)
	}

	headers := make(map[string]SafeTensorHeader, len(raw))
	spans := make([]span, 0, len(raw))
	for name, msg := range raw {
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, err
		}
		var h SafeTensorHeader
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, nil, fmt.Errorf("%w: tensor %q: %v", ErrInvalidHeader, name, err)
		}
		if h.DType != dtypeF64 {
			return nil, nil, fmt.Errorf("%w: tensor %q has dtype %s", ErrUnsupportedDType, name, h.DType)
		}
		n, err := elements(h.Shape)
		if err != nil {
			return nil, nil, fmt.Errorf("tensor %q: %w", name, err)
		}
		if h.DataOffsets[1]-h.DataOffsets[0] != n*f64Size {
			return nil, nil, fmt.Errorf("%w: tensor %q: %d bytes for %d elements",
				ErrInvalidHeader, name, h.DataOffsets[1]-h.DataOffsets[0], n)
		}
		headers[name] = h
		spans = append(spans, span{name: name, begin: h.DataOffsets[0], end: h.DataOffsets[1]})
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if err := validateSpans(spans, int64(len(data))); err != nil {
		return nil, nil, err
	}
	if sum, ok := metadata[ChecksumKey]; ok {
		if err := ValidateChecksum(data, sum); err != nil {
			return nil, nil, err
		}
	}

	tensors := make(map[string]*mat.Dense, len(headers))
	for name, h := range headers {
		rows, cols := int(h.Shape[0]), 1
		if len(h.Shape) == 2 {
			cols = int(h.Shape[1])
		}
		chunk := data[h.DataOffsets[0]:h.DataOffsets[1]]
		values := make([]float64, rows*cols)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(chunk[i*f64Size:]))
		}
		tensors[name] = mat.NewDense(rows, cols, values)
	}
	return tensors, metadata, nil
}

// maxElements keeps the byte size of a tensor representable as int64.
const maxElements = math.MaxInt64 / f64Size

// elements returns the number of elements of a rank-1 or rank-2 shape.
func elements(shape []int64) (int64, error) {
	if len(shape) != 1 && len(shape) != 2 {
		return 0, fmt.Errorf("%w: rank %d, want 1 or 2", ErrInvalidHeader, len(shape))
	}
	n := int64(1)
	for _, d := range shape {
		if d <= 0 || d > math.MaxInt32 {
			return 0, fmt.Errorf("%w: dimension %d", ErrInvalidHeader, d)
		}
		if n > maxElements/d {
			return 0, fmt.Errorf("%w: shape %v is too large", ErrInvalidHeader, shape)
		}
		n *= d
	}
	return n, nil
}

// SaveFile writes tensors to a SafeTensors file at path.
func SaveFile(path string, tensors map[string]*mat.Dense, metadata map[string]string) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Write(file, tensors, metadata); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// LoadFile reads a SafeTensors file written by SaveFile.
func LoadFile(path string) (map[string]*mat.Dense, map[string]string, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = file.Close() // Best effort close
	}()
	return Read(file)
}
