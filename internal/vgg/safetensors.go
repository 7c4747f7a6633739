package vgg

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// safetensors layout: 8-byte little-endian header length, JSON header
// mapping tensor names to {dtype, shape, data_offsets}, then the raw
// little-endian payload. Offsets are relative to the payload start.

type tensorInfo struct {
	DType       string    `json:"dtype"`
	Shape       []int     `json:"shape"`
	DataOffsets [2]uint64 `json:"data_offsets"`
}

type weightTensor struct {
	shape []int
	data  []float64
}

// loadTensors reads every F32 tensor in the file, keyed by name.
func loadTensors(path string) (map[string]weightTensor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weights: %w", err)
	}
	defer f.Close()

	var headerSize uint64
	if err := binary.Read(f, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("read header size: %w", err)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(f, headerBytes); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}

	payload, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	tensors := make(map[string]weightTensor, len(header))
	for name, raw := range header {
		if name == "__metadata__" {
			continue
		}
		var info tensorInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		if info.DType != "F32" {
			return nil, fmt.Errorf("tensor %s: unsupported dtype %s", name, info.DType)
		}

		count := 1
		for _, d := range info.Shape {
			count *= d
		}
		start, end := info.DataOffsets[0], info.DataOffsets[1]
		if end < start || end > uint64(len(payload)) || end-start != uint64(count)*4 {
			return nil, fmt.Errorf("tensor %s: offsets [%d,%d) inconsistent with shape %v",
				name, start, end, info.Shape)
		}

		data := make([]float64, count)
		for i := 0; i < count; i++ {
			off := start + uint64(i)*4
			bits := binary.LittleEndian.Uint32(payload[off : off+4])
			data[i] = float64(math.Float32frombits(bits))
		}
		tensors[name] = weightTensor{shape: info.Shape, data: data}
	}
	return tensors, nil
}
