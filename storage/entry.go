package storage

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Entry frame layout:
//
//	[format-version: 1 byte][payload-length: 8 bytes big-endian]
//	[payload bytes][checksum: 8 bytes big-endian]
//
// The checksum is XXH64 over the payload bytes as stored. FormatGzip frames
// carry a gzip-compressed payload; the length and checksum cover the
// compressed bytes, so validation never requires decompression of a frame
// that will be rejected anyway.
const (
	// FormatRaw marks an uncompressed payload.
	FormatRaw byte = 1

	// FormatGzip marks a gzip-compressed payload.
	FormatGzip byte = 2

	headerSize   = 1 + 8
	checksumSize = 8
)

// MaxPayloadSize caps the decompressed payload size (1 GB). A frame whose
// payload inflates beyond this is treated as corrupt rather than allowed to
// exhaust memory.
const MaxPayloadSize = 1 << 30

// EncodeEntry frames a payload for storage. With compress set the payload is
// gzip-compressed first; compression is skipped when it would not shrink the
// payload, so small or incompressible values stay in raw frames.
func EncodeEntry(payload []byte, compress bool) ([]byte, error) {
	format := FormatRaw
	body := payload
	if compress {
		compressed, err := gzipCompress(payload)
		if err != nil {
			return nil, fmt.Errorf("storage: compress payload: %w", err)
		}
		if len(compressed) < len(payload) {
			format = FormatGzip
			body = compressed
		}
	}

	frame := make([]byte, headerSize+len(body)+checksumSize)
	frame[0] = format
	binary.BigEndian.PutUint64(frame[1:headerSize], uint64(len(body)))
	copy(frame[headerSize:], body)
	binary.BigEndian.PutUint64(frame[headerSize+len(body):], xxhash.Sum64(body))
	return frame, nil
}

// DecodeEntry validates a stored frame and returns its payload. Any
// malformation — short frame, unrecognized format version, length mismatch,
// checksum mismatch, or undecompressable body — yields ErrCorruptEntry.
// Unknown format versions are rejected, never guessed at.
func DecodeEntry(frame []byte) ([]byte, error) {
	if len(frame) < headerSize+checksumSize {
		return nil, fmt.Errorf("%w: frame truncated to %d bytes", ErrCorruptEntry, len(frame))
	}

	format := frame[0]
	if format != FormatRaw && format != FormatGzip {
		return nil, fmt.Errorf("%w: unrecognized format version %d", ErrCorruptEntry, format)
	}

	length := binary.BigEndian.Uint64(frame[1:headerSize])
	if length != uint64(len(frame)-headerSize-checksumSize) {
		return nil, fmt.Errorf("%w: payload length %d does not match frame size %d",
			ErrCorruptEntry, length, len(frame))
	}

	body := frame[headerSize : headerSize+length]
	stored := binary.BigEndian.Uint64(frame[headerSize+length:])
	if actual := xxhash.Sum64(body); actual != stored {
		return nil, fmt.Errorf("%w: checksum mismatch (stored %016x, computed %016x)",
			ErrCorruptEntry, stored, actual)
	}

	if format == FormatGzip {
		payload, err := gzipDecompress(body)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress payload: %v", ErrCorruptEntry, err)
		}
		return payload, nil
	}

	// Copy so callers never alias the frame buffer.
	payload := make([]byte, length)
	copy(payload, body)
	return payload, nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	payload, err := io.ReadAll(io.LimitReader(r, MaxPayloadSize+1))
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("decompressed payload exceeds %d bytes", MaxPayloadSize)
	}
	return payload, nil
}
