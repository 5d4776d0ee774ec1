// Package cursor adapts the canonical Messages protocol to and from the
// length-prefixed binary backend: requests and streamed responses are
// exchanged as a sequence of frames (one flag byte, a 4-byte big-endian
// length, then the payload), optionally gzip-compressed, over an
// HTTP/2-preferred transport. No example in the retrieval pack implements
// this exact framing; it is written directly from the documented wire
// shape, in the same io.Reader/io.Writer style the rest of this module's
// streaming adapters use.
package cursor

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame flag values. 0x00 is an uncompressed JSON payload; 0x01-0x03 all
// mean the payload is gzip-compressed (the wire format uses distinct
// values for different compression contexts, but the decoder treats them
// identically).
const (
	FlagRaw   byte = 0x00
	FlagGzip1 byte = 0x01
	FlagGzip2 byte = 0x02
	FlagGzip3 byte = 0x03
)

func isGzipFlag(flag byte) bool {
	return flag == FlagGzip1 || flag == FlagGzip2 || flag == FlagGzip3
}

// EncodeFrame wraps payload into one flag+length-prefixed frame. If
// compress is true, payload is gzip-compressed and tagged with FlagGzip1.
func EncodeFrame(payload []byte, compress bool) ([]byte, error) {
	flag := FlagRaw
	body := payload
	if compress {
		compressed, err := gzipCompress(payload)
		if err != nil {
			return nil, err
		}
		flag = FlagGzip1
		body = compressed
	}
	out := make([]byte, 5+len(body))
	out[0] = flag
	binary.BigEndian.PutUint32(out[1:5], uint32(len(body)))
	copy(out[5:], body)
	return out, nil
}

// ReadFrame reads one frame from r, decompressing it if the flag byte
// indicates gzip. It returns io.EOF (unwrapped) when r is exhausted
// exactly at a frame boundary.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("cursor: short frame header: %w", err)
		}
		return nil, err
	}
	flag := header[0]
	length := binary.BigEndian.Uint32(header[1:5])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("cursor: short frame payload: %w", err)
	}
	if isGzipFlag(flag) {
		return gzipDecompress(payload)
	}
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
	return io.ReadAll(r)
}
