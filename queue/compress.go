package queue

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

// compressedPrefix tags messages that were gzip-and-base64 encoded on
// enqueue. Dequeue must detect the tag rather than assume universal
// compression: messages below the threshold are stored verbatim.
const compressedPrefix = "__compressed__:"

// compressMessage gzips and base64-encodes msg, returning the tagged form.
func compressMessage(msg string) (string, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(msg)); err != nil {
		return "", fmt.Errorf("compress failed: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress failed: %w", err)
	}
	return compressedPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decompressMessage reverses compressMessage. Untagged messages pass through
// unchanged. Corrupt tagged messages return an error along with the original
// input so the caller can decide to deliver it raw.
func decompressMessage(msg string) (string, error) {
	if !strings.HasPrefix(msg, compressedPrefix) {
		return msg, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(msg, compressedPrefix))
	if err != nil {
		return msg, fmt.Errorf("decompress failed: %w", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return msg, fmt.Errorf("decompress failed: %w", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return msg, fmt.Errorf("decompress failed: %w", err)
	}
	return string(out), nil
}
