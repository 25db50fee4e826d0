// LibreShare - LibreLinkUp to Dexcom Share Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libreshare

package libre

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// maxBodyBytes bounds both the wire body and its decompressed form.
const maxBodyBytes = 8 << 20

var gzipMagic = []byte{0x1f, 0x8b}

// decodeBody undoes the Content-Encoding of a response body. Codings are
// removed in reverse order of application. When no encoding is declared the
// body is still sniffed for gzip magic bytes.
func decodeBody(contentEncoding string, raw []byte) ([]byte, error) {
	enc := strings.ToLower(strings.TrimSpace(contentEncoding))
	if enc == "" || enc == "identity" {
		if !bytes.HasPrefix(raw, gzipMagic) {
			return raw, nil
		}
		enc = "gzip"
	}

	codings := strings.Split(enc, ",")
	body := raw
	for i := len(codings) - 1; i >= 0; i-- {
		var err error
		body, err = decompress(strings.TrimSpace(codings[i]), body)
		if err != nil {
			return nil, err
		}
	}
	return body, nil
}

func decompress(coding string, data []byte) ([]byte, error) {
	switch coding {
	case "", "identity":
		return data, nil

	case "gzip", "x-gzip":
		// Some intermediaries decompress but keep the header.
		if !bytes.HasPrefix(data, gzipMagic) {
			return data, nil
		}
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer zr.Close()
		return readLimited(zr, "gzip")

	case "deflate":
		// RFC 9110 deflate is zlib-wrapped, but raw deflate is common in practice.
		if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
			defer zr.Close()
			return readLimited(zr, "deflate")
		}
		fr := flate.NewReader(bytes.NewReader(data))
		defer fr.Close()
		return readLimited(fr, "deflate")

	case "br":
		return readLimited(brotli.NewReader(bytes.NewReader(data)), "brotli")

	default:
		return nil, fmt.Errorf("unsupported content encoding %q", coding)
	}
}

func readLimited(r io.Reader, codec string) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", codec, err)
	}
	return out, nil
}
