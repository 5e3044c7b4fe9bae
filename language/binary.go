package language

import "bytes"

// sniffSize is how much of a file is inspected for NUL bytes.
const sniffSize = 512

// IsBinaryContent reports whether data looks binary: a NUL byte in the
// first 512 bytes.
func IsBinaryContent(data []byte) bool {
	if len(data) > sniffSize {
		data = data[:sniffSize]
	}
	return bytes.IndexByte(data, 0) >= 0
}
