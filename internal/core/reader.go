package core

import "io"

// countingReader tracks the raw bytes an import consumed, before decoding.
type countingReader struct {
	reader    io.Reader
	bytesRead int64
}

func newCountingReader(r io.Reader) *countingReader {
	return &countingReader{reader: r}
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead += int64(n)
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (r *countingReader) BytesRead() int64 {
	return r.bytesRead
}
