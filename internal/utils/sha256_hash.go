package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// SHA256Hash returns the hex-encoded SHA256 digest of content.
func SHA256Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// BoundedData is the result of ReadBounded.
type BoundedData struct {
	// Data holds at most limit bytes from the start of the stream.
	Data []byte

	// Size is the total number of bytes read from the stream.
	Size int64

	// SHA256 is the hex-encoded digest of the whole stream, not just Data.
	SHA256 string
}

// Truncated reports whether the stream was longer than the bytes kept in Data.
func (d BoundedData) Truncated() bool {
	return d.Size > int64(len(d.Data))
}

/*
ReadBounded reads r to the end, keeping only the first limit bytes in memory
while hashing and counting the whole stream. A limit of zero or less keeps
everything.
*/
func ReadBounded(r io.Reader, limit int64) (BoundedData, error) {
	h := sha256.New()
	tee := io.TeeReader(r, h)

	var data []byte
	var err error
	if limit > 0 {
		data, err = io.ReadAll(io.LimitReader(tee, limit))
	} else {
		data, err = io.ReadAll(tee)
	}
	if err != nil {
		return BoundedData{}, err
	}

	rest, err := io.Copy(io.Discard, tee)
	if err != nil {
		return BoundedData{}, err
	}

	return BoundedData{
		Data:   data,
		Size:   int64(len(data)) + rest,
		SHA256: hexDigest(h),
	}, nil
}

func hexDigest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
