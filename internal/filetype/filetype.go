// Package filetype guesses the type of a buffer from the magic number found
// in its leading bytes. It does not parse the content beyond the signature.
package filetype

import "bytes"

// Unknown is returned by Detect when no signature matches.
const Unknown = "unknown"

// Signature identifies a file type by a byte sequence at a fixed offset.
type Signature struct {
	Name   string
	Magic  []byte
	Offset int
}

// Matches reports whether data carries this signature.
func (s Signature) Matches(data []byte) bool {
	end := s.Offset + len(s.Magic)
	return len(data) >= end && bytes.Equal(data[s.Offset:end], s.Magic)
}

// Longer and more specific signatures come before shorter ones that share a
// prefix (e.g. MP3 frame sync vs. JPEG).
var signatures = []Signature{
	// executables
	{Name: "ELF", Magic: []byte{0x7f, 'E', 'L', 'F'}},
	{Name: "MACH-O", Magic: []byte{0xfe, 0xed, 0xfa, 0xce}},
	{Name: "MACH-O64", Magic: []byte{0xfe, 0xed, 0xfa, 0xcf}},
	{Name: "CLASS", Magic: []byte{0xca, 0xfe, 0xba, 0xbe}},
	{Name: "DEX", Magic: []byte{'d', 'e', 'x', '\n'}},
	{Name: "WASM", Magic: []byte{0x00, 'a', 's', 'm'}},
	{Name: "PE", Magic: []byte{'M', 'Z'}},

	// archives and compressed streams
	{Name: "ZIP", Magic: []byte{'P', 'K', 0x03, 0x04}},
	{Name: "GZIP", Magic: []byte{0x1f, 0x8b}},
	{Name: "BZIP2", Magic: []byte{'B', 'Z', 'h'}},
	{Name: "XZ", Magic: []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{Name: "ZSTD", Magic: []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{Name: "7Z", Magic: []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}},
	{Name: "RAR", Magic: []byte{'R', 'a', 'r', '!', 0x1a, 0x07}},
	{Name: "TAR", Magic: []byte{'u', 's', 't', 'a', 'r'}, Offset: 257},

	// documents
	{Name: "PDF", Magic: []byte{'%', 'P', 'D', 'F'}},

	// images
	{Name: "PNG", Magic: []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}},
	{Name: "JPEG", Magic: []byte{0xff, 0xd8, 0xff}},
	{Name: "GIF", Magic: []byte{'G', 'I', 'F', '8'}},
	{Name: "WEBP", Magic: []byte{'W', 'E', 'B', 'P'}, Offset: 8},
	{Name: "BMP", Magic: []byte{'B', 'M'}},

	// media
	{Name: "MP3_ID3", Magic: []byte{'I', 'D', '3'}},
	{Name: "MP3", Magic: []byte{0xff, 0xfb}},
	{Name: "OGG", Magic: []byte{'O', 'g', 'g', 'S'}},
	{Name: "FLAC", Magic: []byte{'f', 'L', 'a', 'C'}},
	{Name: "RIFF", Magic: []byte{'R', 'I', 'F', 'F'}},

	// databases
	{Name: "SQLITE", Magic: []byte("SQLite format 3\x00")},

	// scripts
	{Name: "SCRIPT", Magic: []byte{'#', '!'}},
}

// Detect returns the name of the first signature that matches data,
// or Unknown.
func Detect(data []byte) string {
	for _, sig := range signatures {
		if sig.Matches(data) {
			return sig.Name
		}
	}
	return Unknown
}

// PrefixLen is the number of leading bytes Detect may look at.
// Callers reading from a stream need at most this many bytes.
func PrefixLen() int {
	n := 0
	for _, sig := range signatures {
		if end := sig.Offset + len(sig.Magic); end > n {
			n = end
		}
	}
	return n
}

// Names lists the names of all known signatures in match order.
func Names() []string {
	names := make([]string, len(signatures))
	for i, sig := range signatures {
		names[i] = sig.Name
	}
	return names
}
