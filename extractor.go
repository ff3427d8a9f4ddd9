package modpipe

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver/v3"
	"github.com/pkg/errors"
)

// headerSize is how many leading bytes of a file are read for signature
// detection. It covers the longest signature below.
const headerSize = 8

// Extractor unpacks one archive format.
type Extractor interface {
	// Format returns the short name of the format, e.g. "zip".
	Format() string
	// MatchSignature reports whether header starts like this format.
	MatchSignature(header []byte) bool
	// MatchExtension reports whether the lower-cased ext belongs to this format.
	MatchExtension(ext string) bool
	// Extract unpacks the archive at src into the directory dst.
	Extract(src, dst string) error
}

type archiveFormat struct {
	name       string
	signatures [][]byte
	extensions []string
	unarchive  func(src, dst string) error
}

func (f archiveFormat) Format() string {
	return f.name
}

func (f archiveFormat) MatchSignature(header []byte) bool {
	for _, sig := range f.signatures {
		if bytes.HasPrefix(header, sig) {
			return true
		}
	}
	return false
}

func (f archiveFormat) MatchExtension(ext string) bool {
	for _, e := range f.extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (f archiveFormat) Extract(src, dst string) error {
	return f.unarchive(src, dst)
}

// ZipExtractor unpacks ZIP archives.
var ZipExtractor Extractor = archiveFormat{
	name: "zip",
	signatures: [][]byte{
		[]byte("PK\x03\x04"),
		[]byte("PK\x05\x06"), // empty archive
		[]byte("PK\x07\x08"), // spanned archive
	},
	extensions: []string{".zip"},
	unarchive: func(src, dst string) error {
		z := archiver.NewZip()
		z.OverwriteExisting = false
		z.ImplicitTopLevelFolder = false
		return z.Unarchive(src, dst)
	},
}

// RarExtractor unpacks RAR 4 and RAR 5 archives.
var RarExtractor Extractor = archiveFormat{
	name: "rar",
	signatures: [][]byte{
		[]byte("Rar!\x1a\x07\x00"),
		[]byte("Rar!\x1a\x07\x01\x00"),
	},
	extensions: []string{".rar"},
	unarchive: func(src, dst string) error {
		r := archiver.NewRar()
		r.OverwriteExisting = false
		r.ImplicitTopLevelFolder = false
		return r.Unarchive(src, dst)
	},
}

// DefaultExtractors is the set of formats the unpacker understands.
var DefaultExtractors = []Extractor{ZipExtractor, RarExtractor}

// DetectExtractor picks the extractor for the file at path. Signatures are
// checked across every extractor before falling back to file extensions.
// It returns ErrUnsupportedFormat when nothing matches.
func DetectExtractor(path string, extractors []Extractor) (Extractor, error) {
	header, err := readHeader(path)
	if err != nil {
		return nil, err
	}

	for _, ext := range extractors {
		if ext.MatchSignature(header) {
			return ext, nil
		}
	}

	fileExt := strings.ToLower(filepath.Ext(path))
	for _, ext := range extractors {
		if ext.MatchExtension(fileExt) {
			return ext, nil
		}
	}

	return nil, errors.Wrapf(ErrUnsupportedFormat, "%s", filepath.Base(path))
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}

	return header[:n], nil
}
