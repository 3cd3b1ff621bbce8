// Package archive walks the members of archive files (zip, tar and
// compressed tar variants) so that each member can be analysed without first
// extracting the archive to disk.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/mholt/archiver/v4"
)

var (
	ErrNotArchive  = errors.New("not a recognised archive")
	ErrPathEscapes = errors.New("archive path escapes root")
)

// MemberFunc is called for each regular file in an archive. r is only valid
// for the duration of the call.
type MemberFunc func(ctx context.Context, name string, r io.Reader) error

func identify(filename string, f *os.File) (archiver.Extractor, error) {
	format, _, err := archiver.Identify(filename, f)
	if errors.Is(err, archiver.ErrNoMatch) {
		return nil, fmt.Errorf("%w: %s", ErrNotArchive, filename)
	} else if err != nil {
		return nil, err
	}
	extractor, ok := format.(archiver.Extractor)
	if !ok {
		// e.g. a single compressed stream such as a plain .gz file
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotArchive, filename, format.Name())
	}
	// zip extraction needs random access, so hand the extractor the file
	// itself rather than the buffered stream used for identification
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return extractor, nil
}

// IsArchive reports whether the file at archivePath can be walked by Walk.
func IsArchive(archivePath string) (bool, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = identify(archivePath, f)
	if errors.Is(err, ErrNotArchive) {
		return false, nil
	}
	return err == nil, err
}

// memberName cleans a path found inside an archive and rejects names that
// would resolve outside the archive root (see the "zip slip" vulnerability).
func memberName(nameInArchive string) (string, error) {
	name := path.Clean(strings.ReplaceAll(nameInArchive, `\`, "/"))
	if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, nameInArchive)
	}
	return name, nil
}

/*
Walk calls fn for every regular file in the archive at archivePath, in archive
order. Directories, symlinks and other special entries are skipped.

If the file is not an archive, an error wrapping ErrNotArchive is returned.
If a member name escapes the archive root, walking stops with an error
wrapping ErrPathEscapes. Errors returned by fn also stop the walk. Members
that cannot be opened are logged and skipped.
*/
func Walk(ctx context.Context, archivePath string, fn MemberFunc) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	extractor, err := identify(archivePath, f)
	if err != nil {
		return err
	}

	return extractor.Extract(ctx, f, nil, func(ctx context.Context, member archiver.File) error {
		if member.IsDir() || !member.Mode().IsRegular() {
			return nil
		}
		name, err := memberName(member.NameInArchive)
		if err != nil {
			return err
		}

		reader, err := member.Open()
		if err != nil {
			slog.WarnContext(ctx, "skipping archive member", "filename", name, "error", err)
			return nil
		}
		defer reader.Close()

		return fn(ctx, name, reader)
	})
}
