package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	api "github.com/ossf/byte-analysis/pkg/api/bytedist"
)

type ResultStore struct {
	bucket        string
	basePath      string
	constructPath bool
}

type (
	Option interface{ set(*ResultStore) }
	option func(*ResultStore) // option implements Option.
)

func (o option) set(sb *ResultStore) { o(sb) }

// ConstructPath will cause Save() to append the cleaned source name
// to the base path.
func ConstructPath() Option {
	return option(func(rs *ResultStore) { rs.constructPath = true })
}

// BasePath sets the base path used while saving files to storage.
func BasePath(base string) Option {
	return option(func(rs *ResultStore) { rs.basePath = base })
}

// New returns a ResultStore for the bucket URL, e.g. file:///tmp/results,
// gs://my-bucket or s3://my-bucket. The bucket is opened on each save.
func New(bucket string, options ...Option) *ResultStore {
	rs := &ResultStore{
		bucket: bucket,
	}
	for _, o := range options {
		o.set(rs)
	}
	return rs
}

func (rs *ResultStore) String() string {
	s := rs.bucket + "/" + rs.basePath
	if rs.constructPath {
		s += "+"
	}
	return s
}

func (rs *ResultStore) openBucket(ctx context.Context) (*blob.Bucket, error) {
	return blob.OpenBucket(ctx, rs.bucket)
}

// sourcePath turns a source name into a relative slash-separated path,
// dropping any URL scheme, leading slashes and parent references.
func sourcePath(source string) string {
	if _, rest, ok := strings.Cut(source, "://"); ok {
		source = rest
	}
	var parts []string
	for _, part := range strings.Split(path.Clean("/"+source), "/") {
		if part != "" && part != "." && part != ".." {
			parts = append(parts, part)
		}
	}
	return path.Join(parts...)
}

func (rs *ResultStore) generatePath(source string) string {
	p := rs.basePath
	if rs.constructPath {
		p = path.Join(p, sourcePath(source))
	}
	return p
}

// SaveWithFilename saves record to the bucket with the given filename
func (rs *ResultStore) SaveWithFilename(ctx context.Context, source, filename string, record *api.Record) error {
	if filename == "" {
		return errors.New("filename cannot be empty")
	}

	b, err := json.Marshal(record)
	if err != nil {
		return err
	}

	bkt, err := rs.openBucket(ctx)
	if err != nil {
		return err
	}
	defer bkt.Close()

	uploadPath := path.Join(rs.generatePath(source), filename)
	slog.InfoContext(ctx, "Uploading results",
		"bucket", rs.bucket,
		"path", uploadPath)

	w, err := bkt.NewWriter(ctx, uploadPath, &blob.WriterOptions{ContentType: "application/json"})
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		w.Close()
		return fmt.Errorf("writing %s: %w", uploadPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", uploadPath, err)
	}

	return nil
}

// MakeFilename returns the default filename to use for saving analysis
// results for source, using an optional label.
// If the source has a base name, the default filename is
// "<label>-<base>.json" if label is nonempty, or "<base>.json" otherwise.
// If it does not, the default filename is "<label>.json" if label is
// nonempty, or "results.json" if not.
func MakeFilename(source, label string) string {
	prefix := "results"
	base := path.Base(sourcePath(source))
	if base == "." {
		base = ""
	}

	if base != "" && label != "" {
		prefix = label + "-" + base
	} else if base != "" {
		prefix = base
	} else if label != "" {
		prefix = label
	}
	return prefix + ".json"
}

// Save saves record with the default filename for its source.
func (rs *ResultStore) Save(ctx context.Context, record *api.Record) error {
	filename := MakeFilename(record.Source, "")
	return rs.SaveWithFilename(ctx, record.Source, filename, record)
}
