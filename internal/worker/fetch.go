package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"gocloud.dev/blob"
)

/*
CopyBlobToDir copies the object at key in bucket into dir, naming the new
file after the base name of key, and returns its path. Keeping the name means
single-file results are reported under it and archive formats can be
identified by extension.
*/
func CopyBlobToDir(ctx context.Context, bucket *blob.Bucket, key, dir string) (string, error) {
	if bucket == nil {
		return "", errors.New("input bucket not set")
	}

	name := path.Base(key)
	if name == "." || name == "/" || name == ".." {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return "", err
	}
	defer r.Close()

	localPath := filepath.Join(dir, name)
	f, err := os.Create(localPath)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", err
	}

	return localPath, nil
}
