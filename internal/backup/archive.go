package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Directory name excluded from archives. Workspaces are scratch space and
// are not tracked in the repository either.
const workspaceDirName = "workspace"

// writeArchive tars srcDir into dst (gzip), prefixing every entry with
// prefix so the archive extracts into its own folder.
func writeArchive(ctx context.Context, dst, srcDir, prefix string) error {
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	walkErr := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if filepath.Clean(path) == filepath.Clean(srcDir) {
			return nil
		}
		if d.IsDir() {
			if d.Name() == workspaceDirName {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		name := prefix + "/" + filepath.ToSlash(rel)

		info, err := os.Lstat(path)
		if err != nil {
			return err
		}
		mode := info.Mode()

		switch {
		case mode&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			hdr := &tar.Header{
				Name:     name,
				Typeflag: tar.TypeSymlink,
				Linkname: target,
				Mode:     int64(mode.Perm()),
				ModTime:  info.ModTime(),
			}
			return tw.WriteHeader(hdr)
		case mode.IsRegular():
			hdr := &tar.Header{
				Name:    name,
				Mode:    int64(mode.Perm()),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			r, err := os.Open(path)
			if err != nil {
				return err
			}
			_, copyErr := io.Copy(tw, r)
			r.Close()
			return copyErr
		default:
			// Skip non-regular files.
			return nil
		}
	})

	if err := tw.Close(); walkErr == nil && err != nil {
		walkErr = err
	}
	if err := gw.Close(); walkErr == nil && err != nil {
		walkErr = err
	}
	if err := f.Close(); walkErr == nil && err != nil {
		walkErr = err
	}
	if walkErr != nil {
		return fmt.Errorf("archive %s: %w", srcDir, walkErr)
	}
	return nil
}
