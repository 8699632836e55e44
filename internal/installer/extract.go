package installer

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// extractArchive is the built-in fallback used when no external extract
// tool is configured. Supports tar.gz and tar.lz4, the two formats game
// archives are published in.
func extractArchive(ctx context.Context, archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var decompressed io.Reader
	switch {
	case strings.HasSuffix(archivePath, ".tar.lz4"):
		decompressed = lz4.NewReader(f)
	case strings.HasSuffix(archivePath, ".tar.gz"), strings.HasSuffix(archivePath, ".tgz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		decompressed = gz
	default:
		return fmt.Errorf("unsupported archive format: %s", filepath.Base(archivePath))
	}

	tr := tar.NewReader(decompressed)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		if err := writeEntry(tr, header, destDir); err != nil {
			return err
		}
	}
}

func writeEntry(tr *tar.Reader, header *tar.Header, destDir string) error {
	// Path traversal guards: entries must stay inside destDir.
	cleanName := filepath.Clean(header.Name)
	if strings.HasPrefix(cleanName, "..") || strings.HasPrefix(cleanName, "/") {
		return fmt.Errorf("invalid path in archive: %s", header.Name)
	}
	target := filepath.Join(destDir, cleanName)
	if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return fmt.Errorf("path traversal detected: %s", header.Name)
	}

	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, os.FileMode(header.Mode)); err != nil {
			return fmt.Errorf("create dir %s: %w", cleanName, err)
		}

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create parent dir for %s: %w", cleanName, err)
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode))
		if err != nil {
			return fmt.Errorf("create file %s: %w", cleanName, err)
		}
		written, err := io.Copy(out, tr)
		if err != nil {
			out.Close()
			return fmt.Errorf("write file %s: %w", cleanName, err)
		}
		if header.Size > 0 && written != header.Size {
			out.Close()
			return fmt.Errorf("incomplete extraction of %s: wrote %d of %d bytes", cleanName, written, header.Size)
		}
		if err := out.Close(); err != nil {
			return fmt.Errorf("close file %s: %w", cleanName, err)
		}

	case tar.TypeSymlink:
		if filepath.IsAbs(header.Linkname) {
			return fmt.Errorf("absolute symlink not allowed: %s -> %s", cleanName, header.Linkname)
		}
		os.Remove(target)
		if err := os.Symlink(header.Linkname, target); err != nil {
			return fmt.Errorf("create symlink %s: %w", cleanName, err)
		}

	case tar.TypeLink:
		if err := os.Link(filepath.Join(destDir, header.Linkname), target); err != nil {
			return fmt.Errorf("create hard link %s: %w", cleanName, err)
		}

	default:
		// Device nodes and the like never appear in game archives.
	}
	return nil
}
