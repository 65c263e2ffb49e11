package fsops

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Archive packs a tree (or single file) into dst. The format comes
// from the param or the dst extension: zip, tar, tar.gz, tar.zst.
// Peers pack once and pull the archive with read instead of fetching
// trees file by file.
func (o *Ops) Archive(id uint64, p protocol.Params) (protocol.Result, error) {
	src, err := o.resolvePath(p, "src")
	if err != nil {
		return nil, err
	}
	dst, err := o.resolvePath(p, "dst")
	if err != nil {
		return nil, err
	}

	format := p.OptStr("format", "")
	if format == "" {
		format = inferFormat(dst)
	}
	switch format {
	case "zip", "tar", "tar.gz", "tar.zst":
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	if _, err := os.Stat(src); err != nil {
		return nil, err
	}

	out, err := os.Create(dst)
	if err != nil {
		return nil, err
	}

	var files int
	var total int64
	if format == "zip" {
		files, total, err = writeZip(out, src)
	} else {
		files, total, err = writeTar(out, src, format)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return nil, err
	}

	return protocol.Result{"files": files, "bytes": total}, nil
}

// Unarchive unpacks an archive into dst, sniffing the format from the
// file content. Entries that would escape dst are skipped.
func (o *Ops) Unarchive(id uint64, p protocol.Params) (protocol.Result, error) {
	src, err := o.resolvePath(p, "src")
	if err != nil {
		return nil, err
	}
	dst, err := o.resolvePath(p, "dst")
	if err != nil {
		return nil, err
	}

	mt, err := mimetype.DetectFile(src)
	if err != nil {
		return nil, err
	}

	var files int
	switch {
	case mt.Is("application/zip"):
		files, err = extractZip(src, dst)
	case mt.Is("application/gzip"):
		files, err = extractCompressedTar(src, dst, "gzip")
	case mt.Is("application/zstd"):
		files, err = extractCompressedTar(src, dst, "zstd")
	case mt.Is("application/x-tar"):
		files, err = extractCompressedTar(src, dst, "")
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", mt.String())
	}
	if err != nil {
		return nil, err
	}

	return protocol.Result{"files": files}, nil
}

func inferFormat(name string) string {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return "zip"
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return "tar.zst"
	case strings.HasSuffix(name, ".tar"):
		return "tar"
	}
	return "tar.gz"
}

func writeZip(out *os.File, src string) (int, int64, error) {
	zw := zip.NewWriter(out)
	files := 0
	var total int64

	add := func(rel, path string) error {
		fw, err := zw.Create(rel)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		n, err := io.Copy(fw, f)
		if err != nil {
			return err
		}
		files++
		total += n
		return nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return 0, 0, err
	}
	if !info.IsDir() {
		if err := add(filepath.Base(src), src); err != nil {
			return files, total, err
		}
		return files, total, zw.Close()
	}

	// Archive writers are not safe for concurrent use; walk serially.
	conf := fastwalk.Config{Follow: false, NumWorkers: 1}
	err = fastwalk.Walk(&conf, src, func(path string, d os.DirEntry, werr error) error {
		if werr != nil || path == src {
			return nil
		}
		rel, rerr := filepath.Rel(src, path)
		if rerr != nil {
			return nil
		}
		if d.IsDir() {
			_, cerr := zw.Create(rel + "/")
			return cerr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return add(rel, path)
	})
	if err != nil {
		return files, total, err
	}
	return files, total, zw.Close()
}

func writeTar(out *os.File, src string, format string) (int, int64, error) {
	var tw *tar.Writer
	var closeCompressor func() error

	switch format {
	case "tar.gz":
		gz := gzip.NewWriter(out)
		closeCompressor = gz.Close
		tw = tar.NewWriter(gz)
	case "tar.zst":
		zw, err := zstd.NewWriter(out)
		if err != nil {
			return 0, 0, err
		}
		closeCompressor = zw.Close
		tw = tar.NewWriter(zw)
	default:
		closeCompressor = func() error { return nil }
		tw = tar.NewWriter(out)
	}

	files := 0
	var total int64

	addEntry := func(rel, path string, info os.FileInfo) error {
		link := ""
		if info.Mode()&os.ModeSymlink != 0 {
			l, lerr := os.Readlink(path)
			if lerr != nil {
				return nil
			}
			link = l
		}
		hdr, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return nil
		}
		hdr.Name = rel
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer f.Close()
		n, err := io.Copy(tw, f)
		if err != nil {
			return err
		}
		files++
		total += n
		return nil
	}

	walkErr := func() error {
		info, err := os.Stat(src)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return addEntry(filepath.Base(src), src, info)
		}

		// Serial walk: tar writers are not safe for concurrent use.
		conf := fastwalk.Config{Follow: false, NumWorkers: 1}
		return fastwalk.Walk(&conf, src, func(path string, d os.DirEntry, werr error) error {
			if werr != nil || path == src {
				return nil
			}
			rel, rerr := filepath.Rel(src, path)
			if rerr != nil {
				return nil
			}
			info, ierr := d.Info()
			if ierr != nil {
				return nil
			}
			return addEntry(rel, path, info)
		})
	}()

	if err := tw.Close(); walkErr == nil {
		walkErr = err
	}
	if err := closeCompressor(); walkErr == nil {
		walkErr = err
	}
	return files, total, walkErr
}

func extractZip(src, dst string) (int, error) {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	files := 0
	for _, f := range reader.File {
		destPath := filepath.Join(dst, f.Name)
		if !insideRoot(dst, destPath) {
			continue
		}

		if f.FileInfo().IsDir() {
			os.MkdirAll(destPath, 0o755)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			continue
		}

		perm := f.Mode().Perm()
		if perm == 0 {
			perm = 0o644
		}
		if err := writeEntry(destPath, perm, func(w io.Writer) error {
			rc, oerr := f.Open()
			if oerr != nil {
				return oerr
			}
			defer rc.Close()
			_, cerr := io.Copy(w, rc)
			return cerr
		}); err != nil {
			continue
		}
		files++
	}
	return files, nil
}

func extractCompressedTar(src, dst, compression string) (int, error) {
	f, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var r io.Reader = f
	switch compression {
	case "gzip":
		gz, gerr := gzip.NewReader(f)
		if gerr != nil {
			return 0, gerr
		}
		defer gz.Close()
		r = gz
	case "zstd":
		zr, zerr := zstd.NewReader(f)
		if zerr != nil {
			return 0, zerr
		}
		defer zr.Close()
		r = zr
	}

	tr := tar.NewReader(r)
	files := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return files, nil
		}
		if err != nil {
			return files, err
		}

		destPath := filepath.Join(dst, hdr.Name)
		if !insideRoot(dst, destPath) {
			continue
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			os.MkdirAll(destPath, hdr.FileInfo().Mode().Perm())
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
				continue
			}
			if err := writeEntry(destPath, hdr.FileInfo().Mode().Perm(), func(w io.Writer) error {
				_, cerr := io.Copy(w, tr)
				return cerr
			}); err != nil {
				continue
			}
			files++
		case tar.TypeSymlink:
			os.MkdirAll(filepath.Dir(destPath), 0o755)
			os.Symlink(hdr.Linkname, destPath)
		}
	}
}

func writeEntry(path string, perm os.FileMode, fill func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	ferr := fill(f)
	if cerr := f.Close(); ferr == nil {
		ferr = cerr
	}
	return ferr
}

// insideRoot guards against archive entries escaping the destination.
func insideRoot(root, target string) bool {
	return strings.HasPrefix(target, filepath.Clean(root)+string(os.PathSeparator))
}
