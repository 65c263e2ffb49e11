package fsops

import (
	"bufio"
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"

	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

var errLimitReached = errors.New("limit reached")

// Find walks a tree and reports files whose root-relative path matches
// a doublestar pattern (all files when the pattern is empty). Results
// are capped and the walk stops once the cap is hit.
func (o *Ops) Find(id uint64, p protocol.Params) (protocol.Result, error) {
	root, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}
	pattern := p.OptStr("pattern", "")
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern: %s", pattern)
	}
	limit := o.findLimit
	if l, ok := p.OptInt64("limit"); ok && l > 0 {
		limit = int(l)
	}

	var mu sync.Mutex
	matches := []string{}
	truncated := false

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, werr error) error {
		if werr != nil || d.IsDir() {
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return nil
		}
		if pattern != "" {
			if ok, _ := doublestar.Match(pattern, rel); !ok {
				return nil
			}
		}

		mu.Lock()
		defer mu.Unlock()
		if len(matches) >= limit {
			truncated = true
			return errLimitReached
		}
		matches = append(matches, rel)
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		return nil, err
	}

	sort.Strings(matches)
	return protocol.Result{
		"matches":   matches,
		"count":     len(matches),
		"truncated": truncated,
	}, nil
}

// Grep searches file contents under a root (or in a single file).
// Plain queries match as literal bytes; regex=true compiles the query.
// Binary files are sniffed and skipped, and each file reports at most
// limit matching lines.
func (o *Ops) Grep(id uint64, p protocol.Params) (protocol.Result, error) {
	root, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}
	query, err := p.Str("query")
	if err != nil {
		return nil, err
	}

	var matcher func([]byte) bool
	if p.OptBool("regex", false) {
		re, rerr := regexp.Compile(query)
		if rerr != nil {
			return nil, fmt.Errorf("invalid regex: %v", rerr)
		}
		matcher = re.Match
	} else {
		q := []byte(query)
		matcher = func(line []byte) bool { return bytes.Contains(line, q) }
	}

	extensions := make(map[string]bool)
	for _, ext := range p.OptStrSlice("ext") {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[ext] = true
	}

	limit := o.grepLimit
	if l, ok := p.OptInt64("limit"); ok && l > 0 {
		limit = int(l)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	files := []map[string]interface{}{}

	scan := func(path, rel string) {
		lines := grepFile(path, matcher, limit)
		if len(lines) == 0 {
			return
		}
		mu.Lock()
		files = append(files, map[string]interface{}{
			"path":    rel,
			"matches": lines,
			"count":   len(lines),
		})
		mu.Unlock()
	}

	if !info.IsDir() {
		scan(root, filepath.Base(root))
		return protocol.Result{"files": files, "count": len(files)}, nil
	}

	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, werr error) error {
		if werr != nil || d.IsDir() {
			return nil
		}
		if len(extensions) > 0 && !extensions[filepath.Ext(path)] {
			return nil
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			return nil
		}
		scan(path, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i]["path"].(string) < files[j]["path"].(string)
	})
	return protocol.Result{"files": files, "count": len(files)}, nil
}

// Hash streams a file through a digest. Defaults to sha256.
func (o *Ops) Hash(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}

	algo := p.OptStr("algo", "sha256")
	var h hash.Hash
	switch algo {
	case "sha256":
		h = sha256.New()
	case "sha1":
		h = sha1.New()
	case "md5":
		h = md5.New()
	default:
		return nil, fmt.Errorf("unsupported algo: %s", algo)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n, err := io.Copy(h, f)
	if err != nil {
		return nil, err
	}

	return protocol.Result{
		"algo": algo,
		"hex":  hex.EncodeToString(h.Sum(nil)),
		"size": n,
	}, nil
}

func grepFile(path string, matcher func([]byte) bool, limit int) []map[string]interface{} {
	if !isTextFile(path) {
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lines []map[string]interface{}
	lineNum := 1
	for scanner.Scan() {
		if matcher(scanner.Bytes()) {
			lines = append(lines, map[string]interface{}{
				"line": lineNum,
				"text": scanner.Text(),
			})
			if len(lines) >= limit {
				break
			}
		}
		lineNum++
	}
	return lines
}

func isTextFile(path string) bool {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
