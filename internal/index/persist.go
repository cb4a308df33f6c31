package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// Sidecar file names under the index base.
const (
	MetaFile = "meta.jsonl"
	VecsFile = "vecs.jsonl"
)

// MetaURL returns the document sidecar location.
func (x *HybridIndex) MetaURL() string {
	return url.Join(x.base, MetaFile)
}

// VecsURL returns the vector sidecar location.
func (x *HybridIndex) VecsURL() string {
	return url.Join(x.base, VecsFile)
}

// Persist overwrites both sidecars with the current contents. Both files are
// encoded before either is written.
func (x *HybridIndex) Persist(ctx context.Context) error {
	var meta, vecs bytes.Buffer
	me := json.NewEncoder(&meta)
	me.SetEscapeHTML(false)
	ve := json.NewEncoder(&vecs)
	for i, d := range x.docs {
		if d.Meta == nil {
			d.Meta = map[string]any{}
		}
		if err := me.Encode(d); err != nil {
			return fmt.Errorf("encode doc %q: %w", d.ID, err)
		}
		if err := ve.Encode(x.vecs[i]); err != nil {
			return fmt.Errorf("encode vector %q: %w", d.ID, err)
		}
	}

	if err := x.ensureLocalDir(); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	for _, side := range []struct {
		url  string
		data []byte
	}{
		{x.MetaURL(), meta.Bytes()},
		{x.VecsURL(), vecs.Bytes()},
	} {
		ok, err := x.fs.Exists(ctx, side.url)
		if err != nil {
			return fmt.Errorf("stat %s: %w", side.url, err)
		}
		if ok {
			if err := x.fs.Delete(ctx, side.url); err != nil {
				return fmt.Errorf("replace %s: %w", side.url, err)
			}
		}
		if err := x.fs.Upload(ctx, side.url, file.DefaultFileOsMode, bytes.NewReader(side.data)); err != nil {
			return fmt.Errorf("write %s: %w", side.url, err)
		}
	}
	x.logger.Info("index persisted", "base", x.base, "docs", len(x.docs))
	return nil
}

// Load replaces the contents with the persisted sidecars. If either sidecar
// is missing the index is left empty.
func (x *HybridIndex) Load(ctx context.Context) error {
	x.reset()

	metaURL, vecsURL := x.MetaURL(), x.VecsURL()
	for _, u := range []string{metaURL, vecsURL} {
		ok, err := x.fs.Exists(ctx, u)
		if err != nil {
			return fmt.Errorf("stat %s: %w", u, err)
		}
		if !ok {
			x.logger.Info("index sidecar missing, starting empty", "url", u)
			return nil
		}
	}

	metaData, err := x.fs.DownloadWithURL(ctx, metaURL)
	if err != nil {
		return fmt.Errorf("read %s: %w", metaURL, err)
	}
	vecsData, err := x.fs.DownloadWithURL(ctx, vecsURL)
	if err != nil {
		return fmt.Errorf("read %s: %w", vecsURL, err)
	}

	metaLines, vecsLines := splitLines(metaData), splitLines(vecsData)
	if len(metaLines) != len(vecsLines) {
		return fmt.Errorf("%w: %s has %d, %s has %d", ErrSidecarMismatch,
			MetaFile, len(metaLines), VecsFile, len(vecsLines))
	}

	docs := make([]Doc, len(metaLines))
	vecs := make([][]float64, len(vecsLines))
	for i := range metaLines {
		if err := json.Unmarshal(metaLines[i], &docs[i]); err != nil {
			return &MalformedLineError{URL: metaURL, Line: i, Err: err}
		}
		if err := json.Unmarshal(vecsLines[i], &vecs[i]); err != nil {
			return &MalformedLineError{URL: vecsURL, Line: i, Err: err}
		}
	}
	for i := range docs {
		x.append(docs[i], vecs[i])
	}
	x.logger.Info("index loaded", "base", x.base, "docs", len(docs))
	return nil
}

// ensureLocalDir creates the base directory when it is on the local
// filesystem. Remote stores have no directories to create.
func (x *HybridIndex) ensureLocalDir() error {
	switch url.Scheme(x.base, "") {
	case "":
		return os.MkdirAll(x.base, 0o755)
	case "file":
		return os.MkdirAll(url.Path(x.base), 0o755)
	}
	return nil
}

// splitLines splits newline-terminated data into lines. A final line
// without a terminator still counts.
func splitLines(data []byte) [][]byte {
	if len(data) == 0 {
		return nil
	}
	return bytes.Split(bytes.TrimSuffix(data, []byte("\n")), []byte("\n"))
}
