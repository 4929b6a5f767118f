package routes

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"html"
	"html/template"
	"io"
	"io/fs"
	"strings"
	"sync"
)

// assetSRI computes and caches subresource integrity hashes for files of
// the embedded assets directory.
type assetSRI struct {
	fsys  fs.FS
	cache sync.Map // map[string]string
}

func newAssetSRI(fsys fs.FS) *assetSRI {
	return &assetSRI{fsys: fsys}
}

// integrity returns the sha384 SRI of an assets/ path. Other paths have none.
func (a *assetSRI) integrity(src string) (string, error) {
	rel := strings.TrimPrefix(src, "/")
	if !strings.HasPrefix(rel, "assets/") {
		return "", nil
	}
	if v, ok := a.cache.Load(rel); ok {
		return v.(string), nil
	}

	f, err := a.fsys.Open(rel)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha512.New384()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	sri := "sha384-" + base64.StdEncoding.EncodeToString(h.Sum(nil))
	a.cache.Store(rel, sri)
	return sri, nil
}

// ScriptTag returns a script tag for src, resolved against base. Local
// assets get an integrity attribute and crossorigin="anonymous".
func (a *assetSRI) ScriptTag(base, src string) template.HTML {
	full := src
	if !strings.Contains(src, "://") {
		full = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(src, "/")
	}

	attr := ""
	if sri, err := a.integrity(src); err == nil && sri != "" {
		attr = fmt.Sprintf(` integrity="%s" crossorigin="anonymous"`, html.EscapeString(sri))
	}
	return template.HTML(fmt.Sprintf(`<script src="%s"%s></script>`, html.EscapeString(full), attr))
}
