package middlewares

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/dmitrymomot/isso/internal"
)

// DefaultStaticPrefixes are the asset directories the embed page loads from.
var DefaultStaticPrefixes = []string{"/js/", "/css/"}

// Static serves files below the given prefixes straight from root, before
// the request reaches the dispatcher. Directory listings are never served;
// other paths pass through.
func Static(root fs.FS, prefixes ...string) internal.Stage {
	if len(prefixes) == 0 {
		prefixes = DefaultStaticPrefixes
	}
	files := http.FileServerFS(filesOnly{root})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			for _, p := range prefixes {
				if strings.HasPrefix(r.URL.Path, p) && len(r.URL.Path) > len(p) {
					files.ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// filesOnly hides directories so the file server cannot list them.
type filesOnly struct {
	fs.FS
}

func (f filesOnly) Open(name string) (fs.File, error) {
	file, err := f.FS.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return file, nil
}
