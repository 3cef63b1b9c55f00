// Package staticfile serves an Endpoint's upstream as a filesystem root
// when the Route Engine emits ServeFile (spec §4.A step 6). It is grounded
// on the route_file behavior of the original proxy: look the requested
// path up under the endpoint's directory, and on a miss retry once with
// try_file as the URI before giving up.
package staticfile

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoTryFile is returned when the primary lookup misses and the route
// has no try_file fallback configured.
var ErrNoTryFile = errors.New("staticfile: file not found and no try_file configured")

// Serve resolves requestPath against root and writes the file to w. On a
// miss, if tryFile is non-empty, it retries once against tryFile (the SPA
// fallback case — e.g. serving index.html for unknown client routes).
// Returns ErrNoTryFile when the primary lookup misses and there is no
// fallback to try.
func Serve(w http.ResponseWriter, r *http.Request, root, requestPath, tryFile string) error {
	if ok, err := serveOne(w, r, root, requestPath); ok {
		return err
	}
	if tryFile == "" {
		return ErrNoTryFile
	}
	_, err := serveOne(w, r, root, tryFile)
	return err
}

// serveOne attempts to serve requestPath under root. It reports ok=true
// when the file existed (success or a non-404 failure while serving it);
// ok=false signals a clean miss the caller may retry.
func serveOne(w http.ResponseWriter, r *http.Request, root, requestPath string) (ok bool, err error) {
	clean := filepath.Join(root, filepath.Clean("/"+strings.TrimPrefix(requestPath, "/")))
	info, statErr := os.Stat(clean)
	if statErr != nil || info.IsDir() {
		return false, nil
	}
	http.ServeFile(w, r, clean)
	return true, nil
}
