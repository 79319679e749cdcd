package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/menudash/menudash/internal/storage"
)

// handleExportDownload streams a previously archived export back out of
// the object store. The key is the object key announced in the
// X-Archive-Key header of the original download.
func handleExportDownload(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	key, ok := exportKey(deps, w, r)
	if !ok {
		return
	}

	info, err := deps.Archive.Stat(r.Context(), key)
	if err != nil {
		writeArchiveError(w, r, err)
		return
	}
	body, err := deps.Archive.Get(r.Context(), key)
	if err != nil {
		writeArchiveError(w, r, err)
		return
	}
	defer func() { _ = body.Close() }()

	format := strings.TrimPrefix(path.Ext(key), ".")
	w.Header().Set("Content-Type", storage.ContentTypeFor(format))
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

// handleExportDelete removes an archived export. Deleting an already
// absent object succeeds.
func handleExportDelete(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	key, ok := exportKey(deps, w, r)
	if !ok {
		return
	}
	if err := deps.Archive.Delete(r.Context(), key); err != nil {
		writeArchiveError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func exportKey(deps Dependencies, w http.ResponseWriter, r *http.Request) (string, bool) {
	if deps.Archive == nil {
		writeError(r.Context(), w, http.StatusNotFound, "ARCHIVE_DISABLED", "export archival is not enabled", false, nil)
		return "", false
	}
	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_REQUEST", "export key is required", false, nil)
		return "", false
	}
	return key, true
}

func writeArchiveError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrObjectNotFound) {
		writeError(r.Context(), w, http.StatusNotFound, "EXPORT_NOT_FOUND", "no archived export under that key", false, nil)
		return
	}
	writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_FAILED", err.Error(), true, nil)
}
