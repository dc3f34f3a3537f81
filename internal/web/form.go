package web

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/etl/internal/core"
)

// multipartMemory is how much of a multipart body is kept in memory before
// parts spill to temporary files.
const multipartMemory = 8 << 20

// requestForm exposes a parsed request to the import controller.
type requestForm struct {
	r *http.Request
}

// parseForm reads the request body, bounded by maxBytes, into r.Form and
// r.MultipartForm. URL-encoded posts are accepted and simply carry no file.
func parseForm(w http.ResponseWriter, r *http.Request, maxBytes int64) (*requestForm, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, err
	}
	return &requestForm{r: r}, nil
}

// Value returns a posted value. Query parameters are ignored.
func (f *requestForm) Value(name string) (string, bool) {
	if f.r.MultipartForm != nil {
		if vs, ok := f.r.MultipartForm.Value[name]; ok && len(vs) > 0 {
			return vs[0], true
		}
	}
	if vs, ok := f.r.PostForm[name]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

// File returns the first file posted under name. Empty file inputs, which
// browsers send with no file name, count as absent.
func (f *requestForm) File(name string) (core.UploadedFile, bool) {
	if f.r.MultipartForm == nil {
		return nil, false
	}
	fhs := f.r.MultipartForm.File[name]
	if len(fhs) == 0 || fhs[0].Filename == "" {
		return nil, false
	}
	return uploadedFile{fhs[0]}, true
}

// cleanup removes the temporary files of the multipart form.
func (f *requestForm) cleanup() {
	if f.r.MultipartForm != nil {
		_ = f.r.MultipartForm.RemoveAll()
	}
}

type uploadedFile struct {
	fh *multipart.FileHeader
}

func (u uploadedFile) Open() (io.ReadCloser, error) { return u.fh.Open() }

func (u uploadedFile) Filename() string { return u.fh.Filename }
