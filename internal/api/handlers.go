package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"iadetakip/internal"
	"iadetakip/internal/pipeline"
	"iadetakip/internal/tracker"
)

const (
	maxUploadBytes = 32 << 20
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	Tracker *tracker.Tracker
}

type statusResponse struct {
	Status      string         `json:"status"`
	Stats       internal.Stats `json:"stats"`
	RefreshedAt *time.Time     `json:"refreshedAt,omitempty"`
}

type scanRequest struct {
	Code string `json:"code"`
}

type scanResponse struct {
	Item   internal.ReceivedItem `json:"item"`
	Status string                `json:"status"`
}

type barcodesRequest struct {
	Barcodes []string `json:"barcodes"`
}

type deletedResponse struct {
	Deleted int    `json:"deleted"`
	Status  string `json:"status"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, h.status())
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.Refresh(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, h.status())
}

func (h *Handler) ListExpected(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, nonNil(h.Tracker.Expected()))
}

func (h *Handler) ListReceived(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, nonNil(h.Tracker.Received()))
}

func (h *Handler) ListMissing(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, nonNil(h.Tracker.Missing()))
}

// Import handles POST /api/expected/import with one or more multipart
// "files" parts.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	files := make([]pipeline.InputFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			jsonError(w, http.StatusBadRequest, "reading upload")
			return
		}
		blob, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			jsonError(w, http.StatusBadRequest, "reading upload")
			return
		}
		files = append(files, pipeline.InputFile{Name: fh.Filename, Content: blob})
	}

	res, err := h.Tracker.Import(r.Context(), files)
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, res)
}

func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, ok, err := h.Tracker.Scan(r.Context(), req.Code)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		jsonError(w, http.StatusUnprocessableEntity, "invalid barcode")
		return
	}
	jsonResponse(w, http.StatusOK, scanResponse{Item: item, Status: h.Tracker.Status()})
}

func (h *Handler) DeleteExpected(w http.ResponseWriter, r *http.Request) {
	n, err := h.Tracker.DeleteExpected(r.Context(), mux.Vars(r)["barcode"])
	h.deleted(w, n, err)
}

func (h *Handler) DeleteReceived(w http.ResponseWriter, r *http.Request) {
	n, err := h.Tracker.DeleteReceived(r.Context(), mux.Vars(r)["barcode"])
	h.deleted(w, n, err)
}

func (h *Handler) DeleteExpectedMany(w http.ResponseWriter, r *http.Request) {
	var req barcodesRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.Tracker.DeleteExpected(r.Context(), req.Barcodes...)
	h.deleted(w, n, err)
}

func (h *Handler) DeleteReceivedMany(w http.ResponseWriter, r *http.Request) {
	var req barcodesRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := h.Tracker.DeleteReceived(r.Context(), req.Barcodes...)
	h.deleted(w, n, err)
}

func (h *Handler) ClearExpected(w http.ResponseWriter, r *http.Request) {
	h.cleared(w, h.Tracker.ClearExpected(r.Context()))
}

func (h *Handler) ClearReceived(w http.ResponseWriter, r *http.Request) {
	h.cleared(w, h.Tracker.ClearReceived(r.Context()))
}

func (h *Handler) ClearAll(w http.ResponseWriter, r *http.Request) {
	h.cleared(w, h.Tracker.ClearAll(r.Context()))
}

func (h *Handler) ExportMissing(w http.ResponseWriter, r *http.Request) {
	h.download(w, pipeline.MissingFileName(time.Now()), h.Tracker.ExportMissing)
}

func (h *Handler) ExportReceived(w http.ResponseWriter, r *http.Request) {
	h.download(w, pipeline.ReceivedFileName(time.Now()), h.Tracker.ExportReceived)
}

// download renders into memory first so a failed export still gets a
// JSON error instead of a truncated file.
func (h *Handler) download(w http.ResponseWriter, name string, write func(io.Writer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxMIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) deleted(w http.ResponseWriter, n int, err error) {
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, deletedResponse{Deleted: n, Status: h.Tracker.Status()})
}

func (h *Handler) cleared(w http.ResponseWriter, err error) {
	if err != nil {
		writeErr(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, h.status())
}

func (h *Handler) status() statusResponse {
	out := statusResponse{Status: h.Tracker.Status(), Stats: h.Tracker.Stats()}
	if at := h.Tracker.RefreshedAt(); !at.IsZero() {
		out.RefreshedAt = &at
	}
	return out
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
