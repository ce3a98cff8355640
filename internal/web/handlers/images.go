package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/fieldreport/internal/acquire"
	"github.com/kozaktomas/fieldreport/internal/constants"
	"github.com/kozaktomas/fieldreport/internal/slots"
)

// ImagesHandler handles adding and arranging the photos of a session.
type ImagesHandler struct{}

// NewImagesHandler creates a new images handler.
func NewImagesHandler() *ImagesHandler {
	return &ImagesHandler{}
}

// AddImagesResponse reports the outcome of an upload.
type AddImagesResponse struct {
	Added    []SlotView `json:"added"`
	Rejected int        `json:"rejected"`
	Message  string     `json:"message,omitempty"`
	Skipped  []string   `json:"skipped,omitempty"`
	Slots    []SlotView `json:"slots"`
}

// SwapRequest names two slot positions to exchange.
type SwapRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// CaptionRequest sets the caption of an image.
type CaptionRequest struct {
	Caption string `json:"caption"`
}

// readUploadedFile reads one multipart file fully.
func readUploadedFile(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %s", fh.Filename)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %s", fh.Filename)
	}
	return data, nil
}

// parseUpload parses a size-limited multipart form.
func parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadMemory); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return false
	}
	return true
}

func positionParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	pos, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil || pos < 0 {
		respondError(w, http.StatusBadRequest, "invalid slot position")
		return 0, false
	}
	return pos, true
}

// Upload adds the uploaded files under the role given in the form. After
// images without an open before slot are rejected and counted.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	if !parseUpload(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	role, err := slots.ParseRole(r.FormValue("role"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files provided")
		return
	}

	var sources [][]byte
	var skipped []string
	for _, fh := range files {
		data, err := readUploadedFile(fh)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !acquire.IsImageContent(data) {
			log.Printf("WARNING: skipping upload %s: not an image", sanitizeForLog(fh.Filename))
			skipped = append(skipped, fh.Filename)
			continue
		}
		sources = append(sources, data)
	}
	if len(sources) == 0 {
		respondError(w, http.StatusBadRequest, "no image files provided")
		return
	}

	imgs, rej := s.Add(role, sources...)
	_, seq := s.Snapshot()
	views := slotViews(seq)

	resp := AddImagesResponse{
		Rejected: rej.Count,
		Message:  rej.Message(),
		Skipped:  skipped,
		Slots:    views,
	}
	for _, img := range imgs {
		if _, pos := s.Find(img.ID); pos >= 0 {
			resp.Added = append(resp.Added, views[pos])
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Image serves the original bytes of a session image.
func (h *ImagesHandler) Image(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	img, _ := s.Find(chi.URLParam(r, "id"))
	if img == nil {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(img.Source))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(img.Source)
}

// Swap exchanges two slot positions.
func (h *ImagesHandler) Swap(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	var req SwapRequest
	if !decodeJSON(w, r, constants.MaxRecordBodySize, &req) {
		return
	}
	if err := s.Swap(req.From, req.To); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stateOf(s))
}

// Replace puts an uploaded file into a slot. The slot keeps its role.
func (h *ImagesHandler) Replace(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	pos, ok := positionParam(w, r)
	if !ok {
		return
	}
	if !parseUpload(w, r) {
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) != 1 {
		respondError(w, http.StatusBadRequest, "exactly one file is required")
		return
	}
	data, err := readUploadedFile(files[0])
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !acquire.IsImageContent(data) {
		respondError(w, http.StatusBadRequest, "file is not an image")
		return
	}

	if _, err := s.Replace(pos, data, r.FormValue("caption")); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stateOf(s))
}

// Delete empties a slot.
func (h *ImagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	pos, ok := positionParam(w, r)
	if !ok {
		return
	}
	if err := s.Delete(pos); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, stateOf(s))
}

// Caption sets the caption of an image.
func (h *ImagesHandler) Caption(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	var req CaptionRequest
	if !decodeJSON(w, r, constants.MaxRecordBodySize, &req) {
		return
	}
	if !s.SetCaption(chi.URLParam(r, "id"), req.Caption) {
		respondError(w, http.StatusNotFound, "image not found")
		return
	}
	respondJSON(w, http.StatusOK, stateOf(s))
}
