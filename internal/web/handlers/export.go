package handlers

import (
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/kozaktomas/fieldreport/internal/export"
	"github.com/kozaktomas/fieldreport/internal/imaging"
)

// Deliveries accepted by Generate.
const (
	deliveryDownload = "download"
	deliverySave     = "save"
	deliveryShare    = "share"
	deliveryReport   = "report"
)

// ExportHandler builds PDF documents from the session and delivers them.
type ExportHandler struct {
	service        *export.Service
	defaultQuality string
}

// NewExportHandler creates a new export handler. defaultQuality names the
// image profile used when a request does not pick one.
func NewExportHandler(service *export.Service, defaultQuality string) *ExportHandler {
	return &ExportHandler{
		service:        service,
		defaultQuality: defaultQuality,
	}
}

// ExportResponse describes a delivered document.
type ExportResponse struct {
	Document *export.Document `json:"document"`
	Path     string           `json:"path,omitempty"`
	Shared   bool             `json:"shared,omitempty"`
}

// Generate renders the session into a PDF. The delivery query parameter
// selects what happens with it: "download" (default) streams the PDF,
// "save" stores it on the device, "share" hands it to the share target and
// "report" returns only the export report.
func (h *ExportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}

	quality := r.URL.Query().Get("quality")
	if quality == "" {
		quality = h.defaultQuality
	}
	profile, err := imaging.ParseProfile(quality)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	delivery := r.URL.Query().Get("delivery")
	if delivery == "" {
		delivery = deliveryDownload
	}
	switch delivery {
	case deliveryDownload, deliverySave, deliveryShare, deliveryReport:
	default:
		respondError(w, http.StatusBadRequest, "unknown delivery "+strconv.Quote(delivery))
		return
	}

	rec, seq := s.Snapshot()
	doc, err := h.service.Build(r.Context(), s.ID, rec, seq, profile)
	if err != nil {
		respondFailure(w, "generate report", err)
		return
	}
	log.Printf("Generated %s: %d pages, %d warnings", sanitizeForLog(doc.Filename), doc.Report.PageCount, len(doc.Report.Warnings))

	switch delivery {
	case deliveryDownload:
		writePDF(w, doc)
	case deliverySave:
		path, err := h.service.Save(r.Context(), doc)
		if err != nil {
			respondFailure(w, "save report", err)
			return
		}
		respondJSON(w, http.StatusOK, ExportResponse{Document: doc, Path: path})
	case deliveryShare:
		if err := h.service.Share(r.Context(), doc); err != nil {
			respondFailure(w, "share report", err)
			return
		}
		respondJSON(w, http.StatusOK, ExportResponse{Document: doc, Shared: true})
	case deliveryReport:
		respondJSON(w, http.StatusOK, ExportResponse{Document: doc})
	}
}

// Last returns the session's most recently built document without its bytes.
func (h *ExportHandler) Last(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	doc := h.service.Last(s.ID)
	if doc == nil {
		respondFailure(w, "get last report", export.ErrNoDocument)
		return
	}
	respondJSON(w, http.StatusOK, ExportResponse{Document: doc})
}

// Download streams the session's most recently built document again.
func (h *ExportHandler) Download(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	doc := h.service.Last(s.ID)
	if doc == nil {
		respondFailure(w, "download report", export.ErrNoDocument)
		return
	}
	writePDF(w, doc)
}

// Retry repeats a failed save or share of the session's last document
// without rendering it again.
func (h *ExportHandler) Retry(w http.ResponseWriter, r *http.Request) {
	s := mustGetSession(w, r)
	if s == nil {
		return
	}
	op := r.URL.Query().Get("op")
	if op != deliverySave && op != deliveryShare {
		respondError(w, http.StatusBadRequest, "op must be save or share")
		return
	}
	if err := h.service.Retry(r.Context(), s.ID, op); err != nil {
		respondFailure(w, op+" report", err)
		return
	}
	respondJSON(w, http.StatusOK, ExportResponse{Document: h.service.Last(s.ID), Shared: op == deliveryShare})
}

func writePDF(w http.ResponseWriter, doc *export.Document) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.PDF)))
	w.Header().Set("X-Report-Warnings", strconv.Itoa(len(doc.Report.Warnings)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.PDF)
}
