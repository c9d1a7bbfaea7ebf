// Package cloudprnt serves queued jobs to Star printers over the CloudPRNT
// pull protocol: the printer POSTs to discover a job and GETs it by token.
package cloudprnt

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/ppiankov/orderprint/internal/audit"
	"github.com/ppiankov/orderprint/internal/order"
	"github.com/ppiankov/orderprint/internal/queue"
	"github.com/ppiankov/orderprint/internal/receipt"
)

// maxStatusBody caps how much of a printer status body is read.
const maxStatusBody = 64 << 10

// Journal records job lifecycle events. *audit.Log satisfies it.
type Journal interface {
	Record(e audit.Entry) error
}

// Config holds protocol handler configuration.
type Config struct {
	Port      int
	MediaType string
	// TestRoute enables GET /createjob, which queues a sample receipt.
	TestRoute bool
	Journal   Journal
	Log       io.Writer
}

// Handler implements the CloudPRNT endpoints over a job queue.
type Handler struct {
	queue     *queue.Queue
	mediaType string
	journal   Journal
	log       io.Writer
	mux       *http.ServeMux
}

// DiscoveryResponse is the JSON body answering a printer poll.
type DiscoveryResponse struct {
	JobReady    bool     `json:"jobReady"`
	MediaTypes  []string `json:"mediaTypes,omitempty"`
	JobToken    string   `json:"jobToken,omitempty"`
	ContentType string   `json:"contentType,omitempty"`
}

// printerStatus is the subset of the printer's poll body that gets logged.
type printerStatus struct {
	PrinterMAC         string `json:"printerMAC"`
	StatusCode         string `json:"statusCode"`
	PrintingInProgress bool   `json:"printingInProgress"`
}

// NewHandler creates the protocol handler for q.
func NewHandler(q *queue.Queue, cfg Config) *Handler {
	if cfg.MediaType == "" {
		cfg.MediaType = receipt.MediaType
	}
	if cfg.Log == nil {
		cfg.Log = os.Stderr
	}
	h := &Handler{
		queue:     q,
		mediaType: cfg.MediaType,
		journal:   cfg.Journal,
		log:       cfg.Log,
		mux:       http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /starcloudprnt", h.discover)
	h.mux.HandleFunc("GET /starcloudprnt", h.fetch)
	h.mux.HandleFunc("DELETE /starcloudprnt", h.confirm)
	h.mux.HandleFunc("GET /healthz", h.health)
	if cfg.TestRoute {
		h.mux.HandleFunc("GET /createjob", h.createJob)
	}
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// discover answers a printer poll. It never changes the queue, so repeated
// polls keep offering the same oldest job until it is fetched.
func (h *Handler) discover(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, maxStatusBody))
	var st printerStatus
	if len(body) > 0 && json.Unmarshal(body, &st) == nil && st.PrinterMAC != "" {
		fmt.Fprintf(h.log, "cloudprnt: poll from %s status %s\n", st.PrinterMAC, st.StatusCode)
	}

	resp := DiscoveryResponse{JobReady: false}
	if token, ok := h.queue.PeekFirst(); ok {
		resp = DiscoveryResponse{
			JobReady:    true,
			MediaTypes:  []string{h.mediaType},
			JobToken:    token,
			ContentType: h.mediaType,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// fetch hands out the job for the requested token exactly once. Unknown,
// stale and missing tokens all get 204 No Content.
func (h *Handler) fetch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := firstNonEmpty(q.Get("token"), q.Get("jobToken"), q.Get("jobid"))

	if token == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	data, ok := h.queue.TakeByToken(token)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	fmt.Fprintf(h.log, "cloudprnt: printed %s (%d bytes)\n", token, len(data))
	h.record(audit.Entry{Event: audit.EventFetched, Token: token, Bytes: len(data)})

	w.Header().Set("Content-Type", h.mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		fmt.Fprintf(h.log, "cloudprnt: write job %s: %v\n", token, err)
	}
}

// confirm receives the printer's print result for a fetched job.
func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	token := firstNonEmpty(q.Get("token"), q.Get("jobToken"), q.Get("jobid"))
	code := q.Get("code")

	fmt.Fprintf(h.log, "cloudprnt: confirmation %s code %s\n", token, code)
	h.record(audit.Entry{Event: audit.EventConfirmed, Token: token, Detail: code})
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"pending": h.queue.Len(),
	})
}

// createJob queues a sample receipt for printer setup checks.
func (h *Handler) createJob(w http.ResponseWriter, _ *http.Request) {
	token, err := h.queue.Enqueue(receipt.Render(SampleOrder()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(h.log, "cloudprnt: test job queued %s\n", token)
	writeJSON(w, http.StatusOK, map[string]string{"jobToken": token})
}

// SampleOrder is the order printed by the test route.
func SampleOrder() order.Order {
	return order.Order{
		Customer:   "TEST PRINT",
		Type:       order.SquarePickup,
		TotalItems: "2",
		Note:       "Printer check",
		Items: []order.LineItem{
			{Label: "1x Glazed Donut", Modifiers: []string{"Extra Glaze"}},
			{Label: "1x Coffee"},
		},
	}
}

func (h *Handler) record(e audit.Entry) {
	if h.journal == nil {
		return
	}
	if err := h.journal.Record(e); err != nil {
		fmt.Fprintf(h.log, "cloudprnt: journal: %v\n", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
