package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/storefront-labs/hubsync/internal/catalog"
	"github.com/storefront-labs/hubsync/internal/command"
	"github.com/storefront-labs/hubsync/internal/config"
	"github.com/storefront-labs/hubsync/internal/hub"
	"github.com/storefront-labs/hubsync/internal/model"
)

// App wires the HTTP handlers to the agent's collaborators.
type App struct {
	Cfg      config.Config
	Store    *catalog.Store
	Exec     *command.Executor
	Notifier *hub.Notifier
	closing  atomic.Bool
	started  time.Time
}

func NewApp(cfg config.Config, st *catalog.Store, exec *command.Executor, notifier *hub.Notifier) *App {
	return &App{Cfg: cfg, Store: st, Exec: exec, Notifier: notifier, started: time.Now()}
}

// StartShutdown rejects new work and closes the notification intake.
func (a *App) StartShutdown() {
	a.closing.Store(true)
	if a.Notifier != nil {
		a.Notifier.CloseIntake()
	}
}

func requireJSON(w http.ResponseWriter, r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// resultBody maps a command result onto its wire shape. Pass-through is
// reported as ignored so the Hub can tell it apart from success and error.
func resultBody(kind string, res command.Result) map[string]any {
	switch res.Disposition {
	case command.PassThrough:
		return map[string]any{"ignored": true, "kind": kind}
	case command.Failed:
		return map[string]any{"error": res.Err, "code": res.Code}
	default:
		body := map[string]any{"success": true}
		for k, v := range res.Fields {
			body[k] = v
		}
		return body
	}
}

// commandsHandler executes one command or a batch. A failed command never
// fails the request: each result is reported in place so the Hub can
// record per-command outcomes and keep going.
func (a *App) commandsHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	if !requireJSON(w, r) {
		return
	}
	body, err := readBody(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	if strings.HasPrefix(body, "[") {
		var cmds []model.Command
		if err := decodeStrict(body, &cmds); err != nil {
			WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		results := make([]map[string]any, 0, len(cmds))
		for _, cmd := range cmds {
			results = append(results, resultBody(cmd.Kind, a.Exec.Execute(cmd.Kind, cmd.Payload)))
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
		return
	}

	var cmd model.Command
	if err := decodeStrict(body, &cmd); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if cmd.Kind == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "kind is required")
		return
	}
	writeJSON(w, http.StatusOK, resultBody(cmd.Kind, a.Exec.Execute(cmd.Kind, cmd.Payload)))
}

func readBody(r *http.Request) (string, error) {
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func decodeStrict(body string, v any) error {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "product id required")
		return 0, false
	}
	return id, true
}

func (a *App) createProductHandler(w http.ResponseWriter, r *http.Request) {
	if !requireJSON(w, r) {
		return
	}
	var p model.Product
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if p.ID <= 0 {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "product id required")
		return
	}
	a.Store.Put(p)
	writeJSON(w, http.StatusCreated, p)
}

func (a *App) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, found := a.Store.Get(id)
	if !found {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type stockEdit struct {
	Stock int64 `json:"stock"`
}

// putStockHandler applies a local (non-command) stock edit. The resulting
// Save emits a stock event, so this is the path that exercises node-to-Hub
// propagation.
func (a *App) putStockHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var edit stockEdit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&edit); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if edit.Stock < 0 {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "stock must be >= 0")
		return
	}
	if err := a.Store.SetStock(id, edit.Stock); err != nil {
		a.writeStoreError(w, err)
		return
	}
	if err := a.Store.Save(id); err != nil {
		a.writeStoreError(w, err)
		return
	}
	p, _ := a.Store.Get(id)
	writeJSON(w, http.StatusOK, p)
}

// productPatch is a partial product edit; nil fields stay untouched.
type productPatch struct {
	Name             *string `json:"name,omitempty"`
	Stock            *int64  `json:"stock,omitempty"`
	RegularPrice     *string `json:"regular_price,omitempty"`
	SalePrice        *string `json:"sale_price,omitempty"`
	Description      *string `json:"description,omitempty"`
	ShortDescription *string `json:"short_description,omitempty"`
	Weight           *string `json:"weight,omitempty"`
}

func (a *App) patchProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if !requireJSON(w, r) {
		return
	}
	var patch productPatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	fields := map[string]*string{
		"name":              patch.Name,
		"regular_price":     patch.RegularPrice,
		"sale_price":        patch.SalePrice,
		"description":       patch.Description,
		"short_description": patch.ShortDescription,
		"weight":            patch.Weight,
	}
	for name, v := range fields {
		if v == nil {
			continue
		}
		if err := a.Store.SetField(id, name, *v); err != nil {
			a.writeStoreError(w, err)
			return
		}
	}
	if patch.Stock != nil {
		if err := a.Store.SetStock(id, *patch.Stock); err != nil {
			a.writeStoreError(w, err)
			return
		}
	}
	if err := a.Store.Save(id); err != nil {
		a.writeStoreError(w, err)
		return
	}
	p, _ := a.Store.Get(id)
	writeJSON(w, http.StatusOK, p)
}

func (a *App) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	WriteJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	var enq, sent, failed, dropped uint64
	pending := 0
	if a.Notifier != nil {
		enq, sent, failed, dropped = a.Notifier.Metrics()
		pending = a.Notifier.Pending()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"node_id":                a.Cfg.NodeID,
		"hub_configured":         a.Cfg.HubConfigured(),
		"staging":                a.Cfg.Staging,
		"notifications_enqueued": enq,
		"notifications_sent":     sent,
		"notifications_failed":   failed,
		"notifications_dropped":  dropped,
		"notifications_pending":  pending,
		"uptime_sec":             time.Since(a.started).Seconds(),
	})
}
