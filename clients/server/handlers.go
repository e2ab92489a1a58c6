// handlers.go — HTTP handlers for sessions, layers, output and the gallery.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"github.com/xob0t/cardforge/pkg/cardspec"
	"github.com/xob0t/cardforge/pkg/catalog"
	"github.com/xob0t/cardforge/pkg/export"
	"github.com/xob0t/cardforge/pkg/imageproc"
	"github.com/xob0t/cardforge/pkg/scene"
)

// maxUpload bounds multipart image uploads.
const maxUpload = 10 << 20

// decodeJSON decodes an optional JSON body. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := render.DecodeJSON(r.Body, v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// ── Catalog ──

func (s *srv) handleCatalog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"templates":   catalog.Templates(),
		"palette":     catalog.Palette(),
		"fonts":       catalog.Fonts(),
		"filters":     catalog.Filters(),
		"decorations": catalog.Decorations(),
		"messages":    catalog.QuickMessages(),
		"presets":     catalog.Presets,
	})
}

// ── Sessions ──

type sceneRequest struct {
	Template string `json:"template"`
	Preset   string `json:"preset"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func (req sceneRequest) resolve() (scene.Size, catalog.Template, error) {
	tpl := catalog.DefaultTemplate()
	if req.Template != "" {
		t, err := catalog.TemplateByName(req.Template)
		if err != nil {
			return scene.Size{}, tpl, err
		}
		tpl = t
	}
	size := scene.Size{Width: req.Width, Height: req.Height}
	if req.Preset != "" {
		dims, ok := catalog.Presets[req.Preset]
		if !ok {
			return scene.Size{}, tpl, fmt.Errorf("%w: unknown preset %q", scene.ErrInvalidValue, req.Preset)
		}
		size = scene.Size{Width: dims[0], Height: dims[1]}
	}
	return size, tpl, nil
}

func (s *srv) handleListSessions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.sessions.ids())
}

func (s *srv) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON: "+err.Error())
		return
	}
	size, tpl, err := req.resolve()
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.newSession()
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap := sess.CreateScene(size, tpl)
	id := s.sessions.add(sess)
	logrus.WithFields(logrus.Fields{"session": id, "scene_id": snap.ID}).Info("session created")

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]any{"id": id, "scene": snap})
}

func (s *srv) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.sessions.remove(id) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "session not found"})
		return
	}
	render.JSON(w, r, map[string]string{"status": "deleted", "id": id})
}

func (s *srv) handleGetScene(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	snap, err := sess.Snapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, snap)
}

func (s *srv) handleResetScene(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req sceneRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON: "+err.Error())
		return
	}
	size, tpl, err := req.resolve()
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, sess.CreateScene(size, tpl))
}

// respondScene writes the current snapshot after a mutation.
func respondScene(w http.ResponseWriter, r *http.Request, snapshot func() (scene.Snapshot, error), extra map[string]any) {
	snap, err := snapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if extra == nil {
		render.JSON(w, r, snap)
		return
	}
	extra["scene"] = snap
	render.JSON(w, r, extra)
}

func (s *srv) handleSetTemplate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON: "+err.Error())
		return
	}
	if err := sess.SetTemplate(req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	respondScene(w, r, sess.Snapshot, nil)
}

func (s *srv) handleSetMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Text  string `json:"text"`
		Quick *int   `json:"quick"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON: "+err.Error())
		return
	}
	var (
		id  string
		err error
	)
	if req.Quick != nil {
		id, err = sess.UseQuickMessage(*req.Quick)
	} else {
		id, err = sess.SetMessage(req.Text)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondScene(w, r, sess.Snapshot, map[string]any{"layerId": id})
}

func (s *srv) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		TextColor string `json:"textColor"`
		Font      string `json:"font"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON: "+err.Error())
		return
	}
	if req.TextColor != "" {
		if err := sess.SetTextColor(req.TextColor); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Font != "" {
		if err := sess.SetFont(req.Font); err != nil {
			writeError(w, r, err)
			return
		}
	}
	respondScene(w, r, sess.Snapshot, nil)
}

func (s *srv) handleApplyCard(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Card json.RawMessage    `json:"card"`
		Data *cardspec.DataSpec `json:"data"`
	}
	if err := decodeJSON(r, &req); err != nil || len(req.Card) == 0 {
		badRequest(w, r, "expected {\"card\": {...}, \"data\": {...}}")
		return
	}
	// No base directory: only asset references are accepted as sources.
	card, err := cardspec.ParseCard(req.Card, "")
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	warnings := cardspec.Validate(card)
	warnings = append(warnings, cardspec.ValidateData(req.Data, card)...)

	applied, err := cardspec.Apply(r.Context(), sess, card, cardspec.MergeData(card, req.Data))
	warnings = append(warnings, applied...)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondScene(w, r, sess.Snapshot, map[string]any{"warnings": nonNil(warnings)})
}

// ── Layers ──

type layerRequest struct {
	Type     string   `json:"type"` // text, image, decoration
	Content  string   `json:"content"`
	FontSize float64  `json:"fontSize"`
	Anchor   string   `json:"anchor"`
	Source   string   `json:"source"` // asset reference
	X        *float64 `json:"x"`
	Y        *float64 `json:"y"`
}

func (s *srv) handleAddLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req layerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON: "+err.Error())
		return
	}

	var (
		id  string
		err error
	)
	switch req.Type {
	case "text":
		id, err = sess.AddText(req.Content, req.FontSize, scene.Anchor(req.Anchor))
	case "image":
		if req.Source == "" {
			badRequest(w, r, "image layers need a source")
			return
		}
		id, err = sess.AddImageRef(r.Context(), req.Source, scene.Anchor(req.Anchor))
	case "decoration":
		if req.Source == "" {
			badRequest(w, r, "decoration layers need a source")
			return
		}
		if req.X != nil && req.Y != nil {
			id, err = sess.AddDecorationAt(req.Source, *req.X, *req.Y)
		} else {
			id, err = sess.AddDecoration(req.Source)
		}
	default:
		badRequest(w, r, fmt.Sprintf("unknown layer type %q", req.Type))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	respondScene(w, r, sess.Snapshot, map[string]any{"layerId": id})
}

func (s *srv) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		badRequest(w, r, "invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, r, "no file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, r, "read upload: "+err.Error())
		return
	}
	id, err := sess.AddImage(r.Context(), header.Filename, data, scene.Anchor(r.FormValue("anchor")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	respondScene(w, r, sess.Snapshot, map[string]any{"layerId": id})
}

func (s *srv) handleUpdateLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		badRequest(w, r, "invalid JSON: "+err.Error())
		return
	}

	// The patch is applied whole or not at all.
	attrs := make(map[scene.Attribute]any, len(body))
	for k, v := range body {
		attrs[scene.Attribute(k)] = v
	}
	if err := sess.UpdateLayerAttributes(chi.URLParam(r, "layerID"), attrs); err != nil {
		writeError(w, r, err)
		return
	}
	respondScene(w, r, sess.Snapshot, nil)
}

func (s *srv) handleRemoveLayer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.RemoveLayer(chi.URLParam(r, "layerID")); err != nil {
		writeError(w, r, err)
		return
	}
	respondScene(w, r, sess.Snapshot, nil)
}

func (s *srv) handleClearDecorations(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	n, err := sess.ClearDecorations()
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondScene(w, r, sess.Snapshot, map[string]any{"removed": n})
}

func (s *srv) handleApplyFilter(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Filter string `json:"filter"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON: "+err.Error())
		return
	}
	warnings, err := sess.ApplyFilter(r.Context(), chi.URLParam(r, "layerID"), imageproc.FilterKind(req.Filter))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondScene(w, r, sess.Snapshot, map[string]any{"warnings": nonNil(warnings)})
}

// ── Output ──

func (s *srv) handleLayout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	rs, err := sess.Layout()
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, rs)
}

func (s *srv) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	card, err := sess.Preview(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Encode(&buf, card.Image, export.PNG, 0); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Scene-Version", strconv.FormatUint(card.SceneVersion, 10))
	w.Write(buf.Bytes())
}

// exportOptions reads ?format= and ?quality=.
func exportOptions(r *http.Request) (export.Options, error) {
	f, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		return export.Options{}, err
	}
	opts := export.Options{Format: f}
	if q := r.URL.Query().Get("quality"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			return export.Options{}, fmt.Errorf("%w: quality %q", scene.ErrInvalidValue, q)
		}
		opts.Quality = n
	}
	return opts, nil
}

func (s *srv) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	opts, err := exportOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h, err := sess.Export(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer h.Release()

	f, err := h.Open()
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", h.Format.MIME())
	w.Header().Set("Content-Length", strconv.FormatInt(h.Size, 10))
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, h.Name()))
	w.Header().Set("X-Scene-Version", strconv.FormatUint(h.SceneVersion, 10))
	if _, err := io.Copy(w, f); err != nil {
		logrus.WithError(err).WithField("file", h.Name()).Warn("export download interrupted")
	}
}

func (s *srv) handleSave(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	opts, err := exportOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := sess.Save(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, entry)
}

// ── Gallery ──

func (s *srv) handleListGallery(w http.ResponseWriter, r *http.Request) {
	entries, err := s.cfg.Gallery.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(entries))
}

func (s *srv) handleGetGalleryEntry(w http.ResponseWriter, r *http.Request) {
	data, entry, err := s.cfg.Gallery.Get(r.Context(), chi.URLParam(r, "entryID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	mimeType := entry.MIME
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	w.Header().Set("Content-Type", mimeType)
	w.Write(data)
}

// nonNil keeps empty lists from encoding as null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
