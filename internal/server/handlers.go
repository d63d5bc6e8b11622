package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/adeleeuw3/NLVreport/internal/dashboard"
	"github.com/adeleeuw3/NLVreport/internal/entry"
	"github.com/adeleeuw3/NLVreport/internal/period"
	"github.com/adeleeuw3/NLVreport/internal/record"
	"github.com/adeleeuw3/NLVreport/internal/stitch"
	"github.com/adeleeuw3/NLVreport/internal/view"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	sess, err := s.Auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.logEvent("user_signed_up", map[string]any{"user_id": sess.User.ID})
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	sess, err := s.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.logEvent("user_signed_in", map[string]any{"user_id": sess.User.ID})
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if err := s.Auth.Revoke(r.Context(), sess.token); err != nil {
		writeErr(w, err)
		return
	}
	s.Views.Forget(sess.user.ID)
	s.logEvent("user_signed_out", map[string]any{"user_id": sess.user.ID})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentSession(r).user)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Catalog.All())
}

type reportResponse struct {
	ID    string      `json:"id"`
	Month string      `json:"month"`
	Year  int         `json:"year"`
	Title string      `json:"title,omitempty"`
	Data  record.Data `json:"data"`
	Found bool        `json:"found"`
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	form, err := s.Entry.Load(r.Context(), currentSession(r).user.ID, month, year)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reportResponse{
		ID:    period.ReportID(form.Month, form.Year),
		Month: form.Month,
		Year:  form.Year,
		Title: form.Title,
		Data:  form.Data,
		Found: form.Found,
	})
}

type saveReportRequest struct {
	Title string      `json:"title"`
	Data  record.Data `json:"data"`
}

func (s *Server) handleSaveReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req saveReportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	uid := currentSession(r).user.ID
	id, err := s.Entry.Save(r.Context(), uid, &entry.Form{Month: month, Year: year, Title: req.Title, Data: req.Data})
	if err != nil {
		writeErr(w, err)
		return
	}
	s.logEvent("report_saved", map[string]any{"user_id": uid, "report_id": id})
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	uid := currentSession(r).user.ID
	if err := s.Store.DeleteReport(r.Context(), uid, month, year); err != nil {
		writeErr(w, err)
		return
	}
	s.logEvent("report_deleted", map[string]any{"user_id": uid, "report_id": period.ReportID(month, year)})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handlePreviousReport(w http.ResponseWriter, r *http.Request) {
	year, month, err := monthParams(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	data, ok, err := s.Entry.CopyPrevious(r.Context(), currentSession(r).user.ID, month, year)
	if err != nil {
		writeErr(w, err)
		return
	}
	if data == nil {
		data = record.Data{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"found": ok, "data": data})
}

func (s *Server) handleSavedMonths(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	months, err := s.Store.GetSavedMonths(r.Context(), currentSession(r).user.ID, year)
	if err != nil {
		writeErr(w, err)
		return
	}
	if months == nil {
		months = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "months": months})
}

func (s *Server) handleMerged(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	months, err := monthList(r.URL.Query().Get("months"))
	if err != nil {
		writeErr(w, err)
		return
	}
	data, err := s.Entry.LoadMerged(r.Context(), currentSession(r).user.ID, year, months)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

type saveManyRequest struct {
	Months []string    `json:"months"`
	Title  string      `json:"title"`
	Data   record.Data `json:"data"`
}

func (s *Server) handleSaveMany(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req saveManyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	months, err := normalizeMonths(req.Months)
	if err != nil {
		writeErr(w, err)
		return
	}
	uid := currentSession(r).user.ID
	ids, err := s.Entry.SaveMany(r.Context(), uid, year, months, req.Data, req.Title)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.logEvent("reports_saved", map[string]any{"user_id": uid, "report_ids": ids})
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

func (s *Server) handleDeleteMany(w http.ResponseWriter, r *http.Request) {
	year, err := yearParam(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	months, err := monthList(r.URL.Query().Get("months"))
	if err != nil {
		writeErr(w, err)
		return
	}
	uid := currentSession(r).user.ID
	if err := s.Entry.DeleteMany(r.Context(), uid, year, months); err != nil {
		writeErr(w, err)
		return
	}
	s.logEvent("reports_deleted", map[string]any{"user_id": uid, "year": year, "months": months})
	writeJSON(w, http.StatusNoContent, nil)
}

type storyRequest struct {
	Year    int    `json:"year"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Preset  string `json:"preset,omitempty"`
	Title   string `json:"title"`
	ShowMoM bool   `json:"showMoM"`
	// Save stores the story as a snapshot.
	Save bool `json:"save"`
}

type storyResponse struct {
	ID        string               `json:"id,omitempty"`
	Title     string               `json:"title"`
	FormData  record.Merged        `json:"formData"`
	Previous  *record.Merged       `json:"previous,omitempty"`
	Missing   []string             `json:"missing"`
	Dashboard *dashboard.Dashboard `json:"dashboard"`
}

func (s *Server) handleBuildStory(w http.ResponseWriter, r *http.Request) {
	var req storyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if req.Preset != "" {
		start, end, ok := period.Preset(req.Preset)
		if !ok {
			writeErr(w, badRequest{fmt.Errorf("unknown preset %q", req.Preset)})
			return
		}
		req.Start, req.End = start, end
	}
	if req.Year == 0 {
		writeErr(w, badRequest{fmt.Errorf("year is required")})
		return
	}
	uid := currentSession(r).user.ID
	story, err := stitch.Build(r.Context(), s.Catalog, s.Store, uid, stitch.Request{
		Year:    req.Year,
		Start:   req.Start,
		End:     req.End,
		Title:   req.Title,
		ShowMoM: req.ShowMoM,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	resp := storyResponse{
		Title:     story.Title,
		FormData:  story.Current,
		Previous:  story.Previous,
		Missing:   story.Missing,
		Dashboard: s.Builder.Build(story.Title, story.Current, story.Previous),
	}
	if resp.Missing == nil {
		resp.Missing = []string{}
	}
	if req.Save {
		id, err := s.Store.SaveDashboard(r.Context(), uid, "", story.Title, story.Current)
		if err != nil {
			writeErr(w, err)
			return
		}
		resp.ID = id
		s.logEvent("dashboard_saved", map[string]any{"user_id": uid, "dashboard_id": id})
	}
	writeJSON(w, http.StatusOK, resp)
}

type previewRequest struct {
	KPI    string        `json:"kpiId"`
	Fields record.Fields `json:"fields"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	card, ok := s.Builder.Card(req.KPI, record.Merged{Data: record.Data{req.KPI: req.Fields}}, nil)
	if !ok {
		writeErr(w, badRequest{fmt.Errorf("unknown kpi %q", req.KPI)})
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleListDashboards(w http.ResponseWriter, r *http.Request) {
	list, err := s.Store.GetDashboards(r.Context(), currentSession(r).user.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	if list == nil {
		list = []record.Dashboard{}
	}
	writeJSON(w, http.StatusOK, list)
}

type saveDashboardRequest struct {
	Title    string        `json:"title"`
	FormData record.Merged `json:"formData"`
}

func (s *Server) handleSaveDashboard(w http.ResponseWriter, r *http.Request) {
	var req saveDashboardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeErr(w, badRequest{fmt.Errorf("dashboard title is required")})
		return
	}
	uid := currentSession(r).user.ID
	id := chi.URLParam(r, "id")
	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	id, err := s.Store.SaveDashboard(r.Context(), uid, id, req.Title, req.FormData)
	if err != nil {
		writeErr(w, err)
		return
	}
	s.logEvent("dashboard_saved", map[string]any{"user_id": uid, "dashboard_id": id})
	writeJSON(w, status, map[string]string{"id": id})
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.Store.GetDashboard(r.Context(), currentSession(r).user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDashboard(w http.ResponseWriter, r *http.Request) {
	uid := currentSession(r).user.ID
	id := chi.URLParam(r, "id")
	if err := s.Store.DeleteDashboard(r.Context(), uid, id); err != nil {
		writeErr(w, err)
		return
	}
	s.logEvent("dashboard_deleted", map[string]any{"user_id": uid, "dashboard_id": id})
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRenderDashboard(w http.ResponseWriter, r *http.Request) {
	uid := currentSession(r).user.ID
	d, err := s.Store.GetDashboard(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	var prev *record.Merged
	if meta := d.FormData.Meta; meta != nil && meta.ShowMoM {
		prev, err = stitch.Previous(r.Context(), s.Catalog, s.Store, uid, meta)
		if err != nil {
			writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.Builder.Build(d.Title, d.FormData, prev))
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Views.For(currentSession(r).user.ID).Current())
}

type viewRequest struct {
	Action  view.Action     `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleApplyView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	payload, err := decodeViewPayload(req.Action, req.Payload)
	if err != nil {
		writeErr(w, err)
		return
	}
	v, err := s.Views.For(currentSession(r).user.ID).Apply(req.Action, payload)
	if err != nil {
		if !errors.Is(err, view.ErrInvalidTransition) {
			err = badRequest{err}
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func decodeViewPayload(action view.Action, raw json.RawMessage) (any, error) {
	var target any
	switch action {
	case view.OpenMonth:
		target = &view.EntryPayload{}
	case view.StartWizard:
		target = &view.WizardPayload{}
	case view.Generate, view.OpenSnapshot:
		target = &view.DashboardPayload{}
	case view.Back:
		return nil, nil
	default:
		return nil, badRequest{fmt.Errorf("unknown action %q", action)}
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return nil, badRequest{fmt.Errorf("decode %s payload: %w", action, err)}
		}
	}
	switch p := target.(type) {
	case *view.EntryPayload:
		return *p, nil
	case *view.WizardPayload:
		return *p, nil
	case *view.DashboardPayload:
		return *p, nil
	}
	return nil, nil
}

func yearParam(r *http.Request) (int, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		return 0, badRequest{fmt.Errorf("invalid year %q", chi.URLParam(r, "year"))}
	}
	return year, nil
}

func monthParams(r *http.Request) (int, string, error) {
	year, err := yearParam(r)
	if err != nil {
		return 0, "", err
	}
	month, err := period.Normalize(chi.URLParam(r, "month"))
	if err != nil {
		return 0, "", badRequest{err}
	}
	return year, month, nil
}

func monthList(raw string) ([]string, error) {
	var months []string
	for _, m := range strings.Split(raw, ",") {
		if m = strings.TrimSpace(m); m != "" {
			months = append(months, m)
		}
	}
	return normalizeMonths(months)
}

func normalizeMonths(months []string) ([]string, error) {
	if len(months) == 0 {
		return nil, badRequest{fmt.Errorf("at least one month is required")}
	}
	out := make([]string, 0, len(months))
	for _, m := range months {
		n, err := period.Normalize(m)
		if err != nil {
			return nil, badRequest{err}
		}
		out = append(out, n)
	}
	return out, nil
}
