package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	"github.com/R3E-Network/submission_review/internal/domain/submission"
	svcerrors "github.com/R3E-Network/submission_review/internal/errors"
	"github.com/R3E-Network/submission_review/internal/httputil"
	"github.com/R3E-Network/submission_review/internal/middleware"
)

type createSubmissionRequest struct {
	VideoURL string   `json:"videoUrl"`
	Platform string   `json:"platform"`
	Caption  *string  `json:"caption"`
	Hashtags []string `json:"hashtags"`
	Notes    *string  `json:"notes"`
}

type updateSubmissionRequest struct {
	Caption  *string   `json:"caption"`
	Hashtags *[]string `json:"hashtags"`
	Notes    *string   `json:"notes"`
}

type reviewRequest struct {
	Action   string  `json:"action"`
	Feedback *string `json:"feedback"`
}

type listResponse struct {
	Items      []submission.Submission `json:"items"`
	Total      int                     `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"pageSize"`
	TotalPages int                     `json:"totalPages"`
}

func principal(r *http.Request) account.Principal {
	p, _ := middleware.PrincipalFromContext(r.Context())
	return p
}

func (h *handler) createSubmission(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.engine.CreateSubmission(r.Context(), principal(r).ID, submission.Draft{
		VideoURL: req.VideoURL,
		Platform: submission.Platform(req.Platform),
		Caption:  req.Caption,
		Hashtags: req.Hashtags,
		Notes:    req.Notes,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, sub)
}

func (h *handler) listSubmissions(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r.URL.Query(), h.loc)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	limit, offset := params.limitOffset()
	page, err := h.engine.ListForPrincipal(r.Context(), principal(r), params.Filter, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Items:      page.Items,
		Total:      page.Total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages(page.Total, params.PageSize),
	})
}

func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.GetSubmissionStats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *handler) getSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := h.engine.GetSubmission(r.Context(), principal(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *handler) updateSubmission(w http.ResponseWriter, r *http.Request) {
	var req updateSubmissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	update := submission.ContentUpdate{Caption: req.Caption, Hashtags: req.Hashtags, Notes: req.Notes}
	if update.Empty() {
		h.writeError(w, r, svcerrors.Validation("at least one of caption, hashtags or notes is required"))
		return
	}
	sub, err := h.engine.UpdateSubmission(r.Context(), principal(r), mux.Vars(r)["id"], update)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *handler) deleteSubmission(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteSubmission(r.Context(), principal(r), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *handler) reviewSubmission(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	action, err := submission.ParseAction(req.Action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sub, err := h.engine.ReviewSubmission(r.Context(), mux.Vars(r)["id"], principal(r).ID, action, req.Feedback)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func (h *handler) submissionMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.GetEngagement(r.Context(), principal(r), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}
