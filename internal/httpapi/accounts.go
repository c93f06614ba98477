package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	svcerrors "github.com/R3E-Network/submission_review/internal/errors"
	"github.com/R3E-Network/submission_review/internal/httputil"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userView struct {
	ID                  string       `json:"id"`
	Email               string       `json:"email"`
	Username            string       `json:"username"`
	Role                account.Role `json:"role"`
	TotalSubmissions    *int         `json:"totalSubmissions,omitempty"`
	ApprovedSubmissions *int         `json:"approvedSubmissions,omitempty"`
	Active              *bool        `json:"active,omitempty"`
}

func viewUser(u account.User) userView {
	p := u.ProfileInfo()
	v := userView{ID: p.ID, Email: p.Email, Username: p.Username, Role: u.UserRole()}
	if c, ok := u.(account.Creator); ok {
		v.TotalSubmissions = &c.TotalSubmissions
		v.ApprovedSubmissions = &c.ApprovedSubmissions
		v.Active = &c.Active
	}
	return v
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      userView  `json:"user"`
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, err := h.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.accounts.GetUser(r.Context(), sess.UserID)
	if err != nil {
		h.writeError(w, r, svcerrors.Internal("load user after login", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: viewUser(user)})
}

type creatorStatusRequest struct {
	Active *bool `json:"active"`
}

func (h *handler) setCreatorStatus(w http.ResponseWriter, r *http.Request) {
	var req creatorStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Active == nil {
		h.writeError(w, r, svcerrors.Validation("active is required"))
		return
	}
	creator, err := h.engine.SetCreatorActive(r.Context(), principal(r), mux.Vars(r)["id"], *req.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, viewUser(creator))
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.writeError(w, r, svcerrors.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": h.audit.List(limit)})
}
