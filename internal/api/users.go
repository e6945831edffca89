package api

import (
	"net/http"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	user, err := h.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, toUser(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	user, err := h.auth.Login(r.Context(), w, req.Email, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, toUser(user))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Logout(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	user, err := h.auth.Me(r.Context(), userID)
	if err != nil {
		fail(w, r, err)
		return
	}
	ok(w, toUser(user))
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if err := h.auth.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetDefaultCalendar(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	calendarID, err := pathID(r, "calendarId")
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.auth.SetDefaultCalendar(r.Context(), userID, calendarID); err != nil {
		fail(w, r, err)
		return
	}
	message(w, http.StatusOK, "Default calendar updated successfully.")
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.auth.DeleteAccount(r.Context(), userID); err != nil {
		fail(w, r, err)
		return
	}
	h.auth.Logout(w)
	w.WriteHeader(http.StatusNoContent)
}
