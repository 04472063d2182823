package http

import (
	"log/slog"
	"net/http"

	applog "finboard/internal/log"
)

type authPageData struct {
	Error  string
	Notice string
	Email  string
}

// handleLogin serves the login page and processes credential submissions.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := s.sessions.Get(r.Context(), r); ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		notice := ""
		if r.URL.Query().Get("registered") == "1" {
			notice = "Account created, you can sign in now"
		}
		s.renderTemplate(w, r, "login_page", authPageData{Notice: notice})

	case http.MethodPost:
		if resp := ParseFormOrFail(r); resp != nil {
			resp.Write(w)
			return
		}

		email := FormString(r.Form, "email")
		password := r.Form.Get("password")
		if email == "" || password == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.renderTemplate(w, r, "login_page", authPageData{Error: "Email and password are required", Email: email})
			return
		}

		resp, err := s.api.Login(r.Context(), email, password)
		if err != nil {
			slog.WarnContext(r.Context(), "Login failed", applog.FieldOperation, applog.OpLogin, "error", err)
			w.WriteHeader(http.StatusUnauthorized)
			s.renderTemplate(w, r, "login_page", authPageData{Error: apiErrorMessage(err), Email: email})
			return
		}

		if _, err := s.sessions.Create(r.Context(), w, email, resp.Tokens); err != nil {
			slog.ErrorContext(r.Context(), "Session creation failed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			s.renderTemplate(w, r, "login_page", authPageData{Error: "Could not start a session, try again", Email: email})
			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleSignup serves the registration page and creates accounts.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderTemplate(w, r, "signup_page", authPageData{})

	case http.MethodPost:
		if resp := ParseFormOrFail(r); resp != nil {
			resp.Write(w)
			return
		}

		username := FormString(r.Form, "username")
		email := FormString(r.Form, "email")
		password := r.Form.Get("password")
		if username == "" || email == "" || password == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.renderTemplate(w, r, "signup_page", authPageData{Error: "All fields are required", Email: email})
			return
		}

		if err := s.api.Signup(r.Context(), username, email, password); err != nil {
			slog.WarnContext(r.Context(), "Signup failed", "error", err)
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.renderTemplate(w, r, "signup_page", authPageData{Error: apiErrorMessage(err), Email: email})
			return
		}

		http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)

	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleProfile renders the account page with the profile held by the API.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	user, err := s.api.Profile(r.Context(), sess.AccessToken)
	if err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		slog.ErrorContext(r.Context(), "Profile load failed", "error", err)
		InternalServerError("Could not load profile").Write(w)
		return
	}

	params := ParseMonthParams(r.URL.Query())
	data := struct {
		Email    string
		Username string
		UserID   int64
		Year     int
		Month    int
	}{
		Email:    user.Email,
		Username: user.Username,
		UserID:   user.ID,
		Year:     params.Year,
		Month:    params.Month,
	}
	s.renderTemplate(w, r, "profile_page", data)
}

// handleLogout ends the session on both sides: the API blacklists the
// refresh token, the local session row and cookie are cleared either way.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if sess, ok := s.sessions.Get(r.Context(), r); ok {
		if err := s.api.Logout(r.Context(), sess.AccessToken, sess.RefreshToken); err != nil {
			slog.WarnContext(r.Context(), "API logout failed", applog.FieldOperation, applog.OpLogout, "error", err)
		}
		s.loader.invalidate(sess.ID)
	}

	s.sessions.Destroy(r.Context(), w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
