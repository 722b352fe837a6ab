package web

import (
	"net/http"
	"strings"
)

type loginView struct {
	ReturnTo string
}

// Login renders the sign-in form. It posts the identity provider's access
// token to the session endpoint.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	returnTo := r.URL.Query().Get("return_to")
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		returnTo = "/dashboard"
	}
	s.render(w, http.StatusOK, "login.html", s.page(r, "Sign in", "", loginView{ReturnTo: returnTo}))
}
