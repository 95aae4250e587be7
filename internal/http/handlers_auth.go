package http

import (
	"net/http"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

type otpRequest struct {
	OTP string `json:"otp"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(r, err).Write(w)
		return
	}

	session, err := s.deps.Auth.Register(r.Context(), sanitizeInput(req.Name), req.Email, req.Password)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Payload(session).Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(r, err).Write(w)
		return
	}

	session, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password, req.OTP)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Payload(session).Write(w)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	NewJSONResponse().Payload(user).Write(w)
}

func (s *Server) handleSetupTOTP(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	// the body is optional; a code is only needed to replace an active secret
	var req otpRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			ServiceError(r, err).Write(w)
			return
		}
	}
	setup, err := s.deps.Auth.SetupTOTP(r.Context(), user.ID, req.OTP)
	if err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Payload(setup).Write(w)
}

func (s *Server) handleEnableTOTP(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req otpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	if err := s.deps.Auth.EnableTOTP(r.Context(), user.ID, req.OTP); err != nil {
		ServiceError(r, err).Write(w)
		return
	}
	NewJSONResponse().Message("Two-factor authentication enabled").Write(w)
}
