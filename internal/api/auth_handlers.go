package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/kidobra/kidobra-server/internal/http/response"
	"github.com/kidobra/kidobra-server/internal/service"
)

// LogoutRequest identifies the session to revoke.
type LogoutRequest struct {
	SessionID string `json:"session_id"`
}

// handleRegister creates a new account and signs it in.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	req.DeviceID = r.Header.Get(deviceIDHeader)
	req.IPAddress = getClientIP(r)

	resp, err := s.authService.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, resp, s.logger)
}

// handleLogin authenticates a user and returns tokens.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	req.DeviceID = r.Header.Get(deviceIDHeader)
	req.IPAddress = getClientIP(r)

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleRefresh exchanges a refresh token for new tokens.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	req.DeviceID = r.Header.Get(deviceIDHeader)
	req.IPAddress = getClientIP(r)

	resp, err := s.authService.RefreshTokens(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleLogout revokes a session and clears the device's selection slot.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	var req LogoutRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if req.SessionID == "" {
		response.BadRequest(w, "Session ID is required", s.logger)
		return
	}

	if err := s.authService.Logout(ctx, userID, req.SessionID, getDeviceID(ctx)); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{"message": "Logged out successfully"}, s.logger)
}

// handleGetCurrentUser returns the authenticated user's profile.
func (s *Server) handleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	profile, err := s.authService.GetProfile(ctx, userID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, profile, s.logger)
}

// handleUpdateCurrentUser updates the authenticated user's profile.
func (s *Server) handleUpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := getUserID(ctx)

	var req service.UpdateProfileRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	profile, err := s.authService.UpdateProfile(ctx, userID, req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, profile, s.logger)
}
