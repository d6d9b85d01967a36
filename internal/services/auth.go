package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/tunz/internal/models"
	"github.com/desertthunder/tunz/internal/shared"
)

// AuthService is the gateway to the /auth endpoints.
//
// It must be built over a client without a token source: login and register are anonymous, and WhoAmI sends the
// token it is given.
type AuthService struct {
	api *APIService
}

func NewAuthService(api *APIService) *AuthService {
	return &AuthService{api: api}
}

// Login exchanges credentials for a token.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	req := Request{Op: OpLogin, Method: http.MethodPost, Path: "/auth/login", Body: creds}
	if err := s.api.Do(ctx, req, &resp); err != nil {
		return nil, err
	}

	if resp.Token == "" {
		return nil, &APIError{Op: OpLogin, Method: req.Method, Path: req.Path, Kind: KindDecode, Message: fallbackMessage(OpLogin), Err: shared.ErrInvalidCredential}
	}
	if resp.User == nil || resp.User.Username == "" {
		resp.User = &models.User{Username: creds.Username}
	}
	return &resp, nil
}

// Register creates an account. When the backend does not return a token the same credentials are used to log in.
func (s *AuthService) Register(ctx context.Context, creds models.Credentials) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	req := Request{Op: OpRegister, Method: http.MethodPost, Path: "/auth/register", Body: creds}
	if err := s.api.Do(ctx, req, &resp); err != nil {
		return nil, err
	}

	if resp.Token == "" {
		login, err := s.Login(ctx, creds)
		if err != nil {
			return nil, err
		}
		login.Message = resp.Message
		return login, nil
	}

	if resp.User == nil || resp.User.Username == "" {
		resp.User = &models.User{Username: creds.Username}
	}
	return &resp, nil
}

// WhoAmI returns the user that token belongs to. An empty token fails without a network call.
func (s *AuthService) WhoAmI(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	var user models.User
	req := Request{Op: OpWhoAmI, Method: http.MethodGet, Path: "/auth/me", Token: token}
	if err := s.api.Do(ctx, req, &user); err != nil {
		return nil, err
	}
	if user.Username == "" {
		return nil, &APIError{Op: OpWhoAmI, Method: req.Method, Path: req.Path, Kind: KindDecode, Message: fallbackMessage(OpWhoAmI), Err: shared.ErrAuthFailed}
	}
	return &user, nil
}
