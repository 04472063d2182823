package api

import (
	"context"
	"net/http"
)

// TokenPair is the JWT pair issued at login.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// LoginResponse is the body of a successful login.
type LoginResponse struct {
	Msg    string    `json:"msg"`
	Tokens TokenPair `json:"tokens"`
}

// User is the authenticated user's profile.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var resp LoginResponse
	payload := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/users/login/", "", nil, payload, &resp); err != nil {
		return LoginResponse{}, err
	}
	return resp, nil
}

// Signup registers a new account. The API signs the user in separately.
func (c *Client) Signup(ctx context.Context, username, email, password string) error {
	payload := map[string]string{"username": username, "email": email, "password": password}
	return c.do(ctx, http.MethodPost, "/api/users/register/", "", nil, payload, nil)
}

// Logout blacklists the refresh token server-side. A failure here is not
// fatal: the local session is cleared regardless.
func (c *Client) Logout(ctx context.Context, token, refresh string) error {
	payload := map[string]string{"refresh": refresh}
	return c.do(ctx, http.MethodPost, "/api/users/logout/", token, nil, payload, nil)
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context, token string) (User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/users/profile/", token, nil, nil, &u); err != nil {
		return User{}, err
	}
	return u, nil
}
