package api

import (
	"encoding/json"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Title length bounds for items
const (
	minPasswordLength = 8
	maxTitleLength    = 200
	maxEmailLength    = 255

	defaultListLimit = 100
	maxListLimit     = 1000
)

// RegisterRequest is the body of POST /api/v1/auth/register
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate returns per-field problems, or an empty map when valid
func (r *RegisterRequest) Validate() map[string]string {
	problems := map[string]string{}

	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		problems["email"] = "email is required"
	} else if len(r.Email) > maxEmailLength {
		problems["email"] = "email is too long"
	} else if addr, err := mail.ParseAddress(r.Email); err != nil || addr.Address != r.Email {
		problems["email"] = "email is not a valid address"
	}

	if utf8.RuneCountInString(r.Password) < minPasswordLength {
		problems["password"] = "password must be at least 8 characters"
	}

	return problems
}

// LoginRequest is the body of POST /api/v1/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is the success body of POST /api/v1/auth/login
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ItemCreateRequest is the body of POST /api/v1/items. The owner is always
// the authenticated caller; there is deliberately no owner field to accept.
type ItemCreateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	IsCompleted bool    `json:"is_completed"`
}

// Validate returns per-field problems, or an empty map when valid
func (r *ItemCreateRequest) Validate() map[string]string {
	problems := map[string]string{}
	validateTitle(r.Title, problems)
	return problems
}

// ItemUpdateRequest is the body of PUT /api/v1/items/{id}. All fields are
// optional; absent fields are left unchanged. An explicit null description
// clears the stored value, so decoding tracks key presence separately.
type ItemUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsCompleted *bool   `json:"is_completed"`

	DescriptionSet bool `json:"-"`
}

func (r *ItemUpdateRequest) UnmarshalJSON(data []byte) error {
	type plain ItemUpdateRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*r = ItemUpdateRequest(p)
	_, r.DescriptionSet = keys["description"]
	return nil
}

// Validate returns per-field problems, or an empty map when valid
func (r *ItemUpdateRequest) Validate() map[string]string {
	problems := map[string]string{}
	if r.Title != nil {
		validateTitle(*r.Title, problems)
	}
	return problems
}

func validateTitle(title string, problems map[string]string) {
	length := utf8.RuneCountInString(title)
	if length == 0 {
		problems["title"] = "title is required"
	} else if length > maxTitleLength {
		problems["title"] = "title must be at most 200 characters"
	}
}

// SetActiveRequest is the body of PUT /api/v1/admin/users/{id}/active
type SetActiveRequest struct {
	IsActive *bool `json:"is_active"`
}
