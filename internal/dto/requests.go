package dto

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// GoogleLoginRequest carries a Google ID token
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// LinkedInLoginRequest carries a LinkedIn authorization code
type LinkedInLoginRequest struct {
	Code string `json:"code" binding:"required"`
}

// RefreshRequest carries a refresh token when no cookie is sent
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// PasswordResetRequest starts the password reset flow
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ChangePasswordRequest completes the password reset flow
type ChangePasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}
