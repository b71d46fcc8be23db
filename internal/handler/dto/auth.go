package dto

// SignupRequest represents the request body for creating an account.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for logging in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the session token.
type LoginResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	JWTToken string `json:"jwtToken"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}
