package auth

type LoginRequest struct {
	Username   string `json:"username" binding:"required,min=3"`
	Password   string `json:"password" binding:"required,min=6"`
	RememberMe bool   `json:"remember_me"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Username    string `json:"username"`
	Message     string `json:"message"`
}

type RefreshResponse struct {
	AccessToken string `json:"access_token"`
	Message     string `json:"message"`
}

type TokenVerificationResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Message  string `json:"message"`
}

type SessionInfoResponse struct {
	ActiveTokens   int64 `json:"active_tokens"`
	TotalRotations int64 `json:"total_rotations"`
}
