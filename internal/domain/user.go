package domain

// User is the public profile of an account as returned by the auth endpoints.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginCredentials is the body of a login request.
type LoginCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterData is the body of an account creation request.
type RegisterData struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}
