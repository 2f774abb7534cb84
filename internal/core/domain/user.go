package domain

type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID           string   `json:"_id"`
	AuthID       string   `json:"auth0Id"`
	Email        string   `json:"email"`
	Name         string   `json:"name,omitempty"`
	AddressLine1 string   `json:"addressLine1,omitempty"`
	City         string   `json:"city,omitempty"`
	Country      string   `json:"country,omitempty"`
	Role         UserRole `json:"role"`
}
