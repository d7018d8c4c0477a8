package dto

import (
	"time"

	domainuser "github.com/slogsolutions/WebBuyer/internal/domain/user"
)

type UserProfile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone,omitempty"`
	Roles            []string  `json:"roles"`
	IdentityVerified bool      `json:"identity_verified"`
	PhoneVerified    *bool     `json:"phone_verified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type AuthResponse struct {
	User  UserProfile `json:"user"`
	Token string      `json:"token"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	profile := UserProfile{
		ID:               string(user.ID),
		Email:            user.Email,
		Name:             user.Name,
		Phone:            user.Phone,
		Roles:            roles,
		IdentityVerified: user.IdentityVerified,
		CreatedAt:        user.CreatedAt,
		UpdatedAt:        user.UpdatedAt,
	}
	if user.PhoneVerified != nil {
		verified := *user.PhoneVerified
		profile.PhoneVerified = &verified
	}
	return profile
}

func NewAuthResponse(user *domainuser.User, token string) AuthResponse {
	return AuthResponse{
		User:  MapUserProfile(user),
		Token: token,
	}
}
