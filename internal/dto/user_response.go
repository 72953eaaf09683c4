package dto

import "github.com/SscSPs/insurance_platform/internal/core/domain"

type UserResponse struct {
	UserID   string `json:"userID"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name"`
}

func ToUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		UserID:   user.UserID,
		Username: user.Username,
		Email:    user.Email,
		Name:     user.Name,
	}
}
