package dto

import "github.com/yukikurage/umsebenzi/internal/models"

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}

func optionalUser(user models.User) *UserDTO {
	if user.ID == 0 {
		return nil
	}
	u := ToUserDTO(user)
	return &u
}
