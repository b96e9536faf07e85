package seeds

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/pushp314/hackarena-backend/internal/database"
	"github.com/pushp314/hackarena-backend/internal/models"
)

// GetOrCreateUser returns the user with the given username, creating it if needed.
func GetOrCreateUser(username, name string, role models.Role) (models.User, error) {
	var user models.User
	err := database.DB.Where("username = ?", username).First(&user).Error
	if err == nil {
		log.Printf("   User found: %s", user.Username)
		return user, nil
	}

	user = models.User{
		ID:        uuid.New().String(),
		Username:  username,
		Name:      name,
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return models.User{}, err
	}

	log.Printf("   User created: %s (%s)", user.Username, user.Role)
	return user, nil
}
