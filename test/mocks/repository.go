package mocks

import "github.com/edumate/progression/internal/models"

// MockUserRepository is a simple mock for user repository
type MockUserRepository struct {
	GetByIDFunc       func(id uint) (*models.User, error)
	GetByUsernameFunc func(username string) (*models.User, error)
	ListFunc          func() ([]models.User, error)
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(id)
	}
	return nil, nil
}

func (m *MockUserRepository) GetByUsername(username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(username)
	}
	return nil, nil
}

func (m *MockUserRepository) List() ([]models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc()
	}
	return []models.User{}, nil
}
