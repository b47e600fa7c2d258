package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// CreateUser inserts user together with its opening bank balance.
// An existing email yields ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return translate(err)
		}
		balance := BankBalance{UserID: user.ID, CashBalance: InitialCashBalance}
		if err := tx.Create(&balance).Error; err != nil {
			return fmt.Errorf("create bank balance: %w", err)
		}
		return nil
	})
}

// UserByEmail looks a user up by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// UserByID looks a user up by id.
func (s *Store) UserByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// TouchLogin records a successful login.
func (s *Store) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login_at", at)
	if res.Error != nil {
		return fmt.Errorf("touch login: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
