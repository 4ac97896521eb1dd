package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

// userService implements ports.UserService
type userService struct {
	*core
}

func (s *userService) CreateUser(ctx context.Context, callerID string, in ports.CreateUserInput) (*models.User, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpUserManage)
	if err != nil {
		return nil, err
	}

	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &models.User{
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:      strings.TrimSpace(in.Phone),
		Role:       role,
		Department: strings.TrimSpace(in.Department),
		Status:     models.AccountActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := models.ValidateUser(u); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, func(tx ports.Transaction) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		return s.appendChange(ctx, tx, models.EntityUser, u.ID, models.ChangeTypeCreate, caller.ID, u.Version, "created "+string(u.Role))
	})
	if err != nil {
		return nil, err
	}

	s.getLogger().Infow("User created", "user_id", u.ID, "role", u.Role, "caller", caller.ID)
	return u, nil
}

func (s *userService) GetUser(ctx context.Context, callerID, userID string) (*models.User, error) {
	_, err := s.gate.Authorize(ctx, callerID, ports.OpUserRead)
	if err == nil {
		return s.store.Users().GetByID(ctx, userID)
	}
	if callerID != userID || !errors.Is(err, models.ErrForbidden) {
		return nil, err
	}

	// every active account may read itself
	self, lookupErr := s.store.Users().GetByID(ctx, userID)
	if lookupErr != nil || !self.Active() {
		return nil, err
	}
	return self, nil
}

func (s *userService) ListUsers(ctx context.Context, callerID string, filter models.UserFilter, page models.Page) ([]*models.User, error) {
	if _, err := s.gate.Authorize(ctx, callerID, ports.OpUserRead); err != nil {
		return nil, err
	}
	users, err := s.store.Users().List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, callerID, userID string, in ports.UpdateUserInput) (*models.User, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpUserManage)
	if err != nil {
		return nil, err
	}

	var updated *models.User
	err = s.transition(ctx, ports.OpUserManage, "", func(tx ports.Transaction) error {
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := checkVersion(models.EntityUser, userID, in.Version, u.Version); err != nil {
			return err
		}

		if in.Name != nil {
			u.Name = strings.TrimSpace(*in.Name)
		}
		if in.Email != nil {
			u.Email = strings.ToLower(strings.TrimSpace(*in.Email))
		}
		if in.Phone != nil {
			u.Phone = strings.TrimSpace(*in.Phone)
		}
		if in.Department != nil {
			u.Department = strings.TrimSpace(*in.Department)
		}
		if in.Role != nil {
			role, err := models.ParseRole(*in.Role)
			if err != nil {
				return err
			}
			if u.ID == caller.ID && role != u.Role {
				return models.InvalidState(models.EntityUser, u.ID, "users may not change their own role")
			}
			u.Role = role
		}
		if err := models.ValidateUser(u); err != nil {
			return err
		}

		u.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return s.appendChange(ctx, tx, models.EntityUser, u.ID, models.ChangeTypeUpdate, caller.ID, u.Version, "profile updated")
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *userService) SetUserStatus(ctx context.Context, callerID, userID string, status models.AccountStatus) (*models.User, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpUserManage)
	if err != nil {
		return nil, err
	}
	if status != models.AccountActive && status != models.AccountInactive {
		return nil, models.Validation("unknown account status %q", status)
	}
	if userID == caller.ID && status == models.AccountInactive {
		return nil, models.InvalidState(models.EntityUser, userID, "users may not deactivate themselves")
	}

	var updated *models.User
	err = s.transition(ctx, ports.OpUserManage, "", func(tx ports.Transaction) error {
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.Status == status {
			updated = u
			return nil
		}
		u.Status = status
		u.UpdatedAt = s.now()
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return s.appendChange(ctx, tx, models.EntityUser, u.ID, models.ChangeTypeUpdate, caller.ID, u.Version, "status "+string(status))
	})
	if err != nil {
		return nil, err
	}

	s.getLogger().Infow("User status changed", "user_id", userID, "status", status, "caller", caller.ID)
	return updated, nil
}

// RecordLogin stamps the last login of an active account. Called by the upstream identity hook.
func (s *userService) RecordLogin(ctx context.Context, userID string) (*models.User, error) {
	var updated *models.User
	err := s.transition(ctx, ports.OpUserRead, "", func(tx ports.Transaction) error {
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return models.Forbidden("unknown user %q", userID)
			}
			return err
		}
		if !u.Active() {
			return models.Forbidden("user %q is inactive", userID)
		}
		now := s.now()
		u.LastLogin = &now
		u.UpdatedAt = now
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return s.appendChange(ctx, tx, models.EntityUser, u.ID, models.ChangeTypeUpdate, u.ID, u.Version, "login")
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
