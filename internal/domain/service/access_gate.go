package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/hsdfat8/assettrack/internal/logger"
)

// roleCapabilities is the fixed capability table. Admin holds every operation.
var roleCapabilities = map[models.Role][]ports.Operation{
	models.RoleAdmin: ports.AllOperations,
	models.RoleSupervisor: {
		ports.OpTransformerRead,
		ports.OpPlanRead,
		ports.OpPlanCreate,
		ports.OpPlanAssign,
		ports.OpPlanArchive,
		ports.OpRecordRead,
		ports.OpReconciliationRead,
		ports.OpUserRead,
		ports.OpReportGenerate,
		ports.OpAuditRead,
	},
	models.RoleTechnician: {
		ports.OpTransformerRead,
		ports.OpPlanRead,
		ports.OpExecutionStart,
		ports.OpRecordSubmit,
		ports.OpRecordRead,
		ports.OpReconcile,
		ports.OpReconciliationRead,
		ports.OpTelemetryReport,
	},
}

// accessGate implements ports.AccessGate against the user store
type accessGate struct {
	users ports.UserRepository
}

// NewAccessGate creates the role-based access gate
func NewAccessGate(users ports.UserRepository) ports.AccessGate {
	return &accessGate{users: users}
}

func (g *accessGate) Authorize(ctx context.Context, userID string, op ports.Operation) (*models.User, error) {
	if userID == "" {
		logger.AccessDeniedTotal.WithLabelValues(string(op), "anonymous").Inc()
		return nil, models.Forbidden("caller identity is required for %s", op)
	}

	user, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			logger.AccessDeniedTotal.WithLabelValues(string(op), "unknown").Inc()
			return nil, models.Forbidden("unknown user %q", userID)
		}
		return nil, fmt.Errorf("failed to load caller: %w", err)
	}

	if !user.Active() {
		logger.AccessDeniedTotal.WithLabelValues(string(op), string(user.Role)).Inc()
		return nil, models.Forbidden("user %q is inactive", userID)
	}
	if !hasCapability(user.Role, op) {
		logger.AccessDeniedTotal.WithLabelValues(string(op), string(user.Role)).Inc()
		return nil, models.Forbidden("role %s may not perform %s", user.Role, op)
	}
	return user, nil
}

func (g *accessGate) Capabilities(role models.Role) []ports.Operation {
	caps := roleCapabilities[role]
	out := make([]ports.Operation, len(caps))
	copy(out, caps)
	return out
}

func hasCapability(role models.Role, op ports.Operation) bool {
	for _, c := range roleCapabilities[role] {
		if c == op {
			return true
		}
	}
	return false
}

// actingAs enforces that technicians only act as themselves
func actingAs(caller *models.User, performerID string) error {
	if caller.Role == models.RoleTechnician && performerID != caller.ID {
		return models.Forbidden("technician %q may not act on behalf of %q", caller.ID, performerID)
	}
	return nil
}

// assignedTo enforces that technicians only touch plans assigned to them
func assignedTo(caller *models.User, plan *models.MaintenancePlan) error {
	if caller.Role == models.RoleTechnician && plan.AssignedTo != caller.ID {
		return models.Forbidden("plan %q is not assigned to technician %q", plan.ID, caller.ID)
	}
	return nil
}
