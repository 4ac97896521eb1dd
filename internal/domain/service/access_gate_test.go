package service

import (
	"errors"
	"testing"

	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessGate_Capabilities(t *testing.T) {
	f := newFixture(t)
	gate := f.svc.Gate

	tests := []struct {
		name    string
		userID  string
		op      ports.Operation
		allowed bool
	}{
		{"admin manages transformers", adminID, ports.OpTransformerManage, true},
		{"admin manages users", adminID, ports.OpUserManage, true},
		{"admin reads audit trail", adminID, ports.OpAuditRead, true},
		{"supervisor creates plans", supervisorID, ports.OpPlanCreate, true},
		{"supervisor assigns plans", supervisorID, ports.OpPlanAssign, true},
		{"supervisor generates reports", supervisorID, ports.OpReportGenerate, true},
		{"supervisor reads audit trail", supervisorID, ports.OpAuditRead, true},
		{"technician cannot read audit trail", techID, ports.OpAuditRead, false},
		{"supervisor cannot manage users", supervisorID, ports.OpUserManage, false},
		{"supervisor cannot start execution", supervisorID, ports.OpExecutionStart, false},
		{"supervisor cannot register transformers", supervisorID, ports.OpTransformerManage, false},
		{"technician reconciles", techID, ports.OpReconcile, true},
		{"technician submits records", techID, ports.OpRecordSubmit, true},
		{"technician reports telemetry", techID, ports.OpTelemetryReport, true},
		{"technician cannot create plans", techID, ports.OpPlanCreate, false},
		{"technician cannot manage users", techID, ports.OpUserManage, false},
		{"technician cannot generate reports", techID, ports.OpReportGenerate, false},
		{"inactive technician cannot read", inactiveID, ports.OpTransformerRead, false},
		{"unknown user", "99", ports.OpTransformerRead, false},
		{"anonymous caller", "", ports.OpTransformerRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := gate.Authorize(f.ctx, tt.userID, tt.op)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.userID, user.ID)
				return
			}
			assert.True(t, errors.Is(err, models.ErrForbidden), "expected Forbidden, got %v", err)
			assert.Nil(t, user)
		})
	}
}

func TestAccessGate_AdminHoldsEveryOperation(t *testing.T) {
	f := newFixture(t)
	for _, op := range ports.AllOperations {
		_, err := f.svc.Gate.Authorize(f.ctx, adminID, op)
		assert.NoError(t, err, op)
	}
	assert.ElementsMatch(t, ports.AllOperations, f.svc.Gate.Capabilities(models.RoleAdmin))
	assert.Empty(t, f.svc.Gate.Capabilities(models.Role("guest")))
}

func TestAccessGate_CapabilitiesAreCopies(t *testing.T) {
	f := newFixture(t)
	caps := f.svc.Gate.Capabilities(models.RoleTechnician)
	caps[0] = ports.OpUserManage

	_, err := f.svc.Gate.Authorize(f.ctx, techID, ports.OpUserManage)
	assert.True(t, errors.Is(err, models.ErrForbidden))
}

func TestTechnicianCreateUserAlwaysForbidden(t *testing.T) {
	f := newFixture(t)

	inputs := []ports.CreateUserInput{
		{Name: "Kiran Joshi", Email: "kiran.joshi@company.com", Role: "technician", Department: "Field Operations"},
		{Name: "", Email: "not-an-email", Role: "overlord"},
		{},
	}
	for _, in := range inputs {
		_, err := f.svc.Users.CreateUser(f.ctx, techID, in)
		assert.True(t, errors.Is(err, models.ErrForbidden), "input %+v: got %v", in, err)
	}
}

func TestAuthorizationRunsBeforeValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Assets.RegisterTransformer(f.ctx, supervisorID, ports.RegisterTransformerInput{})
	assert.True(t, errors.Is(err, models.ErrForbidden))

	_, err = f.svc.Maintenance.CreatePlan(f.ctx, techID, ports.CreatePlanInput{})
	assert.True(t, errors.Is(err, models.ErrForbidden))

	_, err = f.svc.Reconciliation.Confirm(f.ctx, inactiveID, ports.ConfirmInput{PhotoCount: -1})
	assert.True(t, errors.Is(err, models.ErrForbidden))
}
