package models

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDomainErrorKinds(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      error
		retryable bool
	}{
		{"not found", NotFound(EntityTransformer, "TR-404"), ErrNotFound, false},
		{"validation", Validation("checklist must contain at least one task"), ErrValidation, false},
		{"invalid state", InvalidState(EntityMaintenancePlan, "1", "plan is completed"), ErrInvalidState, false},
		{"forbidden", Forbidden("role technician may not create users"), ErrForbidden, false},
		{"version conflict", VersionConflict(EntityUser, "3", 2), ErrVersionConflict, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("failed to run operation: %w", tt.err)
			if !errors.Is(wrapped, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.kind)
			}
			if KindOf(wrapped) != tt.kind {
				t.Errorf("KindOf = %v, want %v", KindOf(wrapped), tt.kind)
			}
			if IsRetryable(wrapped) != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", IsRetryable(wrapped), tt.retryable)
			}
		})
	}

	if KindOf(errors.New("connection reset")) != nil {
		t.Error("infrastructure errors carry no kind")
	}
}

func TestDomainErrorMessage(t *testing.T) {
	err := NotFound(EntityTransformer, "TR-404")
	if got, want := err.Error(), `not found: transformer "TR-404"`; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTransformerFilter(t *testing.T) {
	tr := &Transformer{ID: "TR-001", Name: "TR-001 Pune", Site: "Pune Substation", Status: TransformerStatusOnline}

	cases := []struct {
		filter TransformerFilter
		want   bool
	}{
		{TransformerFilter{}, true},
		{TransformerFilter{SearchText: "pune"}, true},
		{TransformerFilter{SearchText: "SUBSTATION"}, true},
		{TransformerFilter{SearchText: "nashik"}, false},
		{TransformerFilter{Status: TransformerStatusAlert}, false},
		{TransformerFilter{Status: TransformerStatusOnline, Site: "pune substation"}, true},
	}
	for i, c := range cases {
		if got := c.filter.Matches(tr); got != c.want {
			t.Errorf("case %d: Matches = %v, want %v", i, got, c.want)
		}
	}

	tr.Archived = true
	if (TransformerFilter{}).Matches(tr) {
		t.Error("archived transformers are hidden by default")
	}
	if !(TransformerFilter{IncludeArchived: true}).Matches(tr) {
		t.Error("IncludeArchived must reveal archived transformers")
	}
}

func TestRecordFilterDateRange(t *testing.T) {
	planID := "1"
	rec := &MaintenanceRecord{TransformerID: "TR-001", PlanID: &planID, PerformedAt: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	before := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	if !(RecordFilter{TransformerID: "TR-001", PlanID: "1", From: &from, To: &to}).Matches(rec) {
		t.Error("record inside range must match")
	}
	if (RecordFilter{To: &before}).Matches(rec) {
		t.Error("record after range end must not match")
	}
	if (RecordFilter{PlanID: "2"}).Matches(rec) {
		t.Error("record of another plan must not match")
	}
}

func TestValidateChecklist(t *testing.T) {
	if err := ValidateChecklist(nil); !errors.Is(err, ErrValidation) {
		t.Errorf("empty checklist: %v", err)
	}
	if err := ValidateChecklist([]string{"Visual inspection", "  "}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank task: %v", err)
	}
	if err := ValidateChecklist([]string{"Visual inspection", "Oil level check"}); err != nil {
		t.Errorf("valid checklist: %v", err)
	}
}

func TestValidateUser(t *testing.T) {
	u := &User{Name: "Sneha Desai", Email: "sneha.desai@company.com", Role: RoleTechnician, Status: AccountActive}
	if err := ValidateUser(u); err != nil {
		t.Fatalf("valid user: %v", err)
	}
	u.Email = "not-an-email"
	if err := ValidateUser(u); !errors.Is(err, ErrValidation) {
		t.Errorf("bad email: %v", err)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if got := Paginate(items, Page{Offset: 1, Limit: 2}); len(got) != 2 || got[0] != 2 {
		t.Errorf("Paginate = %v", got)
	}
	if got := Paginate(items, Page{Offset: 10, Limit: 2}); len(got) != 0 {
		t.Errorf("offset past end = %v", got)
	}
	if got := Paginate(items, All); len(got) != 5 {
		t.Errorf("unbounded page = %v", got)
	}
	if p := (Page{Offset: -3, Limit: 5000}).Normalize(); p.Offset != 0 || p.Limit != MaxPageLimit {
		t.Errorf("Normalize = %+v", p)
	}
}
