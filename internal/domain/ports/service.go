package ports

import (
	"context"
	"io"
	"time"

	"github.com/hsdfat8/assettrack/internal/domain/models"
)

// Operation names a gated capability
type Operation string

const (
	OpTransformerRead    Operation = "transformer:read"
	OpTransformerManage  Operation = "transformer:manage"
	OpTelemetryReport    Operation = "telemetry:report"
	OpPlanRead           Operation = "plan:read"
	OpPlanCreate         Operation = "plan:create"
	OpPlanAssign         Operation = "plan:assign"
	OpPlanArchive        Operation = "plan:archive"
	OpExecutionStart     Operation = "execution:start"
	OpRecordSubmit       Operation = "record:submit"
	OpRecordRead         Operation = "record:read"
	OpReconcile          Operation = "reconciliation:perform"
	OpReconciliationRead Operation = "reconciliation:read"
	OpUserRead           Operation = "user:read"
	OpUserManage         Operation = "user:manage"
	OpReportGenerate     Operation = "report:generate"
	OpAuditRead          Operation = "audit:read"
)

// AllOperations lists every gated capability
var AllOperations = []Operation{
	OpTransformerRead, OpTransformerManage, OpTelemetryReport,
	OpPlanRead, OpPlanCreate, OpPlanAssign, OpPlanArchive,
	OpExecutionStart, OpRecordSubmit, OpRecordRead,
	OpReconcile, OpReconciliationRead,
	OpUserRead, OpUserManage, OpReportGenerate, OpAuditRead,
}

// AccessGate is the single authorization boundary consumed by every operation
type AccessGate interface {
	// Authorize returns the acting user when the role permits op and the account is active
	Authorize(ctx context.Context, userID string, op Operation) (*models.User, error)

	// Capabilities returns the fixed capability set of a role
	Capabilities(role models.Role) []Operation
}

// TransformerView is a transformer with its read-time derived state
type TransformerView struct {
	*models.Transformer
	ReconciliationStatus models.ReconciliationStatus `json:"reconciliation_status"`
	ReconciliationState  models.ReconciliationState  `json:"reconciliation_state"`
	DaysSinceReconciled  int                         `json:"days_since_reconciled"`
}

// RegisterTransformerInput carries the attributes of a new transformer
type RegisterTransformerInput struct {
	ID             string
	Name           string
	Site           string
	Latitude       float64
	Longitude      float64
	Type           models.TransformerType
	BatteryPercent int
	SignalStrength int
	InstallDate    *time.Time
	QRCode         string
	GPSID          string
}

// UpdateTransformerInput carries editable attributes; nil fields are left unchanged
type UpdateTransformerInput struct {
	Name      *string
	Site      *string
	Latitude  *float64
	Longitude *float64
	Type      *models.TransformerType
	QRCode    *string
	GPSID     *string
	Version   int64
}

// AssetService manages transformers
type AssetService interface {
	ListTransformers(ctx context.Context, callerID string, filter models.TransformerFilter, page models.Page) ([]*TransformerView, error)
	GetTransformer(ctx context.Context, callerID, id string) (*TransformerView, error)
	RegisterTransformer(ctx context.Context, callerID string, in RegisterTransformerInput) (*TransformerView, error)
	UpdateTransformer(ctx context.Context, callerID, id string, in UpdateTransformerInput) (*TransformerView, error)
	ReportTelemetry(ctx context.Context, callerID, id string, batteryPercent, signalStrength int) (*TransformerView, error)
	ArchiveTransformer(ctx context.Context, callerID, id string) error
}

// PlanView is a plan with its read-time derived status
type PlanView struct {
	*models.MaintenancePlan
	Status      models.PlanStatus `json:"status"`
	DaysOverdue int               `json:"days_overdue"`
}

// CreatePlanInput carries the attributes of a new plan
type CreatePlanInput struct {
	TransformerID string
	Name          string
	Category      string
	Recurrence    string
	AssignedTo    string
	Checklist     []string
	NextDue       time.Time
}

// SubmitRecordInput carries a Quick Maintenance Form submission. PlanID is nil for plan-less emergency work.
type SubmitRecordInput struct {
	PlanID        *string
	TransformerID string
	PerformerID   string
	Notes         string
	PhotoCount    int
	Draft         bool
	PerformedAt   *time.Time
}

// SubmitRecordResult reports what a submission changed
type SubmitRecordResult struct {
	Record *models.MaintenanceRecord `json:"record"`
	Plan   *PlanView                 `json:"plan,omitempty"`
}

// MaintenanceService runs the plan → execution → completion workflow
type MaintenanceService interface {
	CreatePlan(ctx context.Context, callerID string, in CreatePlanInput) (*PlanView, error)
	GetPlan(ctx context.Context, callerID, planID string) (*PlanView, error)
	ListPlans(ctx context.Context, callerID string, filter models.PlanFilter, page models.Page) ([]*PlanView, error)
	ListOverdue(ctx context.Context, callerID string) ([]*PlanView, error)
	AssignPlan(ctx context.Context, callerID, planID, assigneeID string) (*PlanView, error)
	ArchivePlan(ctx context.Context, callerID, planID string) error
	StartExecution(ctx context.Context, callerID, planID, performerID string) (*PlanView, error)
	SubmitRecord(ctx context.Context, callerID string, in SubmitRecordInput) (*SubmitRecordResult, error)
	UpdateDraft(ctx context.Context, callerID, recordID string, notes *string, photoCount *int) (*models.MaintenanceRecord, error)
	FinalizeDraft(ctx context.Context, callerID, recordID string) (*SubmitRecordResult, error)
	GetRecord(ctx context.Context, callerID, recordID string) (*models.MaintenanceRecord, error)
	ListHistory(ctx context.Context, callerID string, filter models.RecordFilter, page models.Page) ([]*models.MaintenanceRecord, error)
}

// LookupResult is the outcome of a QR/ID scan
type LookupResult struct {
	Transformer      *TransformerView `json:"transformer"`
	SessionExpiresAt time.Time        `json:"session_expires_at"`
}

// ConfirmInput carries the evidence of a physical verification
type ConfirmInput struct {
	TransformerID string
	ReconcilerID  string
	GPSVerified   bool
	PhotoCount    int
	Method        models.ReconciliationMethod
	Notes         string
}

// ReconciliationView is the derived reconciliation state of one transformer
type ReconciliationView struct {
	TransformerID    string                      `json:"transformer_id"`
	Status           models.ReconciliationStatus `json:"status"`
	State            models.ReconciliationState  `json:"state"`
	LastReconciledAt *time.Time                  `json:"last_reconciled_at,omitempty"`
	DaysSince        int                         `json:"days_since"`
	LatestEvent      *models.ReconciliationEvent `json:"latest_event,omitempty"`
}

// ReconciliationSummary is the reconciliation report
type ReconciliationSummary struct {
	GeneratedAt   time.Time          `json:"generated_at"`
	Site          string             `json:"site,omitempty"`
	Total         int                `json:"total"`
	UpToDate      int                `json:"up_to_date"`
	Overdue       int                `json:"overdue"`
	Missing       int                `json:"missing"`
	NotReconciled []*TransformerView `json:"not_reconciled"`
}

// ReconciliationService runs the physical verification workflow
type ReconciliationService interface {
	Lookup(ctx context.Context, callerID, qrOrID string) (*LookupResult, error)
	Confirm(ctx context.Context, callerID string, in ConfirmInput) (*models.ReconciliationEvent, error)
	Status(ctx context.Context, callerID, transformerID string) (*ReconciliationView, error)
	ListEvents(ctx context.Context, callerID string, filter models.EventFilter, page models.Page) ([]*models.ReconciliationEvent, error)
	Summary(ctx context.Context, callerID, site string) (*ReconciliationSummary, error)
}

// CreateUserInput carries the attributes of a new account
type CreateUserInput struct {
	Name       string
	Email      string
	Phone      string
	Role       string
	Department string
}

// UpdateUserInput carries editable attributes; nil fields are left unchanged
type UpdateUserInput struct {
	Name       *string
	Email      *string
	Phone      *string
	Role       *string
	Department *string
	Version    int64
}

// UserService manages accounts
type UserService interface {
	CreateUser(ctx context.Context, callerID string, in CreateUserInput) (*models.User, error)
	GetUser(ctx context.Context, callerID, userID string) (*models.User, error)
	ListUsers(ctx context.Context, callerID string, filter models.UserFilter, page models.Page) ([]*models.User, error)
	UpdateUser(ctx context.Context, callerID, userID string, in UpdateUserInput) (*models.User, error)
	SetUserStatus(ctx context.Context, callerID, userID string, status models.AccountStatus) (*models.User, error)
	RecordLogin(ctx context.Context, userID string) (*models.User, error)
}

// MaintenanceOverview summarizes plan progress
type MaintenanceOverview struct {
	TotalPlans     int     `json:"total_plans"`
	Scheduled      int     `json:"scheduled"`
	InProgress     int     `json:"in_progress"`
	Overdue        int     `json:"overdue"`
	Completed      int     `json:"completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// Dashboard holds the headline statistics
type Dashboard struct {
	GeneratedAt       time.Time                        `json:"generated_at"`
	TotalTransformers int                              `json:"total_transformers"`
	Online            int                              `json:"online"`
	OnlinePercent     float64                          `json:"online_percent"`
	ByStatus          map[models.TransformerStatus]int `json:"by_status"`
	ActiveAlerts      int                              `json:"active_alerts"`
	Maintenance       MaintenanceOverview              `json:"maintenance"`
	Reconciliation    ReconciliationSummary            `json:"reconciliation"`
}

// ReportService produces read-only aggregates
type ReportService interface {
	Dashboard(ctx context.Context, callerID string) (*Dashboard, error)
	Alerts(ctx context.Context, callerID string) ([]models.Alert, error)
	ExportHistoryCSV(ctx context.Context, callerID string, filter models.RecordFilter, w io.Writer) error
	ListChanges(ctx context.Context, callerID string, filter models.ChangeFilter, page models.Page) ([]*models.ChangeRecord, error)
}

// Services bundles every service the transport layer exposes
type Services struct {
	Gate           AccessGate
	Assets         AssetService
	Maintenance    MaintenanceService
	Reconciliation ReconciliationService
	Users          UserService
	Reports        ReportService
}
