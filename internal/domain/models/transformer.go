package models

import (
	"strings"
	"time"
)

// TransformerStatus represents the operational status of a transformer
type TransformerStatus string

const (
	TransformerStatusOnline      TransformerStatus = "online"
	TransformerStatusAlert       TransformerStatus = "alert"
	TransformerStatusMaintenance TransformerStatus = "maintenance"
	TransformerStatusOffline     TransformerStatus = "offline"
)

// Valid reports whether s is a known transformer status
func (s TransformerStatus) Valid() bool {
	switch s {
	case TransformerStatusOnline, TransformerStatusAlert, TransformerStatusMaintenance, TransformerStatusOffline:
		return true
	}
	return false
}

// TransformerType is the class of transformer
type TransformerType string

const (
	TransformerTypeDistribution TransformerType = "Distribution"
	TransformerTypePower        TransformerType = "Power"
)

// Valid reports whether t is a known transformer type
func (t TransformerType) Valid() bool {
	return t == TransformerTypeDistribution || t == TransformerTypePower
}

// Telemetry limits
const (
	MaxBatteryPercent = 100
	MaxSignalStrength = 5
)

// Transformer is the aggregate root every plan, record and event refers to
type Transformer struct {
	ID               string            `json:"id" db:"id" bson:"_id"`
	Name             string            `json:"name" db:"name" bson:"name"`
	Site             string            `json:"site" db:"site" bson:"site"`
	Latitude         float64           `json:"latitude" db:"latitude" bson:"latitude"`
	Longitude        float64           `json:"longitude" db:"longitude" bson:"longitude"`
	Type             TransformerType   `json:"type" db:"type" bson:"type"`
	Status           TransformerStatus `json:"status" db:"status" bson:"status"`
	BatteryPercent   int               `json:"battery_percent" db:"battery_percent" bson:"battery_percent"`
	SignalStrength   int               `json:"signal_strength" db:"signal_strength" bson:"signal_strength"`
	InstallDate      *time.Time        `json:"install_date,omitempty" db:"install_date" bson:"install_date,omitempty"`
	LastMaintenance  *time.Time        `json:"last_maintenance,omitempty" db:"last_maintenance" bson:"last_maintenance,omitempty"`
	LastReconciledAt *time.Time        `json:"last_reconciled_at,omitempty" db:"last_reconciled_at" bson:"last_reconciled_at,omitempty"`
	QRCode           string            `json:"qr_code" db:"qr_code" bson:"qr_code"`
	GPSID            string            `json:"gps_id" db:"gps_id" bson:"gps_id"`
	Archived         bool              `json:"archived" db:"archived" bson:"archived"`
	ArchivedAt       *time.Time        `json:"archived_at,omitempty" db:"archived_at" bson:"archived_at,omitempty"`
	Version          int64             `json:"version" db:"version" bson:"version"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// Clone returns a deep copy of the transformer
func (t *Transformer) Clone() *Transformer {
	c := *t
	c.InstallDate = cloneTime(t.InstallDate)
	c.LastMaintenance = cloneTime(t.LastMaintenance)
	c.LastReconciledAt = cloneTime(t.LastReconciledAt)
	c.ArchivedAt = cloneTime(t.ArchivedAt)
	return &c
}

// ValidateTransformer checks the user-supplied attributes of a transformer
func ValidateTransformer(t *Transformer) error {
	if strings.TrimSpace(t.ID) == "" {
		return Validation("transformer id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return Validation("transformer name is required")
	}
	if !t.Type.Valid() {
		return Validation("unknown transformer type %q", t.Type)
	}
	if t.Latitude < -90 || t.Latitude > 90 || t.Longitude < -180 || t.Longitude > 180 {
		return Validation("coordinates out of range: %f,%f", t.Latitude, t.Longitude)
	}
	return ValidateTelemetry(t.BatteryPercent, t.SignalStrength)
}

// ValidateTelemetry checks a battery/signal reading
func ValidateTelemetry(battery, signal int) error {
	if battery < 0 || battery > MaxBatteryPercent {
		return Validation("battery percent %d out of range 0-%d", battery, MaxBatteryPercent)
	}
	if signal < 0 || signal > MaxSignalStrength {
		return Validation("signal strength %d out of range 0-%d", signal, MaxSignalStrength)
	}
	return nil
}

// TransformerFilter selects transformers
type TransformerFilter struct {
	Status          TransformerStatus
	SearchText      string
	Site            string
	IncludeArchived bool
}

// Matches reports whether the transformer satisfies the filter
func (f TransformerFilter) Matches(t *Transformer) bool {
	if t.Archived && !f.IncludeArchived {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Site != "" && !strings.EqualFold(t.Site, f.Site) {
		return false
	}
	if f.SearchText != "" && !containsFold(t.Name, f.SearchText) && !containsFold(t.Site, f.SearchText) && !containsFold(t.ID, f.SearchText) {
		return false
	}
	return true
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
