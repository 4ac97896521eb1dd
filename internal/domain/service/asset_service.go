package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hsdfat8/assettrack/internal/domain/logic"
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"github.com/hsdfat8/assettrack/internal/domain/ports"
)

// assetService implements ports.AssetService
type assetService struct {
	*core
}

func (s *assetService) ListTransformers(ctx context.Context, callerID string, filter models.TransformerFilter, page models.Page) ([]*ports.TransformerView, error) {
	if _, err := s.gate.Authorize(ctx, callerID, ports.OpTransformerRead); err != nil {
		return nil, err
	}

	items, err := s.store.Transformers().List(ctx, filter, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list transformers: %w", err)
	}
	now := s.now()
	views := make([]*ports.TransformerView, 0, len(items))
	for _, t := range items {
		views = append(views, s.transformerView(t, callerID, now))
	}
	return views, nil
}

func (s *assetService) GetTransformer(ctx context.Context, callerID, id string) (*ports.TransformerView, error) {
	if _, err := s.gate.Authorize(ctx, callerID, ports.OpTransformerRead); err != nil {
		return nil, err
	}
	t, err := s.store.Transformers().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transformerView(t, callerID, s.now()), nil
}

func (s *assetService) RegisterTransformer(ctx context.Context, callerID string, in ports.RegisterTransformerInput) (*ports.TransformerView, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpTransformerManage)
	if err != nil {
		return nil, err
	}
	s.getLogger().Infow("RegisterTransformer started", "transformer_id", in.ID, "caller", caller.ID)

	now := s.now()
	t := &models.Transformer{
		ID:             strings.TrimSpace(in.ID),
		Name:           strings.TrimSpace(in.Name),
		Site:           strings.TrimSpace(in.Site),
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Type:           in.Type,
		BatteryPercent: in.BatteryPercent,
		SignalStrength: in.SignalStrength,
		InstallDate:    in.InstallDate,
		QRCode:         strings.TrimSpace(in.QRCode),
		GPSID:          strings.TrimSpace(in.GPSID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t.Type == "" {
		t.Type = models.TransformerTypeDistribution
	}
	if t.QRCode == "" {
		t.QRCode = t.ID
	}
	if err := models.ValidateTransformer(t); err != nil {
		return nil, err
	}
	t.Status = logic.TelemetryStatus(t.BatteryPercent, t.SignalStrength)

	err = s.transition(ctx, ports.OpTransformerManage, t.ID, func(tx ports.Transaction) error {
		row := t.Clone()
		if err := tx.Transformers().Create(ctx, row); err != nil {
			return err
		}
		t = row
		return s.appendChange(ctx, tx, models.EntityTransformer, row.ID, models.ChangeTypeCreate, caller.ID, row.Version, "registered")
	})
	if err != nil {
		s.getLogger().Warnw("RegisterTransformer failed", "transformer_id", in.ID, "error", err)
		return nil, err
	}

	s.getLogger().Infow("RegisterTransformer completed", "transformer_id", t.ID, "status", t.Status)
	return s.transformerView(t, callerID, now), nil
}

func (s *assetService) UpdateTransformer(ctx context.Context, callerID, id string, in ports.UpdateTransformerInput) (*ports.TransformerView, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpTransformerManage)
	if err != nil {
		return nil, err
	}

	var updated *models.Transformer
	err = s.transition(ctx, ports.OpTransformerManage, id, func(tx ports.Transaction) error {
		t, err := liveTransformer(ctx, tx.Transformers(), id)
		if err != nil {
			return err
		}
		if err := checkVersion(models.EntityTransformer, id, in.Version, t.Version); err != nil {
			return err
		}

		var changed []string
		if in.Name != nil {
			t.Name = strings.TrimSpace(*in.Name)
			changed = append(changed, "name")
		}
		if in.Site != nil {
			t.Site = strings.TrimSpace(*in.Site)
			changed = append(changed, "site")
		}
		if in.Latitude != nil {
			t.Latitude = *in.Latitude
			changed = append(changed, "latitude")
		}
		if in.Longitude != nil {
			t.Longitude = *in.Longitude
			changed = append(changed, "longitude")
		}
		if in.Type != nil {
			t.Type = *in.Type
			changed = append(changed, "type")
		}
		if in.QRCode != nil {
			t.QRCode = strings.TrimSpace(*in.QRCode)
			changed = append(changed, "qr_code")
		}
		if in.GPSID != nil {
			t.GPSID = strings.TrimSpace(*in.GPSID)
			changed = append(changed, "gps_id")
		}
		if err := models.ValidateTransformer(t); err != nil {
			return err
		}

		t.UpdatedAt = s.now()
		if err := tx.Transformers().Update(ctx, t); err != nil {
			return err
		}
		updated = t
		return s.appendChange(ctx, tx, models.EntityTransformer, id, models.ChangeTypeUpdate, caller.ID, t.Version,
			"updated "+strings.Join(changed, ","))
	})
	if err != nil {
		return nil, err
	}
	return s.transformerView(updated, callerID, s.now()), nil
}

func (s *assetService) ReportTelemetry(ctx context.Context, callerID, id string, batteryPercent, signalStrength int) (*ports.TransformerView, error) {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpTelemetryReport)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateTelemetry(batteryPercent, signalStrength); err != nil {
		return nil, err
	}

	var updated *models.Transformer
	err = s.transition(ctx, ports.OpTelemetryReport, id, func(tx ports.Transaction) error {
		t, err := liveTransformer(ctx, tx.Transformers(), id)
		if err != nil {
			return err
		}
		t.BatteryPercent = batteryPercent
		t.SignalStrength = signalStrength
		// maintenance is left only through the completion path
		if t.Status != models.TransformerStatusMaintenance {
			t.Status = logic.TelemetryStatus(batteryPercent, signalStrength)
		}
		t.UpdatedAt = s.now()
		if err := tx.Transformers().Update(ctx, t); err != nil {
			return err
		}
		updated = t
		return s.appendChange(ctx, tx, models.EntityTransformer, id, models.ChangeTypeUpdate, caller.ID, t.Version,
			fmt.Sprintf("telemetry battery=%d signal=%d", batteryPercent, signalStrength))
	})
	if err != nil {
		return nil, err
	}

	s.getLogger().Debugw("Telemetry recorded", "transformer_id", id, "battery", batteryPercent, "signal", signalStrength, "status", updated.Status)
	return s.transformerView(updated, callerID, s.now()), nil
}

func (s *assetService) ArchiveTransformer(ctx context.Context, callerID, id string) error {
	caller, err := s.gate.Authorize(ctx, callerID, ports.OpTransformerManage)
	if err != nil {
		return err
	}
	s.getLogger().Infow("ArchiveTransformer started", "transformer_id", id, "caller", caller.ID)

	err = s.transition(ctx, ports.OpTransformerManage, id, func(tx ports.Transaction) error {
		t, err := liveTransformer(ctx, tx.Transformers(), id)
		if err != nil {
			return err
		}
		active, err := tx.Plans().CountActiveByTransformer(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count plans: %w", err)
		}
		if active > 0 {
			return models.InvalidState(models.EntityTransformer, id, "%d active plans must be archived first", active)
		}
		if err := tx.Transformers().Archive(ctx, id); err != nil {
			return err
		}
		return s.appendChange(ctx, tx, models.EntityTransformer, id, models.ChangeTypeArchive, caller.ID, t.Version+1, "archived")
	})
	if err != nil {
		return err
	}

	s.getLogger().Infow("ArchiveTransformer completed", "transformer_id", id)
	return nil
}
