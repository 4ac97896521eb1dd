package mongodb

import (
	"github.com/hsdfat8/assettrack/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
)

func transformerQuery(f models.TransformerFilter) bson.M {
	filter := bson.M{}
	notArchived(filter, f.IncludeArchived)
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Site != "" {
		filter["site"] = equalFold(f.Site)
	}
	if f.SearchText != "" {
		filter["$or"] = bson.A{
			bson.M{"name": containsFold(f.SearchText)},
			bson.M{"site": containsFold(f.SearchText)},
			bson.M{"_id": containsFold(f.SearchText)},
		}
	}
	return filter
}

func planQuery(f models.PlanFilter) bson.M {
	filter := bson.M{}
	notArchived(filter, f.IncludeArchived)
	if f.TransformerID != "" {
		filter["transformer_id"] = f.TransformerID
	}
	if f.AssignedTo != "" {
		filter["assigned_to"] = f.AssignedTo
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	return filter
}

func recordQuery(f models.RecordFilter) bson.M {
	filter := bson.M{}
	notArchived(filter, f.IncludeArchived)
	if f.TransformerID != "" {
		filter["transformer_id"] = f.TransformerID
	}
	if f.PlanID != "" {
		filter["plan_id"] = f.PlanID
	}
	if f.PerformedBy != "" {
		filter["performed_by"] = f.PerformedBy
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	timeRange(filter, "performed_at", f.From, f.To)
	return filter
}

func eventQuery(f models.EventFilter) bson.M {
	filter := bson.M{}
	if f.TransformerID != "" {
		filter["transformer_id"] = f.TransformerID
	}
	if f.ReconciledBy != "" {
		filter["reconciled_by"] = f.ReconciledBy
	}
	timeRange(filter, "reconciled_at", f.From, f.To)
	return filter
}

func userQuery(f models.UserFilter) bson.M {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.SearchText != "" {
		filter["$or"] = bson.A{
			bson.M{"name": containsFold(f.SearchText)},
			bson.M{"email": containsFold(f.SearchText)},
		}
	}
	return filter
}

func changeQuery(f models.ChangeFilter) bson.M {
	filter := bson.M{}
	if f.Entity != "" {
		filter["entity"] = f.Entity
	}
	if f.EntityID != "" {
		filter["entity_id"] = f.EntityID
	}
	if f.ChangedBy != "" {
		filter["changed_by"] = f.ChangedBy
	}
	timeRange(filter, "changed_at", f.From, f.To)
	return filter
}

// Sort orders; append-only logs break ties on their time-ordered ids
var (
	byID          = bson.D{{Key: "_id", Value: 1}}
	byNextDue     = bson.D{{Key: "next_due", Value: 1}, {Key: "_id", Value: 1}}
	byPerformedAt = bson.D{{Key: "performed_at", Value: -1}, {Key: "_id", Value: 1}}
	byReconciled  = bson.D{{Key: "reconciled_at", Value: -1}, {Key: "_id", Value: -1}}
	byName        = bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}
	byChangedAt   = bson.D{{Key: "changed_at", Value: -1}, {Key: "_id", Value: -1}}
)
