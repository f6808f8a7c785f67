package main

import (
	common_models "salescrm/internal/common/models"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/company"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/customfield"
	"salescrm/internal/features/deal"
	"salescrm/internal/features/pipeline"
	"salescrm/internal/features/rollup"
	"salescrm/internal/features/tag"
	"salescrm/internal/features/target"
	"salescrm/internal/features/warehouse"
	"salescrm/internal/realtime"
)

// Features depend on small consumer-side interfaces; these constructors
// bind them to the concrete services.

func newPublisher(hub *realtime.Hub) common_models.Publisher {
	return hub
}

func newTargetChecker(registry *target.Registry) common_models.TargetChecker {
	return registry
}

// newCleaners lists every store holding rows keyed by (kind, id)
func newCleaners(assignments tag.AssignmentService, fields customfield.CustomFieldService, rollups *rollup.RollupService) common_models.Cleaners {
	return common_models.Cleaners{assignments, fields, rollups}
}

func newCompanyUnlinkers(contacts contact.ContactRepository, deals deal.DealRepository) company.CompanyUnlinkers {
	return company.CompanyUnlinkers{contacts, deals}
}

func newContactRemovers(deals deal.DealService, activities activity.ActivityService) contact.RelatedRemovers {
	return contact.RelatedRemovers{deals, activities}
}

func newDealActivityRemover(activities activity.ActivityService) deal.ActivityRemover {
	return activities
}

func newCompanyActivityRemover(activities activity.ActivityService) company.ActivityRemover {
	return activities
}

func newStageOrderer(pipelines pipeline.PipelineService) deal.StageOrderer {
	return pipelines
}

func newExporter(w *warehouse.Warehouse) rollup.Exporter {
	return w
}

func newCapturer(rollups *rollup.RollupService) rollup.Capturer {
	return rollups
}
