package apiclient

import (
	"context"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// ServiceTypesAPI manages top-level service types (a.k.a. category types).
type ServiceTypesAPI struct {
	resource[domain.ServiceType, domain.ServiceTypeInput]
}

// CategoriesAPI manages service categories.
type CategoriesAPI struct {
	resource[domain.ServiceCategory, domain.ServiceCategoryInput]
	byType string
}

// GetByType lists the categories of a service type; empty when it has none.
func (a *CategoriesAPI) GetByType(ctx context.Context, typeID int64) ([]domain.ServiceCategory, error) {
	return a.children(ctx, "by_type", a.byType, "typeId", typeID)
}

// ServicesAPI manages services.
type ServicesAPI struct {
	resource[domain.Service, domain.ServiceInput]
	byType     string
	byCategory string
}

// GetByType lists services whose category belongs to the given type.
func (a *ServicesAPI) GetByType(ctx context.Context, typeID int64) ([]domain.Service, error) {
	return a.children(ctx, "by_type", a.byType, "typeId", typeID)
}

// GetByCategory lists services of one category.
func (a *ServicesAPI) GetByCategory(ctx context.Context, categoryID int64) ([]domain.Service, error) {
	return a.children(ctx, "by_category", a.byCategory, "categoryId", categoryID)
}

// PlansAPI manages subscription plans.
type PlansAPI struct {
	resource[domain.SubscriptionPlan, domain.SubscriptionPlanInput]
	byService string
}

// GetByService lists the plans of one service.
func (a *PlansAPI) GetByService(ctx context.Context, serviceID int64) ([]domain.SubscriptionPlan, error) {
	return a.children(ctx, "by_service", a.byService, "serviceId", serviceID)
}

// CategoryPlansAPI manages plans scoped to a whole category.
type CategoryPlansAPI struct {
	resource[domain.CategoryPlan, domain.CategoryPlanInput]
	byCategory string
}

// GetByCategory lists the group bundles of one category.
func (a *CategoryPlansAPI) GetByCategory(ctx context.Context, categoryID int64) ([]domain.CategoryPlan, error) {
	return a.children(ctx, "by_category", a.byCategory, "categoryId", categoryID)
}
