package devapi

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// entity describes one CRUD family. build validates a create payload and
// returns the new row; apply merges an update payload into row and reports
// whether anything changed.
type entity[T any, In any] struct {
	table *table[T]
	build func(id int64, in In, now time.Time) (T, error)
	check func(in In) error
	apply func(row *T, in In, now time.Time) bool
	view  func(T) T
}

func mountCRUD[T any, In any](s *Server, r chi.Router, base string, e entity[T, In]) {
	if e.view == nil {
		e.view = func(row T) T { return row }
	}

	r.Get(base, func(w http.ResponseWriter, r *http.Request) {
		rows := e.table.list(nil)
		for i := range rows {
			rows[i] = e.view(rows[i])
		}
		respondWithJSON(w, http.StatusOK, rows)
	})

	r.Get(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.respondWithError(w, r, err)
			return
		}
		row, ok := e.table.get(id)
		if !ok {
			s.respondWithError(w, r, errNotFound)
			return
		}
		respondWithJSON(w, http.StatusOK, e.view(row))
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAdminAccess)

		r.Post(base, func(w http.ResponseWriter, r *http.Request) {
			var in In
			if err := decodePayload(r, &in, e.check); err != nil {
				s.respondWithError(w, r, err)
				return
			}
			now := s.now()
			row, err := e.table.tryInsert(func(id int64) (T, error) {
				return e.build(id, in, now)
			})
			if err != nil {
				s.respondWithError(w, r, err)
				return
			}
			respondWithJSON(w, http.StatusCreated, e.view(row))
		})

		r.Put(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				s.respondWithError(w, r, err)
				return
			}
			var in In
			if err := decodePayload(r, &in, e.check); err != nil {
				s.respondWithError(w, r, err)
				return
			}
			now := s.now()
			row, err := e.table.update(id, func(row *T) error {
				e.apply(row, in, now)
				return nil
			})
			if err != nil {
				s.respondWithError(w, r, err)
				return
			}
			respondWithJSON(w, http.StatusOK, e.view(row))
		})

		r.Delete(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				s.respondWithError(w, r, err)
				return
			}
			if !e.table.remove(id) {
				s.respondWithError(w, r, errNotFound)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

// decodePayload decodes, runs tag validation and then the entity's
// referential check.
func decodePayload[In any](r *http.Request, in *In, check func(In) error) error {
	if err := decodeJSON(r, in); err != nil {
		return err
	}
	if err := domain.Validate(in); err != nil {
		return err
	}
	if check != nil {
		return check(*in)
	}
	return nil
}

func (s *Server) mountCatalog(r chi.Router) {
	p := s.opts.Paths

	mountCRUD(s, r, p.ServiceTypes, entity[domain.ServiceType, domain.ServiceTypeInput]{
		table: s.store.serviceTypes,
		build: func(id int64, in domain.ServiceTypeInput, _ time.Time) (domain.ServiceType, error) {
			if in.Name == nil {
				return domain.ServiceType{}, domain.NewValidationError("name", "is required")
			}
			row := domain.ServiceType{ID: id}
			applyServiceType(&row, in)
			return row, nil
		},
		apply: func(row *domain.ServiceType, in domain.ServiceTypeInput, _ time.Time) bool {
			return applyServiceType(row, in)
		},
	})

	mountCRUD(s, r, p.Categories, entity[domain.ServiceCategory, domain.ServiceCategoryInput]{
		table: s.store.categories,
		check: func(in domain.ServiceCategoryInput) error {
			return s.requireRow(in.TypeID, "typeId", s.typeExists)
		},
		build: func(id int64, in domain.ServiceCategoryInput, now time.Time) (domain.ServiceCategory, error) {
			if in.Name == nil {
				return domain.ServiceCategory{}, domain.NewValidationError("name", "is required")
			}
			row := domain.ServiceCategory{ID: id, CreatedAt: domain.NewTimestamp(now)}
			applyCategory(&row, in)
			return row, nil
		},
		apply: func(row *domain.ServiceCategory, in domain.ServiceCategoryInput, _ time.Time) bool {
			return applyCategory(row, in)
		},
		view: s.decorateCategory,
	})
	r.Get(p.CategoriesByType, func(w http.ResponseWriter, r *http.Request) {
		s.listChildren(w, r, func(typeID int64) any {
			rows := s.store.categories.list(func(c domain.ServiceCategory) bool { return c.TypeID == typeID })
			for i := range rows {
				rows[i] = s.decorateCategory(rows[i])
			}
			return rows
		})
	})

	mountCRUD(s, r, p.Services, entity[domain.Service, domain.ServiceInput]{
		table: s.store.services,
		check: func(in domain.ServiceInput) error {
			return s.requireRow(in.CategoryID, "categoryId", s.categoryExists)
		},
		build: func(id int64, in domain.ServiceInput, now time.Time) (domain.Service, error) {
			if in.Name == nil {
				return domain.Service{}, domain.NewValidationError("name", "is required")
			}
			row := domain.Service{ID: id, IsActive: true, CreatedAt: domain.NewTimestamp(now), UpdatedAt: domain.NewTimestamp(now)}
			applyService(&row, in)
			return row, nil
		},
		apply: func(row *domain.Service, in domain.ServiceInput, now time.Time) bool {
			changed := applyService(row, in)
			if changed {
				row.UpdatedAt = domain.NewTimestamp(now)
			}
			return changed
		},
		view: s.decorateService,
	})
	r.Get(p.ServicesByType, func(w http.ResponseWriter, r *http.Request) {
		s.listChildren(w, r, func(typeID int64) any {
			categoryIDs := map[int64]bool{}
			for _, c := range s.store.categories.list(func(c domain.ServiceCategory) bool { return c.TypeID == typeID }) {
				categoryIDs[c.ID] = true
			}
			return s.servicesWhere(func(svc domain.Service) bool { return categoryIDs[svc.CategoryID] })
		})
	})
	r.Get(p.ServicesByCategory, func(w http.ResponseWriter, r *http.Request) {
		s.listChildren(w, r, func(categoryID int64) any {
			return s.servicesWhere(func(svc domain.Service) bool { return svc.CategoryID == categoryID })
		})
	})

	mountCRUD(s, r, p.Plans, entity[domain.SubscriptionPlan, domain.SubscriptionPlanInput]{
		table: s.store.plans,
		check: func(in domain.SubscriptionPlanInput) error {
			return s.requireRow(in.ServiceID, "serviceId", s.serviceExists)
		},
		build: func(id int64, in domain.SubscriptionPlanInput, now time.Time) (domain.SubscriptionPlan, error) {
			switch {
			case in.ServiceID == nil:
				return domain.SubscriptionPlan{}, domain.NewValidationError("serviceId", "is required")
			case in.Name == nil:
				return domain.SubscriptionPlan{}, domain.NewValidationError("name", "is required")
			case in.PricePerMonth == nil:
				return domain.SubscriptionPlan{}, domain.NewValidationError("pricePerMonth", "is required")
			}
			row := domain.SubscriptionPlan{ID: id, MaxMembers: 1, IsActive: true, CreatedAt: domain.NewTimestamp(now), UpdatedAt: domain.NewTimestamp(now)}
			applyPlan(&row, in)
			return row, nil
		},
		apply: func(row *domain.SubscriptionPlan, in domain.SubscriptionPlanInput, now time.Time) bool {
			changed := applyPlan(row, in)
			if changed {
				row.UpdatedAt = domain.NewTimestamp(now)
			}
			return changed
		},
	})
	r.Get(p.PlansByService, func(w http.ResponseWriter, r *http.Request) {
		s.listChildren(w, r, func(serviceID int64) any {
			return s.store.plans.list(func(pl domain.SubscriptionPlan) bool { return pl.ServiceID == serviceID })
		})
	})

	mountCRUD(s, r, p.CategoryPlans, entity[domain.CategoryPlan, domain.CategoryPlanInput]{
		table: s.store.categoryPlans,
		check: func(in domain.CategoryPlanInput) error {
			return s.requireRow(in.CategoryID, "categoryId", s.categoryExists)
		},
		build: func(id int64, in domain.CategoryPlanInput, _ time.Time) (domain.CategoryPlan, error) {
			switch {
			case in.CategoryID == nil:
				return domain.CategoryPlan{}, domain.NewValidationError("categoryId", "is required")
			case in.Slots == nil:
				return domain.CategoryPlan{}, domain.NewValidationError("slots", "is required")
			case in.PricePerPerson == nil:
				return domain.CategoryPlan{}, domain.NewValidationError("pricePerPerson", "is required")
			}
			row := domain.CategoryPlan{ID: id}
			applyCategoryPlan(&row, in)
			return row, nil
		},
		apply: func(row *domain.CategoryPlan, in domain.CategoryPlanInput, _ time.Time) bool {
			return applyCategoryPlan(row, in)
		},
	})
	r.Get(p.CategoryPlansByCategory, func(w http.ResponseWriter, r *http.Request) {
		s.listChildren(w, r, func(categoryID int64) any {
			return s.store.categoryPlans.list(func(cp domain.CategoryPlan) bool { return cp.CategoryID == categoryID })
		})
	})
}

// listChildren answers a parent-scoped listing. An unknown parent yields an
// empty list, the same as a parent without children.
func (s *Server) listChildren(w http.ResponseWriter, r *http.Request, children func(parentID int64) any) {
	id, err := pathID(r)
	if err != nil {
		s.respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, children(id))
}

func (s *Server) requireRow(id *int64, field string, exists func(int64) bool) error {
	if id == nil || exists(*id) {
		return nil
	}
	return fmt.Errorf("%w: %s %d does not exist", errUnprocessable, field, *id)
}

func (s *Server) typeExists(id int64) bool {
	_, ok := s.store.serviceTypes.get(id)
	return ok
}

func (s *Server) categoryExists(id int64) bool {
	_, ok := s.store.categories.get(id)
	return ok
}

func (s *Server) serviceExists(id int64) bool {
	_, ok := s.store.services.get(id)
	return ok
}

func (s *Server) servicesWhere(keep func(domain.Service) bool) []domain.Service {
	rows := s.store.services.list(keep)
	for i := range rows {
		rows[i] = s.decorateService(rows[i])
	}
	return rows
}

// decorateCategory fills the legacy type label from the canonical type id.
func (s *Server) decorateCategory(c domain.ServiceCategory) domain.ServiceCategory {
	if t, ok := s.store.serviceTypes.get(c.TypeID); ok {
		c.Type = t.Name
	}
	return c
}

// decorateService derives the read-only fields: category name, plan count and
// the cheapest per-member price among active plans.
func (s *Server) decorateService(svc domain.Service) domain.Service {
	if c, ok := s.store.categories.get(svc.CategoryID); ok {
		svc.CategoryName = c.Name
	}
	plans := s.store.plans.list(func(p domain.SubscriptionPlan) bool { return p.ServiceID == svc.ID })
	svc.PlanCount = len(plans)
	svc.PriceFrom, svc.FamilyPriceFrom = nil, nil
	for _, p := range plans {
		if !p.IsActive {
			continue
		}
		share := p.PricePerMember()
		if svc.PriceFrom == nil || share.LessThan(*svc.PriceFrom) {
			svc.PriceFrom = domain.Ptr(share)
		}
		if p.MaxMembers > 1 && (svc.FamilyPriceFrom == nil || p.PricePerMonth.LessThan(*svc.FamilyPriceFrom)) {
			svc.FamilyPriceFrom = domain.Ptr(p.PricePerMonth)
		}
	}
	return svc
}

func set[T comparable](dst *T, src *T) bool {
	if src == nil || *dst == *src {
		return false
	}
	*dst = *src
	return true
}

func setDecimal(dst *decimal.Decimal, src *decimal.Decimal) bool {
	if src == nil || dst.Equal(*src) {
		return false
	}
	*dst = *src
	return true
}

func setOptionalDecimal(dst **decimal.Decimal, src *decimal.Decimal) bool {
	if src == nil || (*dst != nil && (*dst).Equal(*src)) {
		return false
	}
	*dst = domain.Ptr(*src)
	return true
}

// changedAny reports whether any setter changed its field. Every argument is
// evaluated, so all setters run.
func changedAny(changes ...bool) bool {
	return slices.Contains(changes, true)
}

func applyServiceType(row *domain.ServiceType, in domain.ServiceTypeInput) bool {
	return changedAny(
		set(&row.Name, in.Name),
		set(&row.DisplayOrder, in.DisplayOrder),
	)
}

func applyCategory(row *domain.ServiceCategory, in domain.ServiceCategoryInput) bool {
	return changedAny(
		set(&row.Name, in.Name),
		set(&row.TypeID, in.TypeID),
		set(&row.Icon, in.Icon),
		setOptionalDecimal(&row.PriceFrom, in.PriceFrom),
		set(&row.SavingsPercentage, in.SavingsPercentage),
	)
}

func applyService(row *domain.Service, in domain.ServiceInput) bool {
	return changedAny(
		set(&row.Name, in.Name),
		set(&row.Description, in.Description),
		set(&row.LogoURL, in.LogoURL),
		set(&row.CategoryID, in.CategoryID),
		set(&row.IsActive, in.IsActive),
		set(&row.Icon, in.Icon),
		set(&row.Color, in.Color),
	)
}

func applyPlan(row *domain.SubscriptionPlan, in domain.SubscriptionPlanInput) bool {
	features := false
	if in.Features != nil && !slices.Equal(row.Features, *in.Features) {
		row.Features = slices.Clone(*in.Features)
		features = true
	}
	return changedAny(
		set(&row.ServiceID, in.ServiceID),
		set(&row.Name, in.Name),
		set(&row.Description, in.Description),
		set(&row.MaxMembers, in.MaxMembers),
		set(&row.MaxDevices, in.MaxDevices),
		setDecimal(&row.PricePerMonth, in.PricePerMonth),
		setOptionalDecimal(&row.OriginalPrice, in.OriginalPrice),
		set(&row.DiscountPercentage, in.DiscountPercentage),
		set(&row.IsPopular, in.IsPopular),
		set(&row.IsActive, in.IsActive),
		features,
	)
}

func applyCategoryPlan(row *domain.CategoryPlan, in domain.CategoryPlanInput) bool {
	changed := changedAny(
		set(&row.CategoryID, in.CategoryID),
		set(&row.Slots, in.Slots),
		setDecimal(&row.PricePerPerson, in.PricePerPerson),
		setDecimal(&row.Commission, in.Commission),
		setDecimal(&row.TotalPrice, in.TotalPrice),
	)
	// Total follows the per-person price unless it was set explicitly.
	if changed && in.TotalPrice == nil && row.Slots > 0 {
		row.TotalPrice = row.PricePerPerson.Mul(decimal.NewFromInt(int64(row.Slots))).Add(row.Commission)
	}
	return changed
}
