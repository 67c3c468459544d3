package devapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

type seedPlan struct {
	name    string
	members int
	price   string
	popular bool
}

type seedService struct {
	name  string
	color string
	plans []seedPlan
}

type seedCategory struct {
	name     string
	icon     string
	services []seedService
	slots    []int
	perSlot  string
}

type seedType struct {
	name       string
	categories []seedCategory
}

var demoCatalog = []seedType{
	{
		name: "Видео",
		categories: []seedCategory{
			{
				name: "Стриминг", icon: "tv", slots: []int{2, 4}, perSlot: "250",
				services: []seedService{
					{name: "Netflix", color: "#E50914", plans: []seedPlan{
						{name: "Standard", members: 2, price: "990"},
						{name: "Premium", members: 4, price: "1490", popular: true},
					}},
					{name: "Кинопоиск", color: "#FF6600", plans: []seedPlan{
						{name: "Семейный", members: 4, price: "799", popular: true},
					}},
				},
			},
		},
	},
	{
		name: "Музыка",
		categories: []seedCategory{
			{
				name: "Музыкальные сервисы", icon: "music", slots: []int{6}, perSlot: "120",
				services: []seedService{
					{name: "Spotify", color: "#1DB954", plans: []seedPlan{
						{name: "Individual", members: 1, price: "299"},
						{name: "Family", members: 6, price: "599", popular: true},
					}},
				},
			},
		},
	},
	{
		name: "Операторы",
		categories: []seedCategory{
			{name: "Мобильная связь", icon: "phone"},
		},
	},
}

var demoSpeedTests = []domain.SpeedTestResult{
	{Latitude: 42.8746, Longitude: 74.5698, City: "Bishkek", Provider: "Beeline", DownloadMbps: 48.2, UploadMbps: 12.1, PingMs: 23},
	{Latitude: 42.8820, Longitude: 74.5820, City: "Bishkek", Provider: "MegaCom", DownloadMbps: 35.7, UploadMbps: 9.4, PingMs: 31},
	{Latitude: 42.8700, Longitude: 74.6000, City: "Bishkek", Provider: "O!", DownloadMbps: 61.0, UploadMbps: 18.3, PingMs: 19},
	{Latitude: 40.5283, Longitude: 72.7985, City: "Osh", Provider: "Beeline", DownloadMbps: 22.4, UploadMbps: 6.0, PingMs: 44},
	{Latitude: 43.2389, Longitude: 76.8897, City: "Almaty", Provider: "Kcell", DownloadMbps: 74.9, UploadMbps: 21.5, PingMs: 17},
	{Latitude: 42.4907, Longitude: 78.3936, Provider: "MegaCom", DownloadMbps: 8.3, UploadMbps: 2.2, PingMs: 88},
}

// Seed fills an empty store with a demo catalog and speed-test data. It is a
// no-op when the catalog already has rows.
func Seed(store *Store, now time.Time) {
	if len(store.serviceTypes.list(nil)) > 0 {
		return
	}
	ts := domain.NewTimestamp(now)

	for order, st := range demoCatalog {
		typ := store.serviceTypes.insert(func(id int64) domain.ServiceType {
			return domain.ServiceType{ID: id, Name: st.name, DisplayOrder: order}
		})
		for _, sc := range st.categories {
			cat := store.categories.insert(func(id int64) domain.ServiceCategory {
				return domain.ServiceCategory{ID: id, Name: sc.name, TypeID: typ.ID, Icon: sc.icon, CreatedAt: ts}
			})
			for _, slots := range sc.slots {
				per := decimal.RequireFromString(sc.perSlot)
				commission := per.Mul(decimal.NewFromFloat(0.1)).Round(2)
				store.categoryPlans.insert(func(id int64) domain.CategoryPlan {
					return domain.CategoryPlan{
						ID:             id,
						CategoryID:     cat.ID,
						Slots:          slots,
						PricePerPerson: per,
						Commission:     commission,
						TotalPrice:     per.Add(commission).Mul(decimal.NewFromInt(int64(slots))),
					}
				})
			}
			for _, ss := range sc.services {
				svc := store.services.insert(func(id int64) domain.Service {
					return domain.Service{ID: id, Name: ss.name, CategoryID: cat.ID, Color: ss.color, IsActive: true, CreatedAt: ts, UpdatedAt: ts}
				})
				for _, sp := range ss.plans {
					store.plans.insert(func(id int64) domain.SubscriptionPlan {
						return domain.SubscriptionPlan{
							ID:            id,
							ServiceID:     svc.ID,
							Name:          sp.name,
							MaxMembers:    sp.members,
							PricePerMonth: decimal.RequireFromString(sp.price),
							IsPopular:     sp.popular,
							IsActive:      true,
							CreatedAt:     ts,
							UpdatedAt:     ts,
						}
					})
				}
			}
		}
	}

	for _, st := range demoSpeedTests {
		store.speedTests.insert(func(id int64) domain.SpeedTestResult {
			st.ID = id
			st.CreatedAt = ts
			return st
		})
	}
}

// SeedSubscriptions enrolls userID in the first popular plan of every
// service, renewing a month from now.
func SeedSubscriptions(store *Store, userID int64, now time.Time) error {
	if len(store.userSubscriptions(userID)) > 0 {
		return nil
	}
	seen := map[int64]bool{}
	for _, plan := range store.plans.list(func(p domain.SubscriptionPlan) bool { return p.IsPopular }) {
		if seen[plan.ServiceID] {
			continue
		}
		seen[plan.ServiceID] = true
		if _, err := store.Subscribe(userID, plan.ID, now.AddDate(0, 1, 0)); err != nil {
			return err
		}
	}
	return nil
}
