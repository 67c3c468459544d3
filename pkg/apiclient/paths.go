package apiclient

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// idPlaceholder is substituted with the parent or entity identifier.
const idPlaceholder = "{id}"

// Paths is the resource path scheme relative to the base URL. Prefixes drifted
// across backend revisions, so every entry can be overridden.
type Paths struct {
	ServiceTypes            string
	Categories              string
	CategoriesByType        string
	Services                string
	ServicesByType          string
	ServicesByCategory      string
	Plans                   string
	PlansByService          string
	CategoryPlans           string
	CategoryPlansByCategory string
	Wallet                  string
	WalletDeposit           string
	WalletWithdraw          string
	WalletTransactions      string
	Users                   string
	UserSubscriptions       string
	SpeedTest               string
	SpeedTestFilter         string
	SpeedTestBounds         string
	SpeedTestStatsCity      string
	SpeedTestStatsProvider  string
	AuthRegister            string
	AuthVerify              string
	AuthLogin               string
}

// DefaultPaths returns the path scheme of the current backend revision.
func DefaultPaths() Paths {
	return Paths{
		ServiceTypes:            "/service-types",
		Categories:              "/services/categories",
		CategoriesByType:        "/services/categories/by-type/{id}",
		Services:                "/services",
		ServicesByType:          "/services/by-type/{id}",
		ServicesByCategory:      "/services/by-category/{id}",
		Plans:                   "/plans",
		PlansByService:          "/plans/service/{id}",
		CategoryPlans:           "/category-plans",
		CategoryPlansByCategory: "/category-plans/category/{id}",
		Wallet:                  "/wallet",
		WalletDeposit:           "/wallet/deposit",
		WalletWithdraw:          "/wallet/withdraw",
		WalletTransactions:      "/wallet/transactions",
		Users:                   "/users",
		UserSubscriptions:       "/users/{id}/subscriptions",
		SpeedTest:               "/speedtest",
		SpeedTestFilter:         "/speedtest/filter",
		SpeedTestBounds:         "/speedtest/bounds",
		SpeedTestStatsCity:      "/speedtest/stats/city",
		SpeedTestStatsProvider:  "/speedtest/stats/provider",
		AuthRegister:            "/auth/register",
		AuthVerify:              "/auth/verify",
		AuthLogin:               "/auth/login",
	}
}

func (p *Paths) byName() map[string]*string {
	return map[string]*string{
		"service_types":              &p.ServiceTypes,
		"categories":                 &p.Categories,
		"categories_by_type":         &p.CategoriesByType,
		"services":                   &p.Services,
		"services_by_type":           &p.ServicesByType,
		"services_by_category":       &p.ServicesByCategory,
		"plans":                      &p.Plans,
		"plans_by_service":           &p.PlansByService,
		"category_plans":             &p.CategoryPlans,
		"category_plans_by_category": &p.CategoryPlansByCategory,
		"wallet":                     &p.Wallet,
		"wallet_deposit":             &p.WalletDeposit,
		"wallet_withdraw":            &p.WalletWithdraw,
		"wallet_transactions":        &p.WalletTransactions,
		"users":                      &p.Users,
		"user_subscriptions":         &p.UserSubscriptions,
		"speedtest":                  &p.SpeedTest,
		"speedtest_filter":           &p.SpeedTestFilter,
		"speedtest_bounds":           &p.SpeedTestBounds,
		"speedtest_stats_city":       &p.SpeedTestStatsCity,
		"speedtest_stats_provider":   &p.SpeedTestStatsProvider,
		"auth_register":              &p.AuthRegister,
		"auth_verify":                &p.AuthVerify,
		"auth_login":                 &p.AuthLogin,
	}
}

// Names lists the keys accepted by Set, sorted.
func (p *Paths) Names() []string {
	fields := p.byName()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Set overrides one entry by its snake_case name (e.g. "plans_by_service").
// Parent-scoped entries must keep the {id} placeholder.
func (p *Paths) Set(name, value string) error {
	key := strings.ToLower(strings.TrimSpace(name))
	field, ok := p.byName()[key]
	if !ok {
		return fmt.Errorf("unknown api path %q", name)
	}
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "/") {
		return fmt.Errorf("api path %q must start with '/', got %q", key, value)
	}
	if strings.Contains(*field, idPlaceholder) && !strings.Contains(value, idPlaceholder) {
		return fmt.Errorf("api path %q must contain %s", key, idPlaceholder)
	}
	*field = strings.TrimRight(value, "/")
	return nil
}

// Apply sets every override in name order, stopping at the first invalid
// one.
func (p *Paths) Apply(overrides map[string]string) error {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := p.Set(name, overrides[name]); err != nil {
			return err
		}
	}
	return nil
}

func expand(tmpl string, id int64) string {
	return strings.ReplaceAll(tmpl, idPlaceholder, strconv.FormatInt(id, 10))
}

func member(base string, id int64) string {
	return base + "/" + strconv.FormatInt(id, 10)
}
