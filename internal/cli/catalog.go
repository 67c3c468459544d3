package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// crudAPI is the resource surface shared by the catalog clients.
type crudAPI[T any, In any] interface {
	GetAll(ctx context.Context) ([]T, error)
	GetByID(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, in In) (*T, error)
	Update(ctx context.Context, id int64, in In) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// parentFilter narrows a listing to the children of one parent.
type parentFilter[T any] struct {
	flag  string
	usage string
	list  func(ctx context.Context, parentID int64) ([]T, error)
}

type crudCommand[T any, In any] struct {
	use     string
	short   string
	api     func() crudAPI[T, In]
	header  string
	row     func(T) []string
	parents []parentFilter[T]
}

func (c crudCommand[T, In]) build(a *App) *cobra.Command {
	parentIDs := make([]int64, len(c.parents))
	list := func(cmd *cobra.Command, _ []string) error {
		rows, err := c.list(cmd.Context(), parentIDs)
		if err != nil {
			return err
		}
		return a.render(rows, c.header, func(emit func(...string)) {
			for _, r := range rows {
				emit(c.row(r)...)
			}
		})
	}

	root := &cobra.Command{
		Use:   c.use,
		Short: c.short,
		Args:  exactArgs(0),
		RunE:  list,
	}
	for i, p := range c.parents {
		root.Flags().Int64Var(&parentIDs[i], p.flag, 0, p.usage)
	}
	if len(c.parents) > 1 {
		flags := make([]string, len(c.parents))
		for i, p := range c.parents {
			flags[i] = p.flag
		}
		root.MarkFlagsMutuallyExclusive(flags...)
	}

	one := func(v *T) error {
		return a.render(v, c.header, func(emit func(...string)) { emit(c.row(*v)...) })
	}

	get := &cobra.Command{
		Use:   "get ID",
		Short: "Show one entry",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			v, err := c.api().GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			return one(v)
		},
	}

	var createData string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an entry from a JSON payload (admin)",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireStaff(); err != nil {
				return err
			}
			var in In
			if err := decodePayload(cmd, createData, &in); err != nil {
				return err
			}
			v, err := c.api().Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			return one(v)
		},
	}
	create.Flags().StringVar(&createData, "data", "", "JSON payload, @file or - for stdin")

	var updateData string
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change the fields present in a JSON payload (admin)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireStaff(); err != nil {
				return err
			}
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			var in In
			if err := decodePayload(cmd, updateData, &in); err != nil {
				return err
			}
			v, err := c.api().Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return one(v)
		},
	}
	update.Flags().StringVar(&updateData, "data", "", "JSON payload, @file or - for stdin")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Remove an entry (admin)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireStaff(); err != nil {
				return err
			}
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			if err := c.api().Delete(cmd.Context(), id); err != nil {
				return err
			}
			a.say("Deleted %s %d.", c.use, id)
			return nil
		},
	}

	root.AddCommand(get, create, update, del)
	return root
}

func (c crudCommand[T, In]) list(ctx context.Context, parentIDs []int64) ([]T, error) {
	for i, p := range c.parents {
		if parentIDs[i] != 0 {
			return p.list(ctx, parentIDs[i])
		}
	}
	return c.api().GetAll(ctx)
}

func (a *App) catalogCommands() []*cobra.Command {
	types := crudCommand[domain.ServiceType, domain.ServiceTypeInput]{
		use:    "types",
		short:  "Service types",
		api:    func() crudAPI[domain.ServiceType, domain.ServiceTypeInput] { return a.client.ServiceTypes },
		header: "ID\tNAME\tORDER",
		row: func(t domain.ServiceType) []string {
			return []string{fmtID(t.ID), t.Name, strconv.Itoa(t.DisplayOrder)}
		},
	}

	categories := crudCommand[domain.ServiceCategory, domain.ServiceCategoryInput]{
		use:    "categories",
		short:  "Service categories",
		api:    func() crudAPI[domain.ServiceCategory, domain.ServiceCategoryInput] { return a.client.Categories },
		header: "ID\tNAME\tTYPE\tPRICE FROM\tSAVINGS",
		row: func(c domain.ServiceCategory) []string {
			typ := orDash(c.Type)
			if c.TypeID != 0 && c.Type == "" {
				typ = fmtID(c.TypeID)
			}
			return []string{fmtID(c.ID), c.Name, typ, optionalMoney(c.PriceFrom), fmt.Sprintf("%d%%", c.SavingsPercentage)}
		},
		parents: []parentFilter[domain.ServiceCategory]{
			{flag: "type", usage: "only categories of this service type", list: func(ctx context.Context, id int64) ([]domain.ServiceCategory, error) {
				return a.client.Categories.GetByType(ctx, id)
			}},
		},
	}

	services := crudCommand[domain.Service, domain.ServiceInput]{
		use:    "services",
		short:  "Services",
		api:    func() crudAPI[domain.Service, domain.ServiceInput] { return a.client.Services },
		header: "ID\tNAME\tCATEGORY\tPLANS\tPRICE FROM\tACTIVE",
		row: func(s domain.Service) []string {
			return []string{fmtID(s.ID), s.Name, orDash(s.CategoryName), strconv.Itoa(s.PlanCount), optionalMoney(s.PriceFrom), yesNo(s.IsActive)}
		},
		parents: []parentFilter[domain.Service]{
			{flag: "type", usage: "only services of this service type", list: func(ctx context.Context, id int64) ([]domain.Service, error) {
				return a.client.Services.GetByType(ctx, id)
			}},
			{flag: "category", usage: "only services of this category", list: func(ctx context.Context, id int64) ([]domain.Service, error) {
				return a.client.Services.GetByCategory(ctx, id)
			}},
		},
	}

	plans := crudCommand[domain.SubscriptionPlan, domain.SubscriptionPlanInput]{
		use:    "plans",
		short:  "Subscription plans",
		api:    func() crudAPI[domain.SubscriptionPlan, domain.SubscriptionPlanInput] { return a.client.Plans },
		header: "ID\tSERVICE\tNAME\tMEMBERS\tPER MONTH\tPER MEMBER\tPOPULAR",
		row: func(p domain.SubscriptionPlan) []string {
			return []string{fmtID(p.ID), fmtID(p.ServiceID), p.Name, strconv.Itoa(p.MaxMembers), money(p.PricePerMonth), money(p.PricePerMember()), yesNo(p.IsPopular)}
		},
		parents: []parentFilter[domain.SubscriptionPlan]{
			{flag: "service", usage: "only plans of this service", list: func(ctx context.Context, id int64) ([]domain.SubscriptionPlan, error) {
				return a.client.Plans.GetByService(ctx, id)
			}},
		},
	}

	categoryPlans := crudCommand[domain.CategoryPlan, domain.CategoryPlanInput]{
		use:    "category-plans",
		short:  "Category-wide plans",
		api:    func() crudAPI[domain.CategoryPlan, domain.CategoryPlanInput] { return a.client.CategoryPlans },
		header: "ID\tCATEGORY\tSLOTS\tPER PERSON\tCOMMISSION\tTOTAL",
		row: func(p domain.CategoryPlan) []string {
			return []string{fmtID(p.ID), fmtID(p.CategoryID), strconv.Itoa(p.Slots), money(p.PricePerPerson), money(p.Commission), money(p.TotalPrice)}
		},
		parents: []parentFilter[domain.CategoryPlan]{
			{flag: "category", usage: "only plans of this category", list: func(ctx context.Context, id int64) ([]domain.CategoryPlan, error) {
				return a.client.CategoryPlans.GetByCategory(ctx, id)
			}},
		},
	}

	return []*cobra.Command{
		types.build(a),
		categories.build(a),
		services.build(a),
		plans.build(a),
		categoryPlans.build(a),
	}
}
