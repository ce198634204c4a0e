package calc

import (
	"fmt"
	"sort"

	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/shopspring/decimal"
)

// ApplyGarnishments resolves and applies the employee's garnishments in
// priority order (lower priority number first, ties broken by
// configuration ID). Fixed garnishments
// deduct the assigned amount outright; percentage garnishments deduct
// the assigned percentage of gross pay.
//
// A garnishment whose configuration cannot be resolved is skipped with a
// warning rather than failing the run: the run result must surface the
// warning so the missed remittance is visible to the caller. The order
// of the returned lines depends only on configured priority and ID,
// never on the input slice order. No minimum-net floor is enforced.
func (c *Calculator) ApplyGarnishments(
	garnishments []domain.EmployeeGarnishment,
	grossPay decimal.Decimal,
) ([]domain.PaystubItem, []string) {
	type resolved struct {
		garnishment domain.EmployeeGarnishment
		config      *domain.GarnishmentConfiguration
	}

	var warnings []string
	items := make([]resolved, 0, len(garnishments))

	for _, g := range garnishments {
		cfg := c.settings.Garnishment(g.ConfigID)
		if cfg == nil {
			warnings = append(warnings, fmt.Sprintf(
				"garnishment configuration %s not found, skipped without charge", g.ConfigID))
			continue
		}
		items = append(items, resolved{garnishment: g, config: cfg})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].config.Priority != items[j].config.Priority {
			return items[i].config.Priority < items[j].config.Priority
		}
		return items[i].config.ID < items[j].config.ID
	})

	lines := make([]domain.PaystubItem, 0, len(items))
	for _, item := range items {
		amount := item.garnishment.Amount
		if item.config.CalculationType == domain.PercentageOfGross {
			amount = grossPay.Mul(item.garnishment.Amount).Div(decimal.NewFromInt(100))
		}

		lines = append(lines, domain.PaystubItem{
			Type:        domain.ItemGarnishment,
			Description: item.config.Description,
			Amount:      domain.RoundCents(amount),
			CodeID:      item.config.ID,
		})
	}

	return lines, warnings
}
