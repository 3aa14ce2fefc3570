// Package report adjusts trend report column sets for PostgreSQL, which
// rejects non-aggregated select columns missing from GROUP BY.
package report

import "strings"

// Columns is the select list and GROUP BY list of a trend report query.
type Columns struct {
	Select  string `json:"select"`
	GroupBy string `json:"groupBy"`
}

// ColumnsFunc builds the column set for a report dimension and transaction type.
type ColumnsFunc func(basedOn, trans string) Columns

// AdjustGroupBy adds the non-aggregated columns the report selects to its
// GROUP BY list. Applying it to its own output changes nothing.
func AdjustGroupBy(basedOn, trans string, cols Columns) Columns {
	groupBy := cols.GroupBy

	switch basedOn {
	case "Item":
		if groupBy == "t2.item_code" {
			groupBy = "t2.item_code, t2.item_name"
		}
	case "Customer":
		if trans == "Quotation" {
			if strings.Contains(cols.Select, "party_name") &&
				!strings.Contains(groupBy, "party_name") &&
				!strings.Contains(groupBy, "customer_name") {
				groupBy += ", t1.customer_name, t1.territory"
			}
		} else if strings.Contains(cols.Select, "customer_name") && !strings.Contains(groupBy, "customer_name") {
			groupBy += ", t1.customer_name, t1.territory"
		}
	case "Supplier":
		if strings.Contains(cols.Select, "supplier_name") && !strings.Contains(groupBy, "supplier_name") {
			groupBy += ", t1.supplier_name"
		}
	case "Project":
		if strings.Contains(cols.Select, "project_name") && !strings.Contains(groupBy, "project_name") {
			groupBy += ", t2.project_name"
		}
	}

	// Every trend report selects the company currency.
	if strings.Contains(cols.Select, "default_currency") && !strings.Contains(groupBy, "default_currency") {
		groupBy += ", t4.default_currency"
	}

	cols.GroupBy = groupBy
	return cols
}

// Adjusted wraps a column builder so its output is passed through AdjustGroupBy.
func Adjusted(fn ColumnsFunc) ColumnsFunc {
	return func(basedOn, trans string) Columns {
		return AdjustGroupBy(basedOn, trans, fn(basedOn, trans))
	}
}
