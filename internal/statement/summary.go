package statement

import (
	"github.com/MrJamesThe3rd/tally/internal/billing"
)

// Summary aggregates many statements into portfolio figures.
type Summary struct {
	TotalOutstanding  float64
	TotalCurrent      float64
	TotalOverdue      float64
	CustomersOverdue  int
	CustomersWithDebt int
	Aging             Aging
}

// Summarize folds statements into a Summary. Nil statements are skipped.
func Summarize(statements []*Statement) Summary {
	var s Summary

	for _, st := range statements {
		if st == nil {
			continue
		}

		s.TotalOutstanding += st.TotalBalance
		s.Aging.Current += st.Aging.Current
		s.Aging.Days30 += st.Aging.Days30
		s.Aging.Days60 += st.Aging.Days60
		s.Aging.Days90 += st.Aging.Days90
		s.Aging.Days120Plus += st.Aging.Days120Plus

		if st.TotalBalance > billing.AgingEpsilon {
			s.CustomersWithDebt++
		}

		if st.Aging.Overdue() > billing.AgingEpsilon {
			s.CustomersOverdue++
		}
	}

	s.Aging = s.Aging.rounded()
	s.TotalOutstanding = billing.Round2(s.TotalOutstanding)
	s.TotalCurrent = s.Aging.Current
	s.TotalOverdue = billing.Round2(s.Aging.Overdue())

	return s
}

// Roots returns the customers that get their own statement: everyone except
// children that bill to their parent.
func Roots(customers []billing.Customer) []billing.Customer {
	roots := make([]billing.Customer, 0, len(customers))

	for _, c := range customers {
		if c.BillToParent && c.ParentCompanyID != nil {
			if _, ok := billing.FindCustomer(customers, *c.ParentCompanyID); ok {
				continue
			}
		}

		roots = append(roots, c)
	}

	return roots
}
