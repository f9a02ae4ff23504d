package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nixflow/repair-tracker/internal/model"
	"github.com/nixflow/repair-tracker/internal/repository"
)

// ReportService computes grouped counts and cost sums over a filtered
// repair set.  All aggregation happens in memory over the fetched rows,
// with decimal arithmetic for the money columns.
type ReportService struct {
	store    RepairStore
	collator *collate.Collator
}

// NewReportService returns a report engine backed by the given store.  The
// collator orders Arabic status labels for tie-breaking in status counts.
func NewReportService(store RepairStore) *ReportService {
	return &ReportService{
		store:    store,
		collator: collate.New(language.Arabic),
	}
}

// ReportFilter bounds the report's case set.  The date range is inclusive;
// End is extended to end-of-day by the handler before it reaches here.
type ReportFilter struct {
	Start  *time.Time
	End    *time.Time
	Branch model.Branch
}

// CostBucket is a per-cost-center aggregate.
type CostBucket struct {
	Count     int             `json:"count"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

// ReportStats is the aggregate section of a report.
type ReportStats struct {
	Total      int             `json:"total"`
	ByStatus   map[string]int  `json:"byStatus"`
	ByBranch   map[string]int  `json:"byBranch"`
	ByWarranty map[string]int  `json:"byWarranty"`
	CostCenter struct {
		Company  CostBucket `json:"Company"`
		Customer CostBucket `json:"Customer"`
	} `json:"costCenter"`
	TotalCost decimal.Decimal `json:"totalCost"`
	AvgCost   decimal.Decimal `json:"avgCost"`
}

// ReportRow is one flattened case used for detailed export.
type ReportRow struct {
	RepairID      string          `json:"repairId"`
	Customer      string          `json:"customer"`
	Phone         string          `json:"phone"`
	Device        string          `json:"device"`
	Branch        string          `json:"branch"`
	Issue         string          `json:"issue"`
	Date          string          `json:"date"`
	Warranty      string          `json:"warranty"`
	EstimatedCost decimal.Decimal `json:"estimatedCost"`
	Status        string          `json:"status"`
	ReturnDate    string          `json:"returnDate"`
	CostCenter    string          `json:"costCenter"`
}

// Report bundles the flattened rows and aggregate statistics.
type Report struct {
	Data        []ReportRow `json:"data"`
	Stats       ReportStats `json:"stats"`
	RecordCount int         `json:"recordCount"`
}

// GenerateReport filters cases by received-date range and branch and
// aggregates them.  Null costs are excluded from every sum; the average
// divides the total cost by the full case count, null-cost cases included,
// matching the established reporting semantics ("average per job").
func (s *ReportService) GenerateReport(ctx context.Context, f ReportFilter) (*Report, error) {
	reps, err := s.store.List(ctx, repository.Filter{
		Branch: f.Branch,
		From:   f.Start,
		To:     f.End,
	})
	if err != nil {
		return nil, err
	}
	rep := s.aggregate(reps)
	return rep, nil
}

func (s *ReportService) aggregate(reps []model.Repair) *Report {
	stats := ReportStats{
		Total:      len(reps),
		ByStatus:   map[string]int{},
		ByBranch:   map[string]int{},
		ByWarranty: map[string]int{"Yes": 0, "No": 0},
	}
	rows := make([]ReportRow, 0, len(reps))

	for i := range reps {
		r := &reps[i]
		stats.ByStatus[r.Status.Label()]++
		stats.ByBranch[string(r.Branch)]++
		warranty := "No"
		if r.Warranty {
			warranty = "Yes"
		}
		stats.ByWarranty[warranty]++

		cost := decimal.Zero
		if r.EstimatedCost != nil {
			cost = *r.EstimatedCost
			stats.TotalCost = stats.TotalCost.Add(cost)
		}
		switch r.CostCenter {
		case model.CostCenterCompany:
			stats.CostCenter.Company.Count++
			if r.EstimatedCost != nil {
				stats.CostCenter.Company.TotalCost = stats.CostCenter.Company.TotalCost.Add(cost)
			}
		case model.CostCenterCustomer:
			stats.CostCenter.Customer.Count++
			if r.EstimatedCost != nil {
				stats.CostCenter.Customer.TotalCost = stats.CostCenter.Customer.TotalCost.Add(cost)
			}
		}

		returnDate := ""
		if r.ReturnDate != nil {
			returnDate = dateOnly(*r.ReturnDate)
		}
		rows = append(rows, ReportRow{
			RepairID:      r.RepairID,
			Customer:      r.CustomerName,
			Phone:         r.Phone,
			Device:        r.Device,
			Branch:        string(r.Branch),
			Issue:         r.Issue,
			Date:          dateOnly(r.ReceivedDate),
			Warranty:      warranty,
			EstimatedCost: cost,
			Status:        r.Status.Label(),
			ReturnDate:    returnDate,
			CostCenter:    string(r.CostCenter),
		})
	}

	if stats.Total > 0 {
		stats.AvgCost = stats.TotalCost.Div(decimal.NewFromInt(int64(stats.Total))).Round(2)
	}

	return &Report{Data: rows, Stats: stats, RecordCount: len(rows)}
}

// StatusCounts returns one row per status present in the data, sorted by
// count descending with ties broken by Arabic-collation comparison of the
// display labels.
func (s *ReportService) StatusCounts(ctx context.Context) ([]model.StatusCount, error) {
	counts, err := s.store.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return s.collator.CompareString(counts[i].Label, counts[j].Label) < 0
	})
	return counts, nil
}
