package reports

import (
	"sort"

	"github.com/choubo-app/choubo/internal/catalog"
	"github.com/choubo-app/choubo/internal/ledger/shared"
)

// BucketSection is one waterfall bucket with its ordered member accounts.
type BucketSection struct {
	Bucket   catalog.Bucket `json:"bucket"`
	Accounts []AccountLine  `json:"accounts"`
	Total    int64          `json:"total"`
}

// Waterfall is the profit-and-loss report: nine bucket sections plus the
// cascading subtotals down to net income.
type Waterfall struct {
	Buckets []BucketSection `json:"buckets"`

	Sales                int64 `json:"sales"`
	CostOfSales          int64 `json:"costOfSales"`
	GrossProfit          int64 `json:"grossProfit"`
	SGA                  int64 `json:"sga"`
	OperatingIncome      int64 `json:"operatingIncome"`
	NonOperatingIncome   int64 `json:"nonOperatingIncome"`
	NonOperatingExpense  int64 `json:"nonOperatingExpense"`
	OrdinaryIncome       int64 `json:"ordinaryIncome"`
	ExtraordinaryIncome  int64 `json:"extraordinaryIncome"`
	ExtraordinaryLoss    int64 `json:"extraordinaryLoss"`
	PretaxIncome         int64 `json:"pretaxIncome"`
	IncomeTaxes          int64 `json:"incomeTaxes"`
	IncomeTaxAdjustments int64 `json:"incomeTaxAdjustments"`
	NetIncome            int64 `json:"netIncome"`
}

// bucketOrder fixes the presentation order of the nine sections.
var bucketOrder = []catalog.Bucket{
	catalog.BucketSales,
	catalog.BucketCostOfSales,
	catalog.BucketSGA,
	catalog.BucketNonOperatingIncome,
	catalog.BucketNonOperatingExpense,
	catalog.BucketExtraordinaryIncome,
	catalog.BucketExtraordinaryLoss,
	catalog.BucketIncomeTaxes,
	catalog.BucketIncomeTaxAdjustments,
}

// BuildWaterfall assigns each profit-and-loss account to exactly one
// bucket and computes the cascading subtotals. An account the membership
// table cannot place fails the build; there is no residual bucket.
func BuildWaterfall(balances []AccountBalance) (Waterfall, error) {
	members := make(map[catalog.Bucket][]AccountBalance)
	for _, b := range balances {
		if !b.Category.IsProfitAndLoss() {
			continue
		}
		bucket, ok := catalog.BucketFor(b.Category)
		if !ok {
			return Waterfall{}, shared.ConsistencyError(b.AccountID, "account maps to no waterfall bucket")
		}
		members[bucket] = append(members[bucket], b)
	}

	var wf Waterfall
	totals := make(map[catalog.Bucket]int64, len(bucketOrder))
	for _, bucket := range bucketOrder {
		section := BucketSection{Bucket: bucket}
		bs := members[bucket]
		sort.SliceStable(bs, func(i, j int) bool {
			ri, rj := catalog.BucketRank(bs[i].Category), catalog.BucketRank(bs[j].Category)
			if ri != rj {
				return ri < rj
			}
			return catalog.OrderKeyFor(bs[i].Category).Less(catalog.OrderKeyFor(bs[j].Category))
		})
		for _, b := range bs {
			section.Accounts = append(section.Accounts, accountLine(b))
			section.Total += b.Closing
		}
		totals[bucket] = section.Total
		wf.Buckets = append(wf.Buckets, section)
	}

	wf.Sales = totals[catalog.BucketSales]
	wf.CostOfSales = totals[catalog.BucketCostOfSales]
	wf.SGA = totals[catalog.BucketSGA]
	wf.NonOperatingIncome = totals[catalog.BucketNonOperatingIncome]
	wf.NonOperatingExpense = totals[catalog.BucketNonOperatingExpense]
	wf.ExtraordinaryIncome = totals[catalog.BucketExtraordinaryIncome]
	wf.ExtraordinaryLoss = totals[catalog.BucketExtraordinaryLoss]
	wf.IncomeTaxes = totals[catalog.BucketIncomeTaxes]
	wf.IncomeTaxAdjustments = totals[catalog.BucketIncomeTaxAdjustments]

	wf.GrossProfit = wf.Sales - wf.CostOfSales
	wf.OperatingIncome = wf.GrossProfit - wf.SGA
	wf.OrdinaryIncome = wf.OperatingIncome + wf.NonOperatingIncome - wf.NonOperatingExpense
	wf.PretaxIncome = wf.OrdinaryIncome + wf.ExtraordinaryIncome - wf.ExtraordinaryLoss
	wf.NetIncome = wf.PretaxIncome - wf.IncomeTaxes - wf.IncomeTaxAdjustments
	return wf, nil
}
