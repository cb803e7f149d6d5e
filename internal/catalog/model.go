// Package catalog holds the account classification reference data: the
// category triple of every account, the canonical ordering tables shared by
// the report builders, and the legacy label alias table.
package catalog

// NormalSide tells on which side an account accumulates its natural balance.
type NormalSide string

const (
	NormalSideDebit  NormalSide = "DEBIT"
	NormalSideCredit NormalSide = "CREDIT"
)

// AccountCategory is one account's classification as stored in account_items.
type AccountCategory struct {
	AccountID     int64
	OrgID         int64
	AccountName   string
	MajorCategory string
	MidCategory   string
	SubCategory   string
	// PLCategory is the free-text stair category used as the last resort
	// when neither sub nor mid category maps to a waterfall bucket.
	PLCategory  string
	DisplayRank *int
}

// IsBalanceSheet reports whether the account belongs to the BS tree.
func (c AccountCategory) IsBalanceSheet() bool {
	major, _ := CanonicalMajor(c.MajorCategory)
	switch major {
	case "資産", "負債", "純資産":
		return true
	}
	return false
}

// IsProfitAndLoss reports whether the account belongs to the P&L waterfall.
func (c AccountCategory) IsProfitAndLoss() bool {
	major, _ := CanonicalMajor(c.MajorCategory)
	switch major {
	case "損益", "収益", "費用":
		return true
	}
	return false
}
