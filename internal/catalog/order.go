package catalog

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// The source system kept diverging copies of these priority tables in each
// screen that rendered a report. This file is the single canonical copy used
// by the catalog, the BS tree builder and the P&L waterfall builder alike.

const (
	unknownCategoryRank = 99
	unknownBucketRank   = 999
	unknownDisplayRank  = 9999
)

// majorAliases maps historical major-category spellings onto canonical ones.
// These show up in migrated data; they are resolved here and nowhere else.
var majorAliases = map[string]string{
	"財産":      "負債",
	"負債及び純資産": "負債",
	"收入":      "収益",
}

var majorOrder = map[string]int{
	"資産":  1,
	"負債":  2,
	"純資産": 3,
	"損益":  4,
	"収益":  4,
	"費用":  4,
}

// Mid categories ordered by the liquidity arrangement convention.
var midOrder = map[string]int{
	"流動資産": 1,
	"固定資産": 2,
	"繰延資産": 3,

	"流動負債": 1,
	"固定負債": 2,

	"資本金":     1,
	"資本剰余金":   2,
	"利益剰余金":   3,
	"自己株式":    4,
	"評価換算差額等": 5,
	"新株予約権":   6,

	"売上高":        1,
	"売上原価":       2,
	"販売費及び一般管理費": 3,
	"営業外収益":      4,
	"営業外費用":      5,
	"特別利益":       6,
	"特別損失":       7,
	"法人税等":       8,
	"法人税等調整額":    9,
}

var subOrder = map[string]int{
	"現金及び預金":  1,
	"売上債権":    2,
	"有価証券":    3,
	"棚卸資産":    4,
	"その他流動資産": 5,

	"有形固定資産":   1,
	"無形固定資産":   2,
	"投資その他の資産": 3,

	"繰延資産": 1,

	"仕入債務":    1,
	"その他流動負債": 2,

	"固定負債": 1,

	"資本金":       1,
	"新株式申込証拠金":  1,
	"資本準備金":     2,
	"その他資本剰余金":  3,
	"利益準備金":     1,
	"その他利益剰余金":  2,
	"自己株式":      1,
	"自己株式申込証拠金": 2,
	"他有価証券評価差額金": 1,
	"繰延ヘッジ損益":   2,
	"土地再評価差額金":  3,
	"新株予約権":     1,

	"売上高":       1,
	"期首商品棚卸":    1,
	"当期商品仕入":    2,
	"他勘定振替高(商)": 3,
	"期末商品棚卸":    4,
	"販売管理費":     1,
	"営業外収益":     1,
	"営業外費用":     1,
	"特別利益":      1,
	"特別損失":      1,
	"法人税等":      1,
	"法人税等調整額":   1,

	"諸口": 99,
}

// plCategoryOrder ranks the stair categories of the P&L, including the
// cost-of-sales detail labels and every historical SG&A spelling. The
// diverging copies of this table disagreed on the SG&A rank; all spellings
// share rank 40 here.
var plCategoryOrder = map[string]int{
	"売上高":       10,
	"期首商品棚卸":    11,
	"当期商品仕入":    12,
	"他勘定振替高(商)": 13,
	"期末商品棚卸":    14,
	"売上原価":      20,
	"売上総利益":     30,
	"販売管理費":     40,
	"販管費":       40,
	"販売費及び一般管理費": 40,
	"営業利益":      50,
	"営業外収益":     60,
	"営業外費用":     70,
	"経常利益":      80,
	"特別利益":      90,
	"特別損失":      100,
	"税引前当期純利益":  110,
	"法人税等":      120,
	"法人税等調整額":   130,
	"当期純利益":     140,
}

// Bucket identifies one P&L waterfall bucket.
type Bucket string

const (
	BucketSales                Bucket = "sales"
	BucketCostOfSales          Bucket = "cost_of_sales"
	BucketSGA                  Bucket = "sga"
	BucketNonOperatingIncome   Bucket = "non_operating_income"
	BucketNonOperatingExpense  Bucket = "non_operating_expense"
	BucketExtraordinaryIncome  Bucket = "extraordinary_income"
	BucketExtraordinaryLoss    Bucket = "extraordinary_loss"
	BucketIncomeTaxes          Bucket = "income_taxes"
	BucketIncomeTaxAdjustments Bucket = "income_tax_adjustments"
)

// bucketByLabel is the canonical bucket-membership table, keyed by
// normalised category label. Several legacy spellings map to one bucket.
var bucketByLabel = map[string]Bucket{
	"売上高": BucketSales,

	"期首商品棚卸":    BucketCostOfSales,
	"当期商品仕入":    BucketCostOfSales,
	"他勘定振替高(商)": BucketCostOfSales,
	"期末商品棚卸":    BucketCostOfSales,
	"売上原価":      BucketCostOfSales,

	"販売費":        BucketSGA,
	"一般管理費":      BucketSGA,
	"販売管理費":      BucketSGA,
	"販管費":        BucketSGA,
	"販売費及び一般管理費": BucketSGA,

	"営業外収益": BucketNonOperatingIncome,
	"営業外費用": BucketNonOperatingExpense,
	"特別利益":  BucketExtraordinaryIncome,
	"特別損失":  BucketExtraordinaryLoss,

	"法人税等":    BucketIncomeTaxes,
	"法人税等調整額": BucketIncomeTaxAdjustments,
}

var creditNormalBuckets = map[Bucket]bool{
	BucketSales:               true,
	BucketNonOperatingIncome:  true,
	BucketExtraordinaryIncome: true,
}

// NormalizeLabel folds full/half-width variants and trims whitespace so the
// legacy spellings hit the tables regardless of how they were keyed in.
func NormalizeLabel(label string) string {
	return strings.TrimSpace(norm.NFKC.String(label))
}

// CanonicalMajor resolves a major-category label through the alias table.
// The second return reports whether an alias was applied.
func CanonicalMajor(label string) (string, bool) {
	normalized := NormalizeLabel(label)
	if canonical, ok := majorAliases[normalized]; ok {
		return canonical, true
	}
	return normalized, false
}

// CategoryOrder returns the rank triple for a (major, mid, sub) category.
// Triples absent from the canonical table rank after every known triple.
func CategoryOrder(major, mid, sub string) (int, int, int) {
	canonicalMajor, _ := CanonicalMajor(major)
	majorRank, ok := majorOrder[canonicalMajor]
	if !ok {
		majorRank = unknownCategoryRank
	}
	midRank, ok := midOrder[NormalizeLabel(mid)]
	if !ok {
		midRank = unknownCategoryRank
	}
	subRank, ok := subOrder[NormalizeLabel(sub)]
	if !ok {
		subRank = unknownCategoryRank
	}
	return majorRank, midRank, subRank
}

// OrderKey is a total-order key over accounts: category ranks, then display
// rank (missing ranks sort last), then account name.
type OrderKey struct {
	Major int
	Mid   int
	Sub   int
	Rank  int
	Name  string
}

// OrderKeyFor builds the sort key for one account.
func OrderKeyFor(cat AccountCategory) OrderKey {
	major, mid, sub := CategoryOrder(cat.MajorCategory, cat.MidCategory, cat.SubCategory)
	rank := unknownDisplayRank
	if cat.DisplayRank != nil {
		rank = *cat.DisplayRank
	}
	return OrderKey{Major: major, Mid: mid, Sub: sub, Rank: rank, Name: cat.AccountName}
}

// Less imposes the canonical ordering.
func (k OrderKey) Less(o OrderKey) bool {
	if k.Major != o.Major {
		return k.Major < o.Major
	}
	if k.Mid != o.Mid {
		return k.Mid < o.Mid
	}
	if k.Sub != o.Sub {
		return k.Sub < o.Sub
	}
	if k.Rank != o.Rank {
		return k.Rank < o.Rank
	}
	return k.Name < o.Name
}

// BucketFor assigns an account to its waterfall bucket, preferring the sub
// category, then the mid category, then the free-text stair category.
func BucketFor(cat AccountCategory) (Bucket, bool) {
	if b, ok := bucketByLabel[NormalizeLabel(cat.SubCategory)]; ok {
		return b, true
	}
	if b, ok := bucketByLabel[NormalizeLabel(cat.MidCategory)]; ok {
		return b, true
	}
	if b, ok := bucketByLabel[NormalizeLabel(cat.PLCategory)]; ok {
		return b, true
	}
	return "", false
}

// BucketRank orders buckets for presentation using the stair-category table.
func BucketRank(cat AccountCategory) int {
	if r, ok := plCategoryOrder[NormalizeLabel(cat.SubCategory)]; ok {
		return r
	}
	if r, ok := plCategoryOrder[NormalizeLabel(cat.MidCategory)]; ok {
		return r
	}
	if r, ok := plCategoryOrder[NormalizeLabel(cat.PLCategory)]; ok {
		return r
	}
	return unknownBucketRank
}

// NormalSideFor resolves an account's normal balance side from the canonical
// tables. The second return is false when the major category is unknown, or
// when a P&L account maps to no bucket; callers treat that as a consistency
// violation rather than assuming a side.
func NormalSideFor(cat AccountCategory) (NormalSide, bool) {
	major, _ := CanonicalMajor(cat.MajorCategory)
	switch major {
	case "資産", "費用":
		return NormalSideDebit, true
	case "負債", "純資産", "収益":
		return NormalSideCredit, true
	case "損益":
		bucket, ok := BucketFor(cat)
		if !ok {
			return "", false
		}
		if creditNormalBuckets[bucket] {
			return NormalSideCredit, true
		}
		return NormalSideDebit, true
	}
	return "", false
}
