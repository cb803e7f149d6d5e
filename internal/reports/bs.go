package reports

import (
	"sort"

	"github.com/choubo-app/choubo/internal/catalog"
)

// Rollup accumulates the four aggregate columns across descendant accounts.
type Rollup struct {
	Opening int64 `json:"opening"`
	Debit   int64 `json:"debit"`
	Credit  int64 `json:"credit"`
	Closing int64 `json:"closing"`
}

func (r *Rollup) add(b AccountBalance) {
	r.Opening += b.Opening
	r.Debit += b.Debit
	r.Credit += b.Credit
	r.Closing += b.Closing
}

func (r *Rollup) merge(o Rollup) {
	r.Opening += o.Opening
	r.Debit += o.Debit
	r.Credit += o.Credit
	r.Closing += o.Closing
}

// AccountLine is one account row inside a report grouping.
type AccountLine struct {
	AccountID int64  `json:"accountId"`
	Name      string `json:"name"`
	Opening   int64  `json:"opening"`
	Debit     int64  `json:"debit"`
	Credit    int64  `json:"credit"`
	Closing   int64  `json:"closing"`
}

func accountLine(b AccountBalance) AccountLine {
	return AccountLine{
		AccountID: b.AccountID,
		Name:      b.Name,
		Opening:   b.Opening,
		Debit:     b.Debit,
		Credit:    b.Credit,
		Closing:   b.Closing,
	}
}

// SubNode groups the accounts of one sub category.
type SubNode struct {
	Label    string        `json:"label"`
	Accounts []AccountLine `json:"accounts"`
	Totals   Rollup        `json:"totals"`
}

type subGroup struct {
	key      subKey
	balances []AccountBalance
	totals   Rollup
}

func (g *subGroup) node() SubNode {
	sort.SliceStable(g.balances, func(i, j int) bool {
		return catalog.OrderKeyFor(g.balances[i].Category).Less(catalog.OrderKeyFor(g.balances[j].Category))
	})
	node := SubNode{Label: g.key.sub, Totals: g.totals}
	for _, b := range g.balances {
		node.Accounts = append(node.Accounts, accountLine(b))
	}
	return node
}

// MidNode groups the sub categories of one mid category.
type MidNode struct {
	Label  string    `json:"label"`
	Subs   []SubNode `json:"subs"`
	Totals Rollup    `json:"totals"`
}

// MajorNode is one balance-sheet root: 資産, 負債 or 純資産.
type MajorNode struct {
	Label  string    `json:"label"`
	Mids   []MidNode `json:"mids"`
	Totals Rollup    `json:"totals"`
}

// Tree is the ordered balance-sheet hierarchy. Every level is a slice, not
// a map, so two builds over the same balances render identically.
type Tree struct {
	Majors []MajorNode `json:"majors"`
	Totals Rollup      `json:"totals"`
}

type subKey struct {
	major, mid, sub string
}

func (k subKey) less(o subKey) bool {
	ma, mi, su := catalog.CategoryOrder(k.major, k.mid, k.sub)
	oa, oi, os := catalog.CategoryOrder(o.major, o.mid, o.sub)
	if ma != oa {
		return ma < oa
	}
	if k.major != o.major {
		return k.major < o.major
	}
	if mi != oi {
		return mi < oi
	}
	if k.mid != o.mid {
		return k.mid < o.mid
	}
	if su != os {
		return su < os
	}
	return k.sub < o.sub
}

// BuildTree groups balance-sheet accounts into the major/mid/sub hierarchy
// with rollups at every level. Profit-and-loss accounts are excluded; they
// belong to the waterfall.
func BuildTree(balances []AccountBalance) Tree {
	groups := make(map[subKey]*subGroup)
	var order []subKey
	for _, b := range balances {
		if !b.Category.IsBalanceSheet() {
			continue
		}
		major, _ := catalog.CanonicalMajor(b.Category.MajorCategory)
		key := subKey{
			major: major,
			mid:   catalog.NormalizeLabel(b.Category.MidCategory),
			sub:   catalog.NormalizeLabel(b.Category.SubCategory),
		}
		g, ok := groups[key]
		if !ok {
			g = &subGroup{key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.balances = append(g.balances, b)
		g.totals.add(b)
	}
	sort.Slice(order, func(i, j int) bool { return order[i].less(order[j]) })

	// Keys are sorted major-first, mid-second, so each grouping level is a
	// contiguous run.
	var tree Tree
	for i := 0; i < len(order); {
		major := MajorNode{Label: order[i].major}
		for i < len(order) && order[i].major == major.Label {
			mid := MidNode{Label: order[i].mid}
			for i < len(order) && order[i].major == major.Label && order[i].mid == mid.Label {
				node := groups[order[i]].node()
				mid.Subs = append(mid.Subs, node)
				mid.Totals.merge(node.Totals)
				i++
			}
			major.Mids = append(major.Mids, mid)
			major.Totals.merge(mid.Totals)
		}
		tree.Majors = append(tree.Majors, major)
		tree.Totals.merge(major.Totals)
	}
	return tree
}
