package reports

import (
	"reflect"
	"testing"

	"github.com/choubo-app/choubo/internal/catalog"
)

func balance(cat catalog.AccountCategory, opening, debit, credit, closing int64) AccountBalance {
	return AccountBalance{
		AccountID: cat.AccountID,
		Category:  cat,
		Name:      cat.AccountName,
		Opening:   opening,
		Debit:     debit,
		Credit:    credit,
		Closing:   closing,
	}
}

func TestBuildTreeOrdersAndRollsUp(t *testing.T) {
	accounts := testAccounts()
	balances := []AccountBalance{
		balance(accounts[accCapital], 500, 0, 0, 500),
		balance(accounts[accPayable], 0, 0, 300, 300),
		balance(accounts[accCash], 100, 1000, 0, 1100),
		balance(accounts[accSales], 0, 0, 1000, 1000),
	}

	tree := BuildTree(balances)
	if len(tree.Majors) != 3 {
		t.Fatalf("expected 3 majors, got %d", len(tree.Majors))
	}
	want := []string{"資産", "負債", "純資産"}
	for i, label := range want {
		if tree.Majors[i].Label != label {
			t.Fatalf("major %d: expected %s got %s", i, label, tree.Majors[i].Label)
		}
	}
	assets := tree.Majors[0]
	if assets.Totals.Closing != 1100 {
		t.Fatalf("assets closing rollup: expected 1100 got %d", assets.Totals.Closing)
	}
	if tree.Totals.Closing != 1900 {
		t.Fatalf("root closing rollup: expected 1900 got %d", tree.Totals.Closing)
	}
}

func TestBuildTreeExcludesProfitAndLossAccounts(t *testing.T) {
	accounts := testAccounts()
	tree := BuildTree([]AccountBalance{
		balance(accounts[accSales], 0, 0, 1000, 1000),
		balance(accounts[accPurchase], 0, 400, 0, 400),
	})
	if len(tree.Majors) != 0 {
		t.Fatalf("expected empty tree, got %d majors", len(tree.Majors))
	}
}

func TestBuildTreeResolvesLegacyMajorAlias(t *testing.T) {
	legacy := catalog.AccountCategory{
		AccountID: 50, AccountName: "旧借入金",
		MajorCategory: "財産", MidCategory: "固定負債", SubCategory: "固定負債",
	}
	canonical := catalog.AccountCategory{
		AccountID: 51, AccountName: "借入金",
		MajorCategory: "負債", MidCategory: "固定負債", SubCategory: "固定負債",
	}
	tree := BuildTree([]AccountBalance{
		balance(legacy, 0, 0, 100, 100),
		balance(canonical, 0, 0, 200, 200),
	})
	if len(tree.Majors) != 1 {
		t.Fatalf("alias should merge into one major, got %d", len(tree.Majors))
	}
	if tree.Majors[0].Label != "負債" {
		t.Fatalf("expected canonical 負債, got %s", tree.Majors[0].Label)
	}
	if tree.Majors[0].Totals.Closing != 300 {
		t.Fatalf("expected merged closing 300, got %d", tree.Majors[0].Totals.Closing)
	}
}

func TestBuildTreeOrdersMidCategoriesByLiquidity(t *testing.T) {
	fixed := catalog.AccountCategory{
		AccountID: 60, AccountName: "建物",
		MajorCategory: "資産", MidCategory: "固定資産", SubCategory: "有形固定資産",
	}
	accounts := testAccounts()
	tree := BuildTree([]AccountBalance{
		balance(fixed, 0, 500, 0, 500),
		balance(accounts[accCash], 0, 100, 0, 100),
	})
	mids := tree.Majors[0].Mids
	if len(mids) != 2 || mids[0].Label != "流動資産" || mids[1].Label != "固定資産" {
		t.Fatalf("unexpected mid ordering: %+v", mids)
	}
}

func TestBuildTreeIsDeterministic(t *testing.T) {
	accounts := testAccounts()
	balances := []AccountBalance{
		balance(accounts[accPayable], 0, 0, 300, 300),
		balance(accounts[accCash], 100, 1000, 0, 1100),
		balance(accounts[accCapital], 500, 0, 0, 500),
	}
	first := BuildTree(balances)
	second := BuildTree(balances)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("tree build is not deterministic")
	}
}
