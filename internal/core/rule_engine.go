package core

import "strings"

// AccountRules maps posting purposes to ledger accounts so services never hardcode
// account codes.
type AccountRules struct {
	// PurchaseReturns is debited when stock goes back to a supplier.
	PurchaseReturns AccountSpec
	// SupplierPayablePrefix builds the per-supplier liability code (prefix-supplierCode)
	// for suppliers that carry no explicit payable account.
	SupplierPayablePrefix string
}

func DefaultAccountRules() AccountRules {
	return AccountRules{
		PurchaseReturns:       AccountSpec{Code: "4900", Name: "Purchase Returns", Type: Income},
		SupplierPayablePrefix: "2100",
	}
}

// SupplierPayable resolves the liability account for a supplier.
func (r AccountRules) SupplierPayable(s *Supplier) AccountSpec {
	code := strings.TrimSpace(s.PayableAccountCode)
	if code == "" {
		code = r.SupplierPayablePrefix + "-" + s.Code
	}
	return AccountSpec{Code: code, Name: "Accounts Payable - " + s.Name, Type: Liability}
}
