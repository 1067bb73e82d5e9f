package enums

import "testing"

func TestSellStatusTerminal(t *testing.T) {
	cases := map[SellStatus]bool{
		SellStatusPosted:    false,
		SellStatusPurchased: false,
		SellStatusCompleted: true,
		SellStatusCancelled: true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s: expected terminal=%v got %v", status, want, got)
		}
	}
}

func TestPaymentMethodSets(t *testing.T) {
	if !PaymentMethodPayPack.UsesGateway() {
		t.Fatal("paypack should use the gateway")
	}
	if PaymentMethodCash.UsesGateway() {
		t.Fatal("cash should not use the gateway")
	}
	if PaymentMethodPayPack.IsListingMethod() {
		t.Fatal("paypack is not recorded directly against listings")
	}
	if !PaymentMethodCheck.IsListingMethod() || PaymentMethodCheck.IsPurchaseMethod() {
		t.Fatal("check is a listing-only method")
	}
	if _, err := ParsePaymentMethod("bitcoin"); err == nil {
		t.Fatal("expected unknown method to fail")
	}
}

func TestParseHelpersRejectUnknownValues(t *testing.T) {
	if _, err := ParseUserRole("client"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
	if _, err := ParsePurchaseStatus("shipped"); err == nil {
		t.Fatal("expected unknown purchase status to fail")
	}
	if _, err := ParseMovementType("loss"); err == nil {
		t.Fatal("expected unknown movement type to fail")
	}
	if grade, err := ParseQualityGrade("grade_b"); err != nil || grade.Label() != "Grade B (Standard)" {
		t.Fatalf("unexpected grade parse result %q %v", grade, err)
	}
}

func TestRoleHelpers(t *testing.T) {
	if !RoleMinagriOfficer.IsStaff() || !RoleAdmin.IsStaff() {
		t.Fatal("admin and officer are staff")
	}
	if RoleFarmer.IsStaff() || RoleBuyer.IsStaff() {
		t.Fatal("farmer and buyer are not staff")
	}
}

func TestMovementDecrements(t *testing.T) {
	if !MovementOut.Decrements() || !MovementTransfer.Decrements() {
		t.Fatal("out and transfer decrement")
	}
	if MovementIn.Decrements() || MovementAdjustment.Decrements() {
		t.Fatal("in and adjustment do not decrement")
	}
}
