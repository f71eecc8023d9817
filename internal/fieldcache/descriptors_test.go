package fieldcache

import "testing"

func TestTankFieldUnitsCoversEveryTankInfoField(t *testing.T) {
	units := TankFieldUnits()
	if got := units["SizeLiters"]; got != "liters" {
		t.Fatalf("SizeLiters unit = %q, want %q", got, "liters")
	}
	if got := units["WorkingBar"]; got != "bar" {
		t.Fatalf("WorkingBar unit = %q, want %q", got, "bar")
	}
}
