package query

import (
	"testing"

	"pricecache/listings"
)

func TestCheapestPicksLowestPrice(t *testing.T) {
	rows := []listings.Listing{
		{Price: 20000, Model: "Camry"},
		{Price: 15000, Model: "Camry"},
		{Price: 18000, Model: "Camry"},
	}
	best, ok := Cheapest(rows)
	if !ok || best.Price != 15000 {
		t.Errorf("Cheapest() = (%+v, %v), want price 15000", best, ok)
	}
}

func TestCheapestEmpty(t *testing.T) {
	_, ok := Cheapest(nil)
	if ok {
		t.Error("Cheapest(nil) should report not found")
	}
}

func TestCompareCheapestPicksBetterCity(t *testing.T) {
	sf := []listings.Listing{{Price: 20000}}
	la := []listings.Listing{{Price: 18000}}

	r1, r2, better := CompareCheapest("SF", sf, "LA", la)
	if better != "LA" {
		t.Errorf("better city = %q, want LA", better)
	}
	if !r1.Found || !r2.Found {
		t.Error("both cities should report a found listing")
	}
}

func TestPricePerMileRequiresBothCities(t *testing.T) {
	sf := []listings.Listing{{Price: 20000, Mileage: 40000}}
	ratios, better := PricePerMile("SF", sf, "LA", nil)
	if better != "" {
		t.Errorf("expected no comparison with missing data, got better=%q", better)
	}
	if len(ratios) != 1 {
		t.Errorf("expected 1 ratio, got %d", len(ratios))
	}
}

func TestPricePerMilePicksLowerRatio(t *testing.T) {
	sf := []listings.Listing{{Price: 20000, Mileage: 40000}} // 0.5/mile
	la := []listings.Listing{{Price: 18000, Mileage: 60000}} // 0.3/mile

	_, better := PricePerMile("SF", sf, "LA", la)
	if better != "LA" {
		t.Errorf("better city = %q, want LA", better)
	}
}
