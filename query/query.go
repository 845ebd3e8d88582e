// Package query implements the server-side comparison logic behind the
// leader-only /compare endpoint: given two cities' listings for the same
// make/model, find the cheapest car and the best price-per-mile deal.
package query

import "pricecache/listings"

// Cheapest returns the lowest-priced listing in rows, or ok=false if rows
// is empty.
func Cheapest(rows []listings.Listing) (listings.Listing, bool) {
	if len(rows) == 0 {
		return listings.Listing{}, false
	}

	best := rows[0]
	for _, r := range rows[1:] {
		if r.Price < best.Price {
			best = r
		}
	}
	return best, true
}

// CityResult is one city's half of a two-city comparison.
type CityResult struct {
	City    string
	Listing listings.Listing
	Found   bool
}

// CompareCheapest finds the cheapest listing in each city and reports
// which city is the better buy, mirroring the original client's
// run_cheapest_lookup.
func CompareCheapest(city1 string, rows1 []listings.Listing, city2 string, rows2 []listings.Listing) (CityResult, CityResult, string) {
	r1, ok1 := Cheapest(rows1)
	r2, ok2 := Cheapest(rows2)

	result1 := CityResult{City: city1, Listing: r1, Found: ok1}
	result2 := CityResult{City: city2, Listing: r2, Found: ok2}

	better := ""
	if ok1 && ok2 {
		if r1.Price < r2.Price {
			better = city1
		} else {
			better = city2
		}
	}

	return result1, result2, better
}

// PricePerMile computes, for each city, the price-per-mileage ratio of that
// city's cheapest listing (a proxy for arbitrage opportunity: more miles for
// less money per mile driven) and reports which city has the lower ratio.
// Other listings' ratios are not considered. Cities with no listing or a
// zero-mileage cheapest listing are excluded from the comparison.
func PricePerMile(city1 string, rows1 []listings.Listing, city2 string, rows2 []listings.Listing) (map[string]float64, string) {
	ratios := make(map[string]float64)

	if r, ok := Cheapest(rows1); ok && r.Mileage > 0 {
		ratios[city1] = r.Price / r.Mileage
	}
	if r, ok := Cheapest(rows2); ok && r.Mileage > 0 {
		ratios[city2] = r.Price / r.Mileage
	}

	if len(ratios) != 2 {
		return ratios, ""
	}

	better := city1
	if ratios[city2] < ratios[city1] {
		better = city2
	}
	return ratios, better
}
