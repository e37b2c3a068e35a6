package domain

import "strings"

// Fare labels as rendered by consolidator portals.
const (
	FareBasicEconomy = "Basic Economy"
	FareEconomyPlus  = "Economy Plus"
	FareEconomy      = "Economy"
	FareBusiness     = "Business"
	FareFirst        = "First"
)

// FareLabel infers the fare label from the cabin and branded-fare code.
// Branded fare rules are checked before the cabin.
func FareLabel(cabin, brandedFare string) string {
	brand := strings.ToUpper(brandedFare)
	cabin = strings.ToUpper(cabin)

	switch {
	case strings.Contains(brand, "BASIC"):
		return FareBasicEconomy
	case strings.Contains(brand, "FLEX"), strings.Contains(brand, "PLUS"):
		return FareEconomyPlus
	case strings.Contains(brand, "BUSINESS"), cabin == "BUSINESS":
		return FareBusiness
	case strings.Contains(brand, "FIRST"), cabin == "FIRST":
		return FareFirst
	default:
		return FareEconomy
	}
}
