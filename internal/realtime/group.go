package realtime

import "fmt"

// Group names a set of connections that receive a class of event together.
// The names mirror the socket rooms of the original dashboard clients, so
// both the legacy unscoped groups and the restaurant-scoped ones coexist
// without special-casing in the registry.
type Group string

// AdminGroup is the staff dashboard group for one restaurant.
func AdminGroup(restaurantID int64) Group {
	return Group(fmt.Sprintf("admin_%d", restaurantID))
}

// GlobalAdminGroup is the legacy dashboard group joined when no restaurant
// is given.
func GlobalAdminGroup() Group {
	return Group("admins")
}

// TableGroup is the customer-session group for one table at one restaurant.
func TableGroup(tableNumber int, restaurantID int64) Group {
	return Group(fmt.Sprintf("table_%d_%d", tableNumber, restaurantID))
}

// LegacyTableGroup is the table-number-only group joined when no restaurant
// is given.
func LegacyTableGroup(tableNumber int) Group {
	return Group(fmt.Sprintf("table_%d", tableNumber))
}
