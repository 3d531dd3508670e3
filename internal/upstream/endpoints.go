package upstream

import (
	"fmt"

	"github.com/pribylovaa/locations-gateway/internal/models"
)

const apiPrefix = "/api/v1/"

// endpoints — пути marketplace API для одного уровня.
type endpoints struct {
	list, search, add, update, remove, bulk string
	// parentParam — query-параметр с id родителя; пусто для стран.
	parentParam string
}

func endpointsFor(level models.Level) (endpoints, error) {
	var plural, singular string

	switch level {
	case models.LevelCountries:
		plural, singular = "Countries", "Country"
	case models.LevelDistricts:
		plural, singular = "Districts", "District"
	case models.LevelCounties:
		plural, singular = "Counties", "County"
	case models.LevelSubcounties:
		plural, singular = "Subcounties", "Subcounty"
	case models.LevelParishes:
		plural, singular = "Parishes", "Parish"
	case models.LevelVillages:
		plural, singular = "Villages", "Village"
	default:
		return endpoints{}, fmt.Errorf("%w: %d", models.ErrUnknownLevel, level)
	}

	ep := endpoints{
		list:   apiPrefix + "get" + plural,
		search: apiPrefix + "search" + plural,
		add:    apiPrefix + "add" + singular,
		update: apiPrefix + "update" + singular,
		remove: apiPrefix + "delete" + singular,
		bulk:   apiPrefix + "addBulk" + plural,
	}
	if parent, ok := level.Parent(); ok {
		ep.parentParam = parent.Singular()
	}

	return ep, nil
}
