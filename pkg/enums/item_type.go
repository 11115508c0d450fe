package enums

import "fmt"

// ItemType mirrors the listing type copied onto an order.
type ItemType string

const (
	ItemTypePackage ItemType = "package"
	ItemTypeItem    ItemType = "item"
)

var validItemTypes = []ItemType{
	ItemTypePackage,
	ItemTypeItem,
}

// String implements fmt.Stringer.
func (i ItemType) String() string {
	return string(i)
}

// IsValid reports whether the value is a known ItemType.
func (i ItemType) IsValid() bool {
	for _, candidate := range validItemTypes {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseItemType converts raw input into a ItemType.
func ParseItemType(value string) (ItemType, error) {
	for _, candidate := range validItemTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item type %q", value)
}
