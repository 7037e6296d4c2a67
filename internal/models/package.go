package models

// InternetPackage is a purchasable carrier data bundle
type InternetPackage struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	DataGB       int    `json:"data_gb"`
	ValidityDays int    `json:"validity_days"`
	USSDCode     string `json:"ussd_code"`
	Description  string `json:"description"`
}

// LimitBytes is the package volume in bytes (1 GB = 1024^3 bytes)
func (p InternetPackage) LimitBytes() uint64 {
	return uint64(p.DataGB) * 1024 * 1024 * 1024
}

// AvailablePackages returns the static carrier catalog
func AvailablePackages() []InternetPackage {
	return []InternetPackage{
		{
			ID:           1,
			Name:         "Express",
			DataGB:       1,
			ValidityDays: 1,
			USSDCode:     "*164*2*1*1#",
			Description:  "1 GB valid for 24 hours",
		},
		{
			ID:           2,
			Name:         "Découverte",
			DataGB:       5,
			ValidityDays: 3,
			USSDCode:     "*164*2*2*1#",
			Description:  "5 GB valid for 3 days",
		},
		{
			ID:           3,
			Name:         "Évasion",
			DataGB:       12,
			ValidityDays: 7,
			USSDCode:     "*164*2*3*1#",
			Description:  "12 GB valid for 7 days",
		},
		{
			ID:           4,
			Name:         "Confort",
			DataGB:       20,
			ValidityDays: 30,
			USSDCode:     "*164*2*4*1#",
			Description:  "20 GB valid for 30 days",
		},
	}
}

// FindPackage looks a package up by id
func FindPackage(id int) (InternetPackage, bool) {
	for _, p := range AvailablePackages() {
		if p.ID == id {
			return p, true
		}
	}
	return InternetPackage{}, false
}
