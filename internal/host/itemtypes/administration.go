package itemtypes

import (
	"strings"

	"github.com/JonMunkholm/etl/internal/host"
)

func init() {
	registerUser()
	registerLocation()
	registerSupplier()
}

func registerUser() {
	host.DefaultTypes.Register(host.ItemType{
		Name:  "User",
		Label: "Users",
		Group: "Administration",
		Fields: []host.FieldSpec{
			{Name: "name", Label: "Login", Rules: "required,max=255", Normalizer: strings.TrimSpace},
			{Name: "realname", Label: "Surname", Rules: "omitempty,max=255"},
			{Name: "firstname", Label: "First name", Rules: "omitempty,max=255"},
			{Name: "email", Label: "Email", Rules: "omitempty,email", Normalizer: host.Normalizers["lower"]},
			{Name: "phone", Label: "Phone", Rules: "omitempty,max=255"},
			{Name: "is_active", Label: "Active", Rules: "omitempty,oneof=0 1"},
		},
	})
}

func registerLocation() {
	host.DefaultTypes.Register(host.ItemType{
		Name:  "Location",
		Label: "Locations",
		Group: "Setup",
		Fields: []host.FieldSpec{
			{Name: "name", Label: "Name", Rules: "required,max=255", Normalizer: strings.TrimSpace},
			{Name: "address", Label: "Address", Rules: "omitempty,max=65535"},
			{Name: "postcode", Label: "Postal code", Rules: "omitempty,max=255", Normalizer: host.Normalizers["upper"]},
			{Name: "town", Label: "Town", Rules: "omitempty,max=255"},
			{Name: "country", Label: "Country", Rules: "omitempty,max=255"},
			{Name: "locations_id", Label: "Parent location", Rules: "omitempty,number"},
		},
	})
}

func registerSupplier() {
	host.DefaultTypes.Register(host.ItemType{
		Name:  "Supplier",
		Label: "Suppliers",
		Group: "Management",
		Fields: []host.FieldSpec{
			{Name: "name", Label: "Name", Rules: "required,max=255", Normalizer: strings.TrimSpace},
			{Name: "website", Label: "Website", Rules: "omitempty,url"},
			{Name: "email", Label: "Email", Rules: "omitempty,email", Normalizer: host.Normalizers["lower"]},
			{Name: "phonenumber", Label: "Phone", Rules: "omitempty,max=255"},
		},
	})
}
