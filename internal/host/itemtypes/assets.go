package itemtypes

import (
	"strings"

	"github.com/JonMunkholm/etl/internal/host"
)

func init() {
	registerComputer()
	registerMonitor()
	registerPrinter()
	registerNetworkEquipment()
	registerSoftware()
}

// assetFields are shared by every hardware asset.
func assetFields() []host.FieldSpec {
	return []host.FieldSpec{
		{Name: "name", Label: "Name", Rules: "required,max=255", Normalizer: strings.TrimSpace},
		{Name: "serial", Label: "Serial number", Rules: "omitempty,max=255", Normalizer: normalizeSerial},
		{Name: "otherserial", Label: "Inventory number", Rules: "omitempty,max=255", Normalizer: strings.TrimSpace},
		{Name: "contact", Label: "Alternate username", Rules: "omitempty,max=255"},
		{Name: "comment", Label: "Comments", Rules: "omitempty,max=65535"},
		{Name: "locations_id", Label: "Location", Rules: "omitempty,number"},
		{Name: "states_id", Label: "Status", Rules: "omitempty,number"},
		{Name: "users_id_tech", Label: "Technician in charge", Rules: "omitempty,number"},
	}
}

func registerComputer() {
	host.DefaultTypes.Register(host.ItemType{
		Name:  "Computer",
		Label: "Computers",
		Group: "Assets",
		Fields: append(assetFields(),
			host.FieldSpec{Name: "uuid", Label: "UUID", Rules: "omitempty,uuid", Normalizer: strings.ToLower},
			host.FieldSpec{Name: "computertypes_id", Label: "Type", Rules: "omitempty,number"},
		),
	})
}

func registerMonitor() {
	host.DefaultTypes.Register(host.ItemType{
		Name:  "Monitor",
		Label: "Monitors",
		Group: "Assets",
		Fields: append(assetFields(),
			host.FieldSpec{Name: "size", Label: "Size", Rules: "omitempty,numeric"},
		),
	})
}

func registerPrinter() {
	host.DefaultTypes.Register(host.ItemType{
		Name:   "Printer",
		Label:  "Printers",
		Group:  "Assets",
		Fields: assetFields(),
	})
}

func registerNetworkEquipment() {
	host.DefaultTypes.Register(host.ItemType{
		Name:  "NetworkEquipment",
		Label: "Network devices",
		Group: "Assets",
		Fields: append(assetFields(),
			host.FieldSpec{Name: "ram", Label: "Memory", Rules: "omitempty,number"},
		),
	})
}

func registerSoftware() {
	host.DefaultTypes.Register(host.ItemType{
		Name:  "Software",
		Label: "Software",
		Group: "Assets",
		Fields: []host.FieldSpec{
			{Name: "name", Label: "Name", Rules: "required,max=255", Normalizer: strings.TrimSpace},
			{Name: "comment", Label: "Comments", Rules: "omitempty,max=65535"},
			{Name: "is_helpdesk_visible", Label: "Associable to a ticket", Rules: "omitempty,oneof=0 1"},
		},
	})
}

// normalizeSerial upper-cases serial numbers and strips inner spaces.
func normalizeSerial(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
