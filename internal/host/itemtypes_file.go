package host

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// itemTypesFile is the YAML layout accepted by LoadItemTypes:
//
//	itemtypes:
//	  - name: Person
//	    group: Directory
//	    fields:
//	      - name: name
//	        rules: required,max=255
//	      - name: email
//	        rules: omitempty,email
//	        normalize: lower
type itemTypesFile struct {
	ItemTypes []struct {
		Name   string `yaml:"name"`
		Label  string `yaml:"label"`
		Group  string `yaml:"group"`
		Fields []struct {
			Name      string `yaml:"name"`
			Label     string `yaml:"label"`
			Rules     string `yaml:"rules"`
			Normalize string `yaml:"normalize"`
		} `yaml:"fields"`
	} `yaml:"itemtypes"`
}

// Normalizers usable from item type files.
var Normalizers = map[string]func(string) string{
	"trim":  strings.TrimSpace,
	"lower": func(s string) string { return strings.ToLower(strings.TrimSpace(s)) },
	"upper": func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) },
}

// LoadItemTypes reads item types from a YAML file into reg and returns how
// many were added.
func LoadItemTypes(reg *TypeRegistry, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read item types: %w", err)
	}
	return ParseItemTypes(reg, data)
}

// ParseItemTypes registers the item types described by YAML data.
func ParseItemTypes(reg *TypeRegistry, data []byte) (int, error) {
	var file itemTypesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse item types: %w", err)
	}

	added := 0
	for _, def := range file.ItemTypes {
		t := ItemType{Name: def.Name, Label: def.Label, Group: def.Group}
		for _, f := range def.Fields {
			spec := FieldSpec{Name: f.Name, Label: f.Label, Rules: f.Rules}
			if f.Normalize != "" {
				norm, ok := Normalizers[f.Normalize]
				if !ok {
					return added, fmt.Errorf("item type %s field %s: unknown normalizer %q", def.Name, f.Name, f.Normalize)
				}
				spec.Normalizer = norm
			}
			t.Fields = append(t.Fields, spec)
		}
		if err := reg.TryRegister(t); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}
