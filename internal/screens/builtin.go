package screens

import (
	"slices"

	"github.com/civic-registry/console/internal/listctl"
)

var (
	stateLevel    = listctl.Level{Key: "state", Param: "state_id", Resource: "states", Label: "State"}
	districtLevel = listctl.Level{Key: "district", ParentKey: "state", Param: "district_id", Resource: "districts", Label: "District"}
	talukLevel    = listctl.Level{Key: "taluk", ParentKey: "district", Param: "taluk_id", Resource: "taluks", Label: "Taluk"}
	gpLevel       = listctl.Level{Key: "gp", ParentKey: "taluk", Param: "gram_panchayat_id", Resource: "gram-panchayats", Label: "Gram Panchayat"}
)

var standardPageSizes = []int{12, 24, 48}

func screen(name, title, resource string, levels []listctl.Level, sorts ...string) listctl.Screen {
	return listctl.Screen{
		Name:            name,
		Title:           title,
		Resource:        resource,
		Levels:          levels,
		SortFields:      sorts,
		DefaultSort:     sorts[0],
		PageSizes:       slices.Clone(standardPageSizes),
		DefaultPageSize: 12,
		Debounce:        listctl.DefaultDebounce,
	}
}

var nameCol = Column{Key: "name", Label: "Name", Sort: "name"}

// Builtin returns the console's screen definitions.
func Builtin() []Definition {
	return []Definition{
		{
			Screen:   screen("states", "States", "states", nil, "name", "population", "created_at"),
			Singular: "State",
			Columns: []Column{
				nameCol,
				{Key: "code", Label: "Code"},
				{Key: "type", Label: "Type"},
				{Key: "capital", Label: "Capital"},
				{Key: "population", Label: "Population", Sort: "population", Format: FormatNumber},
				{Key: "district_count", Label: "Districts", Format: FormatNumber},
			},
			Fields: []Field{
				{Name: "name", Label: "Name", Kind: KindText, Rules: "required,min=2,max=100"},
				{Name: "code", Label: "Code", Kind: KindText, Rules: "required,alpha,len=2"},
				{Name: "type", Label: "Type", Kind: KindChoice, Rules: "required,oneof=state union_territory", Choices: []string{"state", "union_territory"}},
				{Name: "capital", Label: "Capital", Kind: KindText, Rules: "omitempty,max=100"},
				{Name: "population", Label: "Population", Kind: KindInteger, Rules: "omitempty,gte=0"},
				{Name: "area_sq_km", Label: "Area (sq km)", Kind: KindDecimal, Rules: "omitempty,gte=0"},
			},
		},
		{
			Screen:   screen("districts", "Districts", "districts", []listctl.Level{stateLevel}, "name", "population", "created_at"),
			Singular: "District",
			Columns: []Column{
				nameCol,
				{Key: "code", Label: "Code"},
				{Key: "state_name", Label: "State"},
				{Key: "headquarters", Label: "Headquarters"},
				{Key: "population", Label: "Population", Sort: "population", Format: FormatNumber},
				{Key: "taluk_count", Label: "Taluks", Format: FormatNumber},
			},
			Fields: []Field{
				{Name: "name", Label: "Name", Kind: KindText, Rules: "required,min=2,max=100"},
				{Name: "code", Label: "Code", Kind: KindText, Rules: "omitempty,alphanum,max=10"},
				{Name: "state_id", Label: "State", Kind: KindRef, Rules: "required", Resource: "states"},
				{Name: "headquarters", Label: "Headquarters", Kind: KindText, Rules: "omitempty,max=100"},
				{Name: "population", Label: "Population", Kind: KindInteger, Rules: "omitempty,gte=0"},
			},
		},
		{
			Screen:   screen("taluks", "Taluks", "taluks", []listctl.Level{stateLevel, districtLevel}, "name", "population", "created_at"),
			Singular: "Taluk",
			Columns: []Column{
				nameCol,
				{Key: "code", Label: "Code"},
				{Key: "district_name", Label: "District"},
				{Key: "state_name", Label: "State"},
				{Key: "population", Label: "Population", Sort: "population", Format: FormatNumber},
				{Key: "gram_panchayat_count", Label: "Gram Panchayats", Format: FormatNumber},
			},
			Fields: []Field{
				{Name: "name", Label: "Name", Kind: KindText, Rules: "required,min=2,max=100"},
				{Name: "code", Label: "Code", Kind: KindText, Rules: "omitempty,alphanum,max=10"},
				{Name: "district_id", Label: "District", Kind: KindRef, Rules: "required", Resource: "districts"},
				{Name: "population", Label: "Population", Kind: KindInteger, Rules: "omitempty,gte=0"},
			},
		},
		{
			Screen:   screen("gram-panchayats", "Gram Panchayats", "gram-panchayats", []listctl.Level{stateLevel, districtLevel, talukLevel}, "name", "population", "created_at"),
			Singular: "Gram Panchayat",
			Columns: []Column{
				nameCol,
				{Key: "code", Label: "Code"},
				{Key: "taluk_name", Label: "Taluk"},
				{Key: "district_name", Label: "District"},
				{Key: "population", Label: "Population", Sort: "population", Format: FormatNumber},
				{Key: "village_count", Label: "Villages", Format: FormatNumber},
			},
			Fields: []Field{
				{Name: "name", Label: "Name", Kind: KindText, Rules: "required,min=2,max=100"},
				{Name: "code", Label: "Code", Kind: KindText, Rules: "omitempty,alphanum,max=12"},
				{Name: "taluk_id", Label: "Taluk", Kind: KindRef, Rules: "required", Resource: "taluks"},
				{Name: "population", Label: "Population", Kind: KindInteger, Rules: "omitempty,gte=0"},
			},
		},
		{
			Screen:   screen("villages", "Villages", "villages", []listctl.Level{stateLevel, districtLevel, talukLevel, gpLevel}, "name", "population", "pincode", "created_at"),
			Singular: "Village",
			Columns: []Column{
				nameCol,
				{Key: "pincode", Label: "PIN code", Sort: "pincode"},
				{Key: "gram_panchayat_name", Label: "Gram Panchayat"},
				{Key: "taluk_name", Label: "Taluk"},
				{Key: "district_name", Label: "District"},
				{Key: "population", Label: "Population", Sort: "population", Format: FormatNumber},
				{Key: "households", Label: "Households", Format: FormatNumber},
			},
			Fields: []Field{
				{Name: "name", Label: "Name", Kind: KindText, Rules: "required,min=2,max=100"},
				{Name: "code", Label: "Code", Kind: KindText, Rules: "omitempty,alphanum,max=16"},
				{Name: "gram_panchayat_id", Label: "Gram Panchayat", Kind: KindRef, Rules: "required", Resource: "gram-panchayats"},
				{Name: "pincode", Label: "PIN code", Kind: KindText, Rules: "omitempty,numeric,len=6"},
				{Name: "population", Label: "Population", Kind: KindInteger, Rules: "omitempty,gte=0"},
				{Name: "households", Label: "Households", Kind: KindInteger, Rules: "omitempty,gte=0"},
				{Name: "latitude", Label: "Latitude", Kind: KindDecimal, Rules: "omitempty,latitude"},
				{Name: "longitude", Label: "Longitude", Kind: KindDecimal, Rules: "omitempty,longitude"},
			},
		},
		{
			Screen:   screen("service-templates", "Service Templates", "service-templates", nil, "name", "category", "base_price", "created_at"),
			Singular: "Service Template",
			Columns: []Column{
				nameCol,
				{Key: "category", Label: "Category", Sort: "category"},
				{Key: "base_price", Label: "Base price", Sort: "base_price", Format: FormatNumber},
				{Key: "is_active", Label: "Active", Format: FormatBool},
			},
			Fields: []Field{
				{Name: "name", Label: "Name", Kind: KindText, Rules: "required,min=2,max=120"},
				{Name: "category", Label: "Category", Kind: KindText, Rules: "required,max=60"},
				{Name: "description", Label: "Description", Kind: KindTextarea, Rules: "omitempty,max=2000"},
				{Name: "base_price", Label: "Base price", Kind: KindDecimal, Rules: "required,gte=0"},
				{Name: "is_active", Label: "Active", Kind: KindBool},
			},
		},
		{
			Screen:   screen("commissions", "Commissions", "commissions", nil, "name", "rate", "created_at"),
			Singular: "Commission",
			Columns: []Column{
				nameCol,
				{Key: "service_template_name", Label: "Service"},
				{Key: "type", Label: "Type"},
				{Key: "rate", Label: "Rate", Sort: "rate", Format: FormatNumber},
				{Key: "is_active", Label: "Active", Format: FormatBool},
			},
			Fields: []Field{
				{Name: "name", Label: "Name", Kind: KindText, Rules: "required,max=120"},
				{Name: "service_template_id", Label: "Service template", Kind: KindRef, Rules: "required", Resource: "service-templates"},
				{Name: "type", Label: "Type", Kind: KindChoice, Rules: "required,oneof=percentage fixed", Choices: []string{"percentage", "fixed"}},
				{Name: "rate", Label: "Rate", Kind: KindDecimal, Rules: "required,gte=0"},
				{Name: "is_active", Label: "Active", Kind: KindBool},
			},
		},
		{
			Screen:   screen("providers", "Providers", "providers", nil, "name", "rating", "created_at"),
			Singular: "Provider",
			Columns: []Column{
				nameCol,
				{Key: "email", Label: "Email"},
				{Key: "phone", Label: "Phone"},
				{Key: "village_name", Label: "Village"},
				{Key: "rating", Label: "Rating", Sort: "rating", Format: FormatRating},
				{Key: "is_verified", Label: "Verified", Format: FormatBool},
			},
			Fields: []Field{
				{Name: "name", Label: "Name", Kind: KindText, Rules: "required,max=120"},
				{Name: "email", Label: "Email", Kind: KindText, Rules: "required,email"},
				{Name: "phone", Label: "Phone", Kind: KindText, Rules: "omitempty,e164"},
				{Name: "village_id", Label: "Village", Kind: KindRef, Rules: "required", Resource: "villages"},
				{Name: "is_verified", Label: "Verified", Kind: KindBool},
			},
		},
		{
			Screen:   screen("reviews", "Reviews", "reviews", nil, "created_at", "rating"),
			Singular: "Review",
			Columns: []Column{
				{Key: "provider_name", Label: "Provider"},
				{Key: "rating", Label: "Rating", Sort: "rating", Format: FormatRating},
				{Key: "comment", Label: "Comment"},
				{Key: "status", Label: "Status"},
			},
			Fields: []Field{
				{Name: "status", Label: "Status", Kind: KindChoice, Rules: "required,oneof=pending approved rejected", Choices: []string{"pending", "approved", "rejected"}},
				{Name: "comment", Label: "Comment", Kind: KindTextarea, Rules: "omitempty,max=2000"},
			},
		},
	}
}

// Default returns the catalog of built-in screens.
func Default() *Catalog {
	c, err := NewCatalog(Builtin()...)
	if err != nil {
		panic(err)
	}
	return c
}
