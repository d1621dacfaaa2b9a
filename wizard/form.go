// Package wizard holds the multi-page questionnaire: the field catalog, the
// per-session state and the navigation rules between pages.
package wizard

import "strings"

type Kind string

const (
	KindCategorical Kind = "categorical"
	KindInteger     Kind = "integer"
	KindFloat       Kind = "float"
)

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field is one input of the form. Min/Max/Step apply to numeric kinds,
// Options to categorical ones. Default is the value a widget shows before
// the user touches it; it is not part of the state unless prefilled.
type Field struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Kind    Kind     `json:"kind"`
	Options []Option `json:"options,omitempty"`
	Min     float64  `json:"min,omitempty"`
	Max     float64  `json:"max,omitempty"`
	Step    float64  `json:"step,omitempty"`
	Default any      `json:"default,omitempty"`
}

type Page struct {
	Ordinal int     `json:"ordinal"`
	Title   string  `json:"title"`
	Fields  []Field `json:"fields"`
}

// Form is the immutable page layout shared by all sessions.
type Form struct {
	pages   []Page
	fields  map[string]Field
	order   []string
	aliases map[string]string
}

func NewForm(pages []Page, aliases map[string]string) *Form {
	f := &Form{
		fields:  make(map[string]Field),
		aliases: make(map[string]string, len(aliases)),
	}
	for i, page := range pages {
		page.Ordinal = i + 1
		page = page.clone()
		f.pages = append(f.pages, page)
		for _, field := range page.Fields {
			f.fields[field.Name] = field
			f.order = append(f.order, field.Name)
		}
	}
	for alias, name := range aliases {
		f.aliases[alias] = name
	}
	return f
}

func (f *Form) PageCount() int {
	return len(f.pages)
}

// Page returns the page with the given 1-based ordinal.
func (f *Form) Page(ordinal int) (Page, bool) {
	if ordinal < 1 || ordinal > len(f.pages) {
		return Page{}, false
	}
	return f.pages[ordinal-1].clone(), true
}

func (f *Form) Pages() []Page {
	pages := make([]Page, len(f.pages))
	for i, page := range f.pages {
		pages[i] = page.clone()
	}
	return pages
}

// FieldNames lists every field in page order.
func (f *Form) FieldNames() []string {
	return append([]string(nil), f.order...)
}

// Lookup resolves a field by canonical name, alias, or case-insensitive name.
func (f *Form) Lookup(name string) (Field, bool) {
	if field, ok := f.fields[name]; ok {
		return field.clone(), true
	}
	if canonical, ok := f.aliases[name]; ok {
		field, ok := f.fields[canonical]
		return field.clone(), ok
	}
	for _, candidate := range f.order {
		if strings.EqualFold(candidate, name) {
			return f.fields[candidate].clone(), true
		}
	}
	return Field{}, false
}

// clone copies the option list so callers cannot edit the shared form.
func (field Field) clone() Field {
	if field.Options != nil {
		field.Options = append([]Option(nil), field.Options...)
	}
	return field
}

func (page Page) clone() Page {
	fields := make([]Field, len(page.Fields))
	for i, field := range page.Fields {
		fields[i] = field.clone()
	}
	page.Fields = fields
	return page
}

var (
	yesNo = []Option{{Value: "Yes", Label: "Yes"}, {Value: "No", Label: "No"}}

	frequency = []Option{
		{Value: "No", Label: "No"},
		{Value: "Sometimes", Label: "Sometimes"},
		{Value: "Frequently", Label: "Frequently"},
		{Value: "Always", Label: "Always"},
	}
)

// ObesityForm is the four page questionnaire the obesity model was trained on.
func ObesityForm() *Form {
	return NewForm([]Page{
		{
			Title: "Personal Info",
			Fields: []Field{
				{Name: "Gender", Label: "Gender", Kind: KindCategorical, Default: "Female",
					Options: []Option{{Value: "Female", Label: "Female"}, {Value: "Male", Label: "Male"}}},
				{Name: "Age", Label: "Age", Kind: KindInteger, Min: 1, Max: 120, Step: 1},
				{Name: "Height", Label: "Height (m)", Kind: KindFloat, Min: 0.5, Max: 2.5, Step: 0.01},
				{Name: "Weight", Label: "Weight (kg)", Kind: KindFloat, Min: 10, Max: 300, Step: 0.1},
				{Name: "family_history_with_overweight", Label: "Family History with Overweight", Kind: KindCategorical, Options: yesNo, Default: "No"},
			},
		},
		{
			Title: "Eating Habits",
			Fields: []Field{
				{Name: "FAVC", Label: "High Caloric Food Consumption", Kind: KindCategorical, Options: yesNo, Default: "No"},
				{Name: "FCVC", Label: "Vegetable Consumption Frequency", Kind: KindInteger, Min: 1, Max: 3, Step: 1, Default: 2},
				{Name: "NCP", Label: "Number of Main Meals", Kind: KindInteger, Min: 1, Max: 4, Step: 1, Default: 3},
				{Name: "CAEC", Label: "Consumption of Food Between Meals", Kind: KindCategorical, Options: frequency, Default: "No"},
			},
		},
		{
			Title: "Physical Activity",
			Fields: []Field{
				{Name: "FAF", Label: "Physical Activity Frequency", Kind: KindInteger, Min: 0, Max: 3, Step: 1, Default: 1},
				{Name: "TUE", Label: "Technology Usage Time", Kind: KindInteger, Min: 0, Max: 2, Step: 1, Default: 1},
				{Name: "SMOKE", Label: "Do You Smoke?", Kind: KindCategorical, Options: yesNo, Default: "No"},
			},
		},
		{
			Title: "Additional Info",
			Fields: []Field{
				{Name: "CH2O", Label: "Daily Water Consumption (L)", Kind: KindFloat, Min: 1.0, Max: 3.0, Step: 0.1, Default: 2.0},
				{Name: "SCC", Label: "Calories Consumption Monitoring", Kind: KindCategorical, Options: yesNo, Default: "No"},
				{Name: "CALC", Label: "Alcohol Consumption Frequency", Kind: KindCategorical, Options: frequency, Default: "No"},
				{Name: "MTRANS", Label: "Transportation", Kind: KindCategorical, Default: "Automobile",
					Options: []Option{
						{Value: "Automobile", Label: "Automobile"},
						{Value: "Motorbike", Label: "Motorbike"},
						{Value: "Walking", Label: "Walking"},
						{Value: "Bike", Label: "Bike"},
						{Value: "Public_Transportation", Label: "Public Transportation"},
					}},
			},
		},
	}, map[string]string{"family_history": "family_history_with_overweight"})
}
