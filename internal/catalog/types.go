package catalog

// Category groups KPIs into dashboard sections.
type Category string

const (
	CategoryGeneral    Category = "General"
	CategorySales      Category = "Sales"
	CategoryCommunity  Category = "Community"
	CategoryMarketing  Category = "Marketing"
	CategoryPeople     Category = "People"
	CategoryHelpdesk   Category = "Helpdesk"
	CategoryProduction Category = "Production"
)

var categoryOrder = []Category{
	CategoryGeneral,
	CategorySales,
	CategoryCommunity,
	CategoryMarketing,
	CategoryPeople,
	CategoryHelpdesk,
	CategoryProduction,
}

var categoryColors = map[Category]string{
	CategoryGeneral:    "#FF914D",
	CategorySales:      "#3B82F6",
	CategoryCommunity:  "#14B8A6",
	CategoryMarketing:  "#8B5CF6",
	CategoryPeople:     "#EC4899",
	CategoryHelpdesk:   "#06B6D4",
	CategoryProduction: "#6366F1",
}

// Categories returns the fixed dashboard section order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Color returns the accent colour for a category.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return "#94A3B8"
}

func (c Category) valid() bool {
	_, ok := categoryColors[c]
	return ok
}

// Visualization is the chart kind a KPI renders as.
type Visualization string

const (
	Counter     Visualization = "Counter"
	AreaChart   Visualization = "AreaChart"
	LineChart   Visualization = "LineChart"
	Sparkline   Visualization = "Sparkline"
	BarChart    Visualization = "BarChart"
	GroupedBar  Visualization = "GroupedBar"
	Donut       Visualization = "Donut"
	Radar       Visualization = "Radar"
	Leaderboard Visualization = "Leaderboard"
	Gauge       Visualization = "Gauge"
	Progress    Visualization = "Progress"
	Kanban      Visualization = "Kanban"
	Grid        Visualization = "Grid"
	Map         Visualization = "Map"
)

var visualizations = map[Visualization]bool{
	Counter: true, AreaChart: true, LineChart: true, Sparkline: true,
	BarChart: true, GroupedBar: true, Donut: true, Radar: true,
	Leaderboard: true, Gauge: true, Progress: true, Kanban: true,
	Grid: true, Map: true,
}

// Visualizations lists every supported chart kind.
func Visualizations() []Visualization {
	return []Visualization{
		Counter, AreaChart, LineChart, Sparkline, BarChart, GroupedBar, Donut,
		Radar, Leaderboard, Gauge, Progress, Kanban, Grid, Map,
	}
}

// InputType is the storage shape of one KPI input.
type InputType string

const (
	InputNumber InputType = "number"
	InputText   InputType = "text"
	InputDate   InputType = "date"
	InputArray  InputType = "array"
)

// Input is one named field of a KPI form.
type Input struct {
	ID          string    `yaml:"id" json:"id"`
	Label       string    `yaml:"label" json:"label"`
	Type        InputType `yaml:"type" json:"type"`
	Placeholder string    `yaml:"placeholder,omitempty" json:"placeholder,omitempty"`
}

// IsArray reports whether the input holds one slot per calendar month.
func (i Input) IsArray() bool {
	return i.Type == InputArray
}

// Definition is an immutable catalog entry.
type Definition struct {
	ID            string        `yaml:"id" json:"id"`
	Title         string        `yaml:"title" json:"title"`
	Category      Category      `yaml:"category" json:"category"`
	Visualization Visualization `yaml:"visualization" json:"visualization"`
	Description   string        `yaml:"description,omitempty" json:"description,omitempty"`
	LineNames     []string      `yaml:"line_names,omitempty" json:"lineNames,omitempty"`
	Inputs        []Input       `yaml:"inputs" json:"inputs"`
}

// Input returns the named input.
func (d Definition) Input(id string) (Input, bool) {
	for _, in := range d.Inputs {
		if in.ID == id {
			return in, true
		}
	}
	return Input{}, false
}
