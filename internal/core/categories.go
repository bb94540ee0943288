package core

// FallbackLabel is shown for category codes the registry does not know.
const FallbackLabel = "N/A"

// Category is one registered expense category.
type Category struct {
	Code  string
	Label string
}

// Registry is a static, ordered mapping from category code to display label.
type Registry struct {
	order  []Category
	labels map[string]string
}

// NewRegistry builds a registry. Later duplicates of a code are ignored.
func NewRegistry(categories ...Category) *Registry {
	r := &Registry{labels: make(map[string]string, len(categories))}
	for _, c := range categories {
		if c.Code == "" {
			continue
		}
		if _, ok := r.labels[c.Code]; ok {
			continue
		}
		r.labels[c.Code] = c.Label
		r.order = append(r.order, c)
	}
	return r
}

// DefaultRegistry is the category set offered by the expense form.
var DefaultRegistry = NewRegistry(
	Category{Code: "groceries", Label: "Groceries"},
	Category{Code: "rent", Label: "Rent"},
	Category{Code: "utilities", Label: "Utilities"},
	Category{Code: "transport", Label: "Transport"},
	Category{Code: "dining", Label: "Dining Out"},
	Category{Code: "health", Label: "Health"},
	Category{Code: "shopping", Label: "Shopping"},
	Category{Code: "fun", Label: "Fun"},
	Category{Code: "education", Label: "Education"},
	Category{Code: "travel", Label: "Travel"},
	Category{Code: "other", Label: "Other"},
)

// Label returns the display label for code, or FallbackLabel when unknown.
func (r *Registry) Label(code string) string {
	if l, ok := r.labels[code]; ok {
		return l
	}
	return FallbackLabel
}

// Has reports whether code is registered.
func (r *Registry) Has(code string) bool {
	_, ok := r.labels[code]
	return ok
}

// Categories returns the registered categories in declaration order.
func (r *Registry) Categories() []Category {
	return append([]Category(nil), r.order...)
}
