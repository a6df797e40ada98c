package catalog

import (
	"fmt"

	"go-reporting/internal/common/apperr"
)

// Registry is the closed whitelist of reportable entities. It is hand-maintained
// here rather than derived from live storage schema, so nothing internal leaks
// into the reporting surface by accident.
type Registry struct {
	ordered  []string
	entities map[string]*EntityDescriptor
}

// NewRegistry builds the catalog. Duplicate entity or field names are a
// programming error and panic at startup.
func NewRegistry() *Registry {
	return buildRegistry(whitelist())
}

func buildRegistry(descriptors []EntityDescriptor) *Registry {
	r := &Registry{entities: make(map[string]*EntityDescriptor, len(descriptors))}
	for i := range descriptors {
		e := descriptors[i]
		if _, dup := r.entities[e.Name]; dup {
			panic(fmt.Sprintf("catalog: duplicate entity %q", e.Name))
		}
		e.fieldIndex = make(map[string]int, len(e.Fields))
		for j, f := range e.Fields {
			if _, dup := e.fieldIndex[f.Name]; dup {
				panic(fmt.Sprintf("catalog: duplicate field %q on entity %q", f.Name, e.Name))
			}
			e.fieldIndex[f.Name] = j
		}
		r.entities[e.Name] = &e
		r.ordered = append(r.ordered, e.Name)
	}
	return r
}

// Entities returns every whitelisted entity in declaration order.
func (r *Registry) Entities() []EntityDescriptor {
	out := make([]EntityDescriptor, 0, len(r.ordered))
	for _, name := range r.ordered {
		out = append(out, *r.entities[name])
	}
	return out
}

// Entity resolves a descriptor by name.
func (r *Registry) Entity(name string) (*EntityDescriptor, error) {
	e, ok := r.entities[name]
	if !ok {
		return nil, apperr.NotFound("unknown entity '%s'", name)
	}
	return e, nil
}

// Fields lists the field descriptors of the named entity.
func (r *Registry) Fields(entityName string) ([]FieldDescriptor, error) {
	e, err := r.Entity(entityName)
	if err != nil {
		return nil, err
	}
	return e.Fields, nil
}

func whitelist() []EntityDescriptor {
	return []EntityDescriptor{
		{
			Name:  "customers",
			Label: "Customers",
			Fields: []FieldDescriptor{
				{Name: "name", Label: "Name", Type: FieldTypeString, Filterable: true},
				{Name: "email", Label: "Email", Type: FieldTypeString, Filterable: true},
				{Name: "city", Label: "City", Type: FieldTypeString, Filterable: true},
				{Name: "segment", Label: "Segment", Type: FieldTypeString, Filterable: true},
				{Name: "credit_limit", Label: "Credit Limit", Type: FieldTypeNumber, Filterable: true, Aggregatable: true},
				{Name: "active", Label: "Active", Type: FieldTypeBoolean, Filterable: true},
				{Name: "created_at", Label: "Created At", Type: FieldTypeDate, Filterable: true},
			},
		},
		{
			Name:  "sales",
			Label: "Sales",
			Fields: []FieldDescriptor{
				{Name: "reference", Label: "Reference", Type: FieldTypeString, Filterable: true},
				{Name: "customer_name", Label: "Customer", Type: FieldTypeString, Filterable: true},
				{Name: "city", Label: "City", Type: FieldTypeString, Filterable: true},
				{Name: "total_amount", Label: "Total Amount", Type: FieldTypeNumber, Filterable: true, Aggregatable: true},
				{Name: "quantity", Label: "Quantity", Type: FieldTypeNumber, Filterable: true, Aggregatable: true},
				{Name: "paid", Label: "Paid", Type: FieldTypeBoolean, Filterable: true},
				{Name: "sale_date", Label: "Sale Date", Type: FieldTypeDate, Filterable: true},
			},
		},
		{
			Name:  "products",
			Label: "Products",
			Fields: []FieldDescriptor{
				{Name: "name", Label: "Name", Type: FieldTypeString, Filterable: true},
				{Name: "sku", Label: "SKU", Type: FieldTypeString, Filterable: true},
				{Name: "category", Label: "Category", Type: FieldTypeString, Filterable: true},
				{Name: "unit_price", Label: "Unit Price", Type: FieldTypeNumber, Filterable: true, Aggregatable: true},
				{Name: "stock", Label: "Stock", Type: FieldTypeNumber, Filterable: true, Aggregatable: true},
				{Name: "discontinued", Label: "Discontinued", Type: FieldTypeBoolean, Filterable: true},
			},
		},
		{
			Name:  "invoices",
			Label: "Invoices",
			Fields: []FieldDescriptor{
				{Name: "number", Label: "Number", Type: FieldTypeString, Filterable: true},
				{Name: "customer_name", Label: "Customer", Type: FieldTypeString, Filterable: true},
				{Name: "amount", Label: "Amount", Type: FieldTypeNumber, Filterable: true, Aggregatable: true},
				{Name: "tax", Label: "Tax", Type: FieldTypeNumber, Filterable: true, Aggregatable: true},
				{Name: "settled", Label: "Settled", Type: FieldTypeBoolean, Filterable: true},
				{Name: "issued_at", Label: "Issued At", Type: FieldTypeDate, Filterable: true},
				{Name: "due_at", Label: "Due At", Type: FieldTypeDate, Filterable: true},
			},
		},
		{
			Name:  "tasks",
			Label: "Tasks",
			Fields: []FieldDescriptor{
				{Name: "title", Label: "Title", Type: FieldTypeString, Filterable: true},
				{Name: "assignee", Label: "Assignee", Type: FieldTypeString, Filterable: true},
				{Name: "status", Label: "Status", Type: FieldTypeString, Filterable: true},
				{Name: "estimate_hours", Label: "Estimate (h)", Type: FieldTypeNumber, Filterable: true, Aggregatable: true},
				{Name: "completed", Label: "Completed", Type: FieldTypeBoolean, Filterable: true},
				{Name: "due_date", Label: "Due Date", Type: FieldTypeDate, Filterable: true},
			},
		},
	}
}
