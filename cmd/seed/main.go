package main

import (
	"context"
	"time"

	"go-reporting/internal/config"
	"go-reporting/internal/database"
	"go-reporting/internal/features/authz"
	"go-reporting/internal/features/definition"
	"go-reporting/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// Well-known identifiers matching the development auth middleware, so a
// freshly seeded database is immediately usable with SKIP_AUTH=true.
var (
	demoUserID    = mustObjectID("000000000000000000000001")
	demoCompanyID = mustObjectID("000000000000000000000002")
	otherCompany  = mustObjectID("000000000000000000000003")
)

func mustObjectID(hex string) primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		panic(err)
	}
	return oid
}

func day(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

// Seed replaces the demo data set on startup and shuts the process down.
func Seed(lc fx.Lifecycle, db *database.MongodbDB, logger *zap.Logger, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				logger.Info("Seeding demo data...")

				collections := map[string][]interface{}{
					"customers":          customers(),
					"sales":              sales(),
					"products":           products(),
					"invoices":           invoices(),
					"tasks":              tasks(),
					"roles":              roles(),
					"report_definitions": definitions(),
				}

				for name, docs := range collections {
					coll := db.DB.Collection(name)
					if _, err := coll.DeleteMany(ctx, bson.M{}); err != nil {
						logger.Error("Failed to clear collection", zap.String("collection", name), zap.Error(err))
						return
					}
					if _, err := coll.InsertMany(ctx, docs); err != nil {
						logger.Error("Failed to seed collection", zap.String("collection", name), zap.Error(err))
						return
					}
					logger.Info("Seeded collection", zap.String("collection", name), zap.Int("count", len(docs)))
				}

				logger.Info("Seeding complete")
			}()
			return nil
		},
	})
}

func customers() []interface{} {
	rows := []bson.M{
		{"name": "Andes Outfitters", "email": "ops@andes.example", "city": "Lima", "segment": "retail", "credit_limit": 25000.0, "active": true, "created_at": day(2)},
		{"name": "Pacifico Foods", "email": "hello@pacifico.example", "city": "Lima", "segment": "wholesale", "credit_limit": 80000.0, "active": true, "created_at": day(5)},
		{"name": "Cusco Crafts", "email": "sales@cusco.example", "city": "Cusco", "segment": "retail", "credit_limit": 12000.0, "active": true, "created_at": day(9)},
		{"name": "Arequipa Metals", "email": "contact@aqpmetals.example", "city": "Arequipa", "segment": "industrial", "credit_limit": 150000.0, "active": false, "created_at": day(14)},
		{"name": "Trujillo Textiles", "email": "info@trutex.example", "city": "Trujillo", "segment": "wholesale", "credit_limit": 60000.0, "active": true, "created_at": day(21)},
	}
	return withCompany(rows, demoCompanyID)
}

func sales() []interface{} {
	rows := []bson.M{
		{"reference": "S-1001", "customer_name": "Andes Outfitters", "city": "Lima", "total_amount": 1250.50, "quantity": 10.0, "paid": true, "sale_date": day(3)},
		{"reference": "S-1002", "customer_name": "Pacifico Foods", "city": "Lima", "total_amount": 8600.00, "quantity": 120.0, "paid": true, "sale_date": day(6)},
		{"reference": "S-1003", "customer_name": "Cusco Crafts", "city": "Cusco", "total_amount": 430.25, "quantity": 5.0, "paid": false, "sale_date": day(8)},
		{"reference": "S-1004", "customer_name": "Andes Outfitters", "city": "Lima", "total_amount": 2210.00, "quantity": 18.0, "paid": false, "sale_date": day(12)},
		{"reference": "S-1005", "customer_name": "Arequipa Metals", "city": "Arequipa", "total_amount": 19400.00, "quantity": 200.0, "paid": true, "sale_date": day(15)},
		{"reference": "S-1006", "customer_name": "Trujillo Textiles", "city": "Trujillo", "total_amount": 5120.75, "quantity": 64.0, "paid": true, "sale_date": day(20)},
		{"reference": "S-1007", "customer_name": "Cusco Crafts", "city": "Cusco", "total_amount": 980.00, "quantity": 12.0, "paid": true, "sale_date": day(24)},
	}
	return withCompany(rows, demoCompanyID)
}

func products() []interface{} {
	rows := []bson.M{
		{"name": "Alpaca Sweater", "sku": "ALP-001", "category": "apparel", "unit_price": 89.90, "stock": 140.0, "discontinued": false},
		{"name": "Ceramic Mug", "sku": "CER-010", "category": "homeware", "unit_price": 14.50, "stock": 520.0, "discontinued": false},
		{"name": "Copper Sheet", "sku": "MET-200", "category": "materials", "unit_price": 310.00, "stock": 75.0, "discontinued": false},
		{"name": "Wool Blanket", "sku": "ALP-014", "category": "apparel", "unit_price": 129.00, "stock": 0.0, "discontinued": true},
	}
	return withCompany(rows, demoCompanyID)
}

func invoices() []interface{} {
	rows := []bson.M{
		{"number": "INV-2026-001", "customer_name": "Andes Outfitters", "amount": 1250.50, "tax": 225.09, "settled": true, "issued_at": day(4), "due_at": day(34)},
		{"number": "INV-2026-002", "customer_name": "Pacifico Foods", "amount": 8600.00, "tax": 1548.00, "settled": true, "issued_at": day(7), "due_at": day(37)},
		{"number": "INV-2026-003", "customer_name": "Cusco Crafts", "amount": 430.25, "tax": 77.45, "settled": false, "issued_at": day(9), "due_at": day(39)},
		{"number": "INV-2026-004", "customer_name": "Arequipa Metals", "amount": 19400.00, "tax": 3492.00, "settled": false, "issued_at": day(16), "due_at": day(46)},
	}
	return withCompany(rows, demoCompanyID)
}

func tasks() []interface{} {
	rows := []bson.M{
		{"title": "Follow up quote S-1003", "assignee": "maria", "status": "open", "estimate_hours": 1.0, "completed": false, "due_date": day(10)},
		{"title": "Renew Pacifico contract", "assignee": "jorge", "status": "open", "estimate_hours": 4.0, "completed": false, "due_date": day(30)},
		{"title": "Collect INV-2026-003", "assignee": "maria", "status": "in_progress", "estimate_hours": 2.0, "completed": false, "due_date": day(18)},
		{"title": "Archive 2025 reports", "assignee": "jorge", "status": "done", "estimate_hours": 3.0, "completed": true, "due_date": day(2)},
	}
	return withCompany(rows, demoCompanyID)
}

func roles() []interface{} {
	return []interface{}{
		authz.Role{
			ID:        primitive.NewObjectID(),
			CompanyID: demoCompanyID,
			Name:      "admin",
		},
		authz.Role{
			ID:        primitive.NewObjectID(),
			CompanyID: demoCompanyID,
			Name:      "analyst",
			HiddenFields: map[string][]string{
				"customers": {"credit_limit", "email"},
				"invoices":  {"tax"},
			},
		},
		authz.Role{
			ID:        primitive.NewObjectID(),
			CompanyID: otherCompany,
			Name:      "admin",
		},
	}
}

func definitions() []interface{} {
	now := day(25)
	return []interface{}{
		definition.ReportDefinition{
			ID:          primitive.NewObjectID(),
			CompanyID:   demoCompanyID,
			OwnerID:     demoUserID,
			Name:        "Lima customers",
			Description: "Customers based in Lima, newest first",
			Entity:      "customers",
			Fields:      []string{"name", "city", "created_at"},
			Filters: []definition.Filter{
				{Field: "city", Operator: definition.OpEquals, Value: "Lima"},
			},
			Sort:      []definition.Sort{{Field: "name"}},
			Shared:    true,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		},
		definition.ReportDefinition{
			ID:          primitive.NewObjectID(),
			CompanyID:   demoCompanyID,
			OwnerID:     demoUserID,
			Name:        "Revenue by city",
			Description: "Total sales amount grouped by city",
			Entity:      "sales",
			Fields:      []string{"city", "total_amount"},
			Grouping: &definition.Grouping{
				GroupBy: []string{"city"},
				Aggregates: []definition.Aggregation{
					{Field: "total_amount", Fn: definition.AggSum},
				},
			},
			Shared:    true,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func withCompany(rows []bson.M, companyID primitive.ObjectID) []interface{} {
	out := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		row["company_id"] = companyID
		out = append(out, row)
	}
	return out
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
