// Package app wires stores and services for the binaries.
package app

import (
	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/customer"
	customerStore "github.com/MrJamesThe3rd/tally/internal/customer/store"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/pricelist"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	invoiceStore "github.com/MrJamesThe3rd/tally/internal/invoice/store"
	"github.com/MrJamesThe3rd/tally/internal/ledger"
	"github.com/MrJamesThe3rd/tally/internal/payment"
	paymentStore "github.com/MrJamesThe3rd/tally/internal/payment/store"
	"github.com/MrJamesThe3rd/tally/internal/product"
	productStore "github.com/MrJamesThe3rd/tally/internal/product/store"
	"github.com/MrJamesThe3rd/tally/internal/statement"
	statementStore "github.com/MrJamesThe3rd/tally/internal/statement/store"
)

type Services struct {
	Ledger     *ledger.Ledger
	Customers  *customer.Service
	Products   *product.Service
	Invoices   *invoice.Service
	Payments   *payment.Service
	Statements *statement.Service
	Imports    *importer.Service
	Exports    *export.Service

	// ExportDir is where statement CSVs are written.
	ExportDir string
}

func New(cfg *config.Config, db *sqlx.DB) *Services {
	var (
		l         = ledger.New(cfg.Billing.VATRate)
		customers = customerStore.New(db)
		products  = productStore.New(db)
		payments  = paymentStore.New(db)
		snapshots = statementStore.New(db)
	)

	productSvc := product.NewService(products, customers)
	statementSvc := statement.NewService(snapshots, statement.NewEngine(l))

	return &Services{
		Ledger:     l,
		Customers:  customer.NewService(customers, products, snapshots),
		Products:   productSvc,
		Invoices:   invoice.NewService(invoiceStore.New(db), customers, productSvc, payments, l),
		Payments:   payment.NewService(payments, l),
		Statements: statementSvc,
		Imports: importer.NewService(map[importer.Source]importer.Importer{
			importer.SourcePriceList: pricelist.NewParser(),
		}),
		Exports:   export.NewService(statementSvc),
		ExportDir: cfg.Export.Dir,
	}
}
