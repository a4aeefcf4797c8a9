package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/database"
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateCustomer(ctx context.Context, c *billing.Customer) error {
	m := database.CustomerModelFromDomain(c)

	query := `
		INSERT INTO customers (name, type, parent_company_id, bill_to_parent, custom_product_pricing, created_at)
		VALUES (:name, :type, :parent_company_id, :bill_to_parent, :custom_product_pricing, NOW())
		RETURNING id, created_at
	`

	rows, err := s.db.NamedQueryContext(ctx, query, &m)
	if err != nil {
		return fmt.Errorf("creating customer: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("creating customer: no row returned")
	}

	if err := rows.Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("scanning created customer: %w", err)
	}

	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id uuid.UUID) (*billing.Customer, error) {
	var m database.CustomerModel

	query := `SELECT ` + database.CustomerColumns + ` FROM customers WHERE id = $1`
	if err := s.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}

		return nil, fmt.Errorf("getting customer: %w", err)
	}

	c := m.ToDomain()

	return &c, nil
}

func (s *Store) ListCustomers(ctx context.Context) ([]billing.Customer, error) {
	var rows []database.CustomerModel

	query := `SELECT ` + database.CustomerColumns + ` FROM customers ORDER BY name ASC`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}

	return database.ToDomainList(rows, (*database.CustomerModel).ToDomain), nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c *billing.Customer) error {
	m := database.CustomerModelFromDomain(c)

	query := `
		UPDATE customers
		SET name = :name, type = :type, parent_company_id = :parent_company_id,
			bill_to_parent = :bill_to_parent, custom_product_pricing = :custom_product_pricing,
			updated_at = NOW()
		WHERE id = :id
	`

	res, err := s.db.NamedExecContext(ctx, query, &m)
	if err != nil {
		return fmt.Errorf("updating customer: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking updated customer: %w", err)
	}

	if n == 0 {
		return billing.ErrNotFound
	}

	return nil
}
