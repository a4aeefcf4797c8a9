package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"slices"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/database"
	"github.com/MrJamesThe3rd/tally/internal/product"
)

type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

const selectProductColumns = `
	id, item_code, name, description, prices, created_at, updated_at
`

func (s *Store) CreateProduct(ctx context.Context, p *billing.Product) error {
	m := database.ProductModelFromDomain(p)

	query := `
		INSERT INTO products (item_code, name, description, prices, created_at)
		VALUES (:item_code, :name, :description, :prices, NOW())
		RETURNING id, created_at
	`

	rows, err := s.db.NamedQueryContext(ctx, query, &m)
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return fmt.Errorf("creating product: no row returned")
	}

	if err := rows.Scan(&p.ID, &p.CreatedAt); err != nil {
		return fmt.Errorf("scanning created product: %w", err)
	}

	return nil
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*billing.Product, error) {
	var m database.ProductModel

	query := `SELECT ` + selectProductColumns + ` FROM products WHERE id = $1`
	if err := s.db.GetContext(ctx, &m, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, billing.ErrNotFound
		}

		return nil, fmt.Errorf("getting product: %w", err)
	}

	p := m.ToDomain()

	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]billing.Product, error) {
	var rows []database.ProductModel

	query := `SELECT ` + selectProductColumns + ` FROM products ORDER BY item_code ASC`
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	return database.ToDomainList(rows, (*database.ProductModel).ToDomain), nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *billing.Product) error {
	m := database.ProductModelFromDomain(p)

	query := `
		UPDATE products
		SET item_code = :item_code, name = :name, description = :description, updated_at = NOW()
		WHERE id = :id
	`

	res, err := s.db.NamedExecContext(ctx, query, &m)
	if err != nil {
		return fmt.Errorf("updating product: %w", err)
	}

	return expectOne(res)
}

func (s *Store) AppendPrice(ctx context.Context, id uuid.UUID, price billing.Price) error {
	return appendPrice(ctx, s.db, id, price)
}

// appendPrice adds a price to the end of the JSONB list without rewriting the
// existing entries.
func appendPrice(ctx context.Context, db sqlx.ExecerContext, id uuid.UUID, price billing.Price) error {
	query := `
		UPDATE products
		SET prices = prices || $1::jsonb, updated_at = NOW()
		WHERE id = $2
	`

	res, err := db.ExecContext(ctx, query, database.JSON[[]billing.Price]{V: []billing.Price{price}}, id)
	if err != nil {
		return fmt.Errorf("appending price: %w", err)
	}

	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}

	if n == 0 {
		return billing.ErrNotFound
	}

	return nil
}

func importLockKey() int64 {
	h := fnv.New64a()
	h.Write([]byte("products.import"))

	return int64(h.Sum64())
}

type importTx struct {
	tx *sqlx.Tx
}

func (s *Store) BeginImport(ctx context.Context) (product.ImportTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey()); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: tx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) ProductsByCode(ctx context.Context, codes []string) (map[string]billing.Product, error) {
	unique := slices.Compact(slices.Sorted(slices.Values(codes)))
	if len(unique) == 0 {
		return map[string]billing.Product{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+selectProductColumns+` FROM products WHERE item_code IN (?) FOR UPDATE`, unique)
	if err != nil {
		return nil, fmt.Errorf("building product lookup: %w", err)
	}

	var rows []database.ProductModel
	if err := itx.tx.SelectContext(ctx, &rows, itx.tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("finding products: %w", err)
	}

	out := make(map[string]billing.Product, len(rows))
	for i := range rows {
		out[rows[i].ItemCode] = rows[i].ToDomain()
	}

	return out, nil
}

func (itx *importTx) AppendPrice(ctx context.Context, id uuid.UUID, price billing.Price) error {
	return appendPrice(ctx, itx.tx, id, price)
}
