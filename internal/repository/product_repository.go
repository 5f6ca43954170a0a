package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/quimitrack/chem-registry/internal/lifecycle"
	"github.com/quimitrack/chem-registry/internal/model"
)

// ProductRepo encapsulates all database access for the product catalog.
// Every list/search query conjoins the role-scoped visibility filter before
// any user-supplied predicate, and reads LEFT JOIN the users table so the
// creator's username can be shown — or degrade to NULL when the creating
// account was deleted since.
type ProductRepo struct{ db *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

const productColumns = `p.id, p.codigo, p.nome_do_produto, p.qtde_maxima_armazenada,
	p.fornecedor, p.estado_fisico, p.local_de_armazenamento,
	p.substancia1, p.n_cas1, p.concentracao1,
	p.substancia2, p.n_cas2, p.concentracao2,
	p.substancia3, p.n_cas3, p.concentracao3,
	p.perigos_fisicos, p.perigos_saude, p.perigos_meio_ambiente,
	p.palavra_de_perigo, p.categoria, p.status,
	p.created_by, u.username, p.pdf_url, p.pdf_storage_key,
	p.created_at, p.updated_at`

const productFrom = " FROM products p LEFT JOIN users u ON u.id = p.created_by"

// ProductPatch is the explicit allow-list of mutable product fields.  A nil
// pointer means "leave untouched".  Status and the pdf pair are only ever
// set for ADMIN requests; the handler enforces that before building the
// patch.  Unknown payload keys are rejected at bind time and never get here.
type ProductPatch struct {
	Codigo               *string
	NomeDoProduto        *string
	QtdeMaximaArmazenada *string
	Fornecedor           *string
	EstadoFisico         *string
	LocalDeArmazenamento *string
	Substancia1          *string
	NCas1                *string
	Concentracao1        *string
	Substancia2          *string
	NCas2                *string
	Concentracao2        *string
	Substancia3          *string
	NCas3                *string
	Concentracao3        *string
	PerigosFisicos       *string
	PerigosSaude         *string
	PerigosMeioAmbiente  *string
	PalavraDePerigo      *string
	Categoria            *string
	Status               *string
	PDFURL               *string
	PDFStorageKey        *string
}

// columns returns the SET fragments and arguments for the non-nil fields.
func (p ProductPatch) columns() ([]string, []any) {
	var sets []string
	var args []any
	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+"=?")
			args = append(args, *v)
		}
	}
	add("codigo", p.Codigo)
	add("nome_do_produto", p.NomeDoProduto)
	add("qtde_maxima_armazenada", p.QtdeMaximaArmazenada)
	add("fornecedor", p.Fornecedor)
	add("estado_fisico", p.EstadoFisico)
	add("local_de_armazenamento", p.LocalDeArmazenamento)
	add("substancia1", p.Substancia1)
	add("n_cas1", p.NCas1)
	add("concentracao1", p.Concentracao1)
	add("substancia2", p.Substancia2)
	add("n_cas2", p.NCas2)
	add("concentracao2", p.Concentracao2)
	add("substancia3", p.Substancia3)
	add("n_cas3", p.NCas3)
	add("concentracao3", p.Concentracao3)
	add("perigos_fisicos", p.PerigosFisicos)
	add("perigos_saude", p.PerigosSaude)
	add("perigos_meio_ambiente", p.PerigosMeioAmbiente)
	add("palavra_de_perigo", p.PalavraDePerigo)
	add("categoria", p.Categoria)
	add("status", p.Status)
	add("pdf_url", p.PDFURL)
	add("pdf_storage_key", p.PDFStorageKey)
	return sets, args
}

// Empty reports whether the patch would write nothing.
func (p ProductPatch) Empty() bool {
	sets, _ := p.columns()
	return len(sets) == 0
}

// scanProduct reads one joined row into a model.Product.
func scanProduct(row interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var createdBy sql.NullInt64
	var creatorName, pdfURL, pdfKey sql.NullString
	err := row.Scan(
		&p.ID, &p.Codigo, &p.NomeDoProduto, &p.QtdeMaximaArmazenada,
		&p.Fornecedor, &p.EstadoFisico, &p.LocalDeArmazenamento,
		&p.Substancia1, &p.NCas1, &p.Concentracao1,
		&p.Substancia2, &p.NCas2, &p.Concentracao2,
		&p.Substancia3, &p.NCas3, &p.Concentracao3,
		&p.PerigosFisicos, &p.PerigosSaude, &p.PerigosMeioAmbiente,
		&p.PalavraDePerigo, &p.Categoria, &p.Status,
		&createdBy, &creatorName, &pdfURL, &pdfKey,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if createdBy.Valid {
		v := uint64(createdBy.Int64)
		p.CreatedBy = &v
	}
	if creatorName.Valid {
		p.CreatedByName = &creatorName.String
	}
	p.PDFURL = pdfURL.String
	p.PDFStorageKey = pdfKey.String
	return &p, nil
}

// scopeWhere translates a visibility scope into a WHERE fragment.
func scopeWhere(s lifecycle.Scope) (string, []any) {
	switch {
	case s.All:
		return "", nil
	case s.OwnerSet:
		return "(p.status = ? OR p.created_by = ?)", []any{model.StatusApproved, s.OwnerID}
	default:
		return "p.status = ?", []any{model.StatusApproved}
	}
}

// Create inserts a new product and populates its ID and timestamps.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	const qInsert = `INSERT INTO products (
		codigo, nome_do_produto, qtde_maxima_armazenada, fornecedor,
		estado_fisico, local_de_armazenamento,
		substancia1, n_cas1, concentracao1,
		substancia2, n_cas2, concentracao2,
		substancia3, n_cas3, concentracao3,
		perigos_fisicos, perigos_saude, perigos_meio_ambiente,
		palavra_de_perigo, categoria, status, created_by
	) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`

	var createdBy any
	if p.CreatedBy != nil {
		createdBy = *p.CreatedBy
	}
	res, err := r.db.ExecContext(ctx, qInsert,
		p.Codigo, p.NomeDoProduto, p.QtdeMaximaArmazenada, p.Fornecedor,
		p.EstadoFisico, p.LocalDeArmazenamento,
		p.Substancia1, p.NCas1, p.Concentracao1,
		p.Substancia2, p.NCas2, p.Concentracao2,
		p.Substancia3, p.NCas3, p.Concentracao3,
		p.PerigosFisicos, p.PerigosSaude, p.PerigosMeioAmbiente,
		p.PalavraDePerigo, p.Categoria, p.Status, createdBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)

	created, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// GetByID fetches one product regardless of visibility; the caller applies
// the single-record visibility predicate so that an existing but hidden
// product yields Forbidden rather than NotFound.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+productFrom+" WHERE p.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns the products visible under scope, ordered by id.
func (r *ProductRepo) List(ctx context.Context, scope lifecycle.Scope) ([]*model.Product, error) {
	q := "SELECT " + productColumns + productFrom
	where, args := scopeWhere(scope)
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY p.id"
	return r.queryProducts(ctx, q, args...)
}

// Search conjoins the visibility scope with a single field-match predicate.
// column must come from lifecycle.SearchColumn — never from raw input.  The
// id column matches exactly; text columns match case-insensitive substrings.
func (r *ProductRepo) Search(ctx context.Context, scope lifecycle.Scope, column, term string) ([]*model.Product, error) {
	where, args := scopeWhere(scope)
	var cond string
	if column == "id" {
		cond = "p.id = ?"
		args = append(args, term)
	} else {
		cond = "p." + column + " LIKE ?"
		args = append(args, "%"+term+"%")
	}
	q := "SELECT " + productColumns + productFrom + " WHERE "
	if where != "" {
		q += where + " AND "
	}
	q += cond + " ORDER BY p.id"
	return r.queryProducts(ctx, q, args...)
}

// ListWithPDF returns the visible products that carry a pdf attachment.
func (r *ProductRepo) ListWithPDF(ctx context.Context, scope lifecycle.Scope) ([]*model.Product, error) {
	where, args := scopeWhere(scope)
	q := "SELECT " + productColumns + productFrom + " WHERE p.pdf_url IS NOT NULL AND p.pdf_url <> ''"
	if where != "" {
		q += " AND " + where
	}
	q += " ORDER BY p.id"
	return r.queryProducts(ctx, q, args...)
}

func (r *ProductRepo) queryProducts(ctx context.Context, q string, args ...any) ([]*model.Product, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update writes the patch in one atomic statement.  The authorization and
// status validation happen before this is called; a denial means no field
// was written.
func (r *ProductRepo) Update(ctx context.Context, id uint64, patch ProductPatch) error {
	sets, args := patch.columns()
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	_, err := r.db.ExecContext(ctx,
		"UPDATE products SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	return err
}

// SetPDF binds an attachment to a product; both pointer fields move
// together so they are never half-set.
func (r *ProductRepo) SetPDF(ctx context.Context, id uint64, url, key string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE products SET pdf_url=?, pdf_storage_key=? WHERE id=?", url, key, id)
	return err
}

// ClearPDFByKey detaches the pdf pointer from any product referencing the
// given storage key.  Called when the stored object is deleted.
func (r *ProductRepo) ClearPDFByKey(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE products SET pdf_url=NULL, pdf_storage_key=NULL WHERE pdf_storage_key=?", key)
	return err
}

// Delete removes a product.  Returns false when no row matched.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
