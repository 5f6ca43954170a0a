package handler

import (
    "context"
    "errors"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/quimitrack/chem-registry/internal/lifecycle"
    "github.com/quimitrack/chem-registry/internal/model"
    "github.com/quimitrack/chem-registry/internal/queue"
    "github.com/quimitrack/chem-registry/internal/repository"
    queue_publisher "github.com/quimitrack/chem-registry/internal/service"
)

// ProductHandler exposes the product catalog endpoints.  The coarse role
// gate already ran in middleware; the finer ownership and workflow-status
// decisions are delegated to the lifecycle package.
type ProductHandler struct {
    Products *repository.ProductRepo

    // Publish sends a status-change event.  Swapped for a stub in tests.
    Publish func(ctx context.Context, ev queue.ProductStatusChangedEvent) error
}

func NewProductHandler(p *repository.ProductRepo) *ProductHandler {
    return &ProductHandler{Products: p, Publish: queue_publisher.PublishProductStatusChanged}
}

// productCreateReq mirrors the product attributes.  Only codigo and
// nome_do_produto are required; status is honored for ADMIN only.
type productCreateReq struct {
    Codigo               string `json:"codigo"`
    NomeDoProduto        string `json:"nome_do_produto"`
    QtdeMaximaArmazenada string `json:"qtde_maxima_armazenada"`
    Fornecedor           string `json:"fornecedor"`
    EstadoFisico         string `json:"estado_fisico"`
    LocalDeArmazenamento string `json:"local_de_armazenamento"`
    Substancia1          string `json:"substancia1"`
    NCas1                string `json:"n_cas1"`
    Concentracao1        string `json:"concentracao1"`
    Substancia2          string `json:"substancia2"`
    NCas2                string `json:"n_cas2"`
    Concentracao2        string `json:"concentracao2"`
    Substancia3          string `json:"substancia3"`
    NCas3                string `json:"n_cas3"`
    Concentracao3        string `json:"concentracao3"`
    PerigosFisicos       string `json:"perigos_fisicos"`
    PerigosSaude         string `json:"perigos_saude"`
    PerigosMeioAmbiente  string `json:"perigos_meio_ambiente"`
    PalavraDePerigo      string `json:"palavra_de_perigo"`
    Categoria            string `json:"categoria"`
    Status               string `json:"status"`
}

// productUpdateReq is the allow-list for partial updates.  bindStrict
// rejects unknown keys, so a payload cannot smuggle extra columns in.
// The pdf fields are absent on purpose: attachments only change through
// the upload endpoints.
type productUpdateReq struct {
    Codigo               *string `json:"codigo"`
    NomeDoProduto        *string `json:"nome_do_produto"`
    QtdeMaximaArmazenada *string `json:"qtde_maxima_armazenada"`
    Fornecedor           *string `json:"fornecedor"`
    EstadoFisico         *string `json:"estado_fisico"`
    LocalDeArmazenamento *string `json:"local_de_armazenamento"`
    Substancia1          *string `json:"substancia1"`
    NCas1                *string `json:"n_cas1"`
    Concentracao1        *string `json:"concentracao1"`
    Substancia2          *string `json:"substancia2"`
    NCas2                *string `json:"n_cas2"`
    Concentracao2        *string `json:"concentracao2"`
    Substancia3          *string `json:"substancia3"`
    NCas3                *string `json:"n_cas3"`
    Concentracao3        *string `json:"concentracao3"`
    PerigosFisicos       *string `json:"perigos_fisicos"`
    PerigosSaude         *string `json:"perigos_saude"`
    PerigosMeioAmbiente  *string `json:"perigos_meio_ambiente"`
    PalavraDePerigo      *string `json:"palavra_de_perigo"`
    Categoria            *string `json:"categoria"`
    Status               *string `json:"status"`
}

// Create registers a new product.  Non-ADMIN creators are forced to the
// pending status regardless of the payload.
func (h *ProductHandler) Create(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
    }
    role := getRole(c)

    var req productCreateReq
    if err := bindStrict(c, &req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    if req.Codigo == "" || req.NomeDoProduto == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "codigo and nome_do_produto required"})
    }

    status, err := lifecycle.InitialStatus(role, req.Status)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }

    p := &model.Product{
        Codigo:               req.Codigo,
        NomeDoProduto:        req.NomeDoProduto,
        QtdeMaximaArmazenada: req.QtdeMaximaArmazenada,
        Fornecedor:           req.Fornecedor,
        EstadoFisico:         req.EstadoFisico,
        LocalDeArmazenamento: req.LocalDeArmazenamento,
        Substancia1:          req.Substancia1,
        NCas1:                req.NCas1,
        Concentracao1:        req.Concentracao1,
        Substancia2:          req.Substancia2,
        NCas2:                req.NCas2,
        Concentracao2:        req.Concentracao2,
        Substancia3:          req.Substancia3,
        NCas3:                req.NCas3,
        Concentracao3:        req.Concentracao3,
        PerigosFisicos:       req.PerigosFisicos,
        PerigosSaude:         req.PerigosSaude,
        PerigosMeioAmbiente:  req.PerigosMeioAmbiente,
        PalavraDePerigo:      req.PalavraDePerigo,
        Categoria:            req.Categoria,
        Status:               status,
        CreatedBy:            &uid,
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    if err := h.Products.Create(ctx, p); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create product failed"})
    }
    return c.JSON(http.StatusCreated, p)
}

// List returns the products visible to the acting role.
func (h *ProductHandler) List(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    products, err := h.Products.List(ctx, lifecycle.ScopeFor(getRole(c), uid))
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list products failed"})
    }
    return c.JSON(http.StatusOK, products)
}

// Search filters the visible products by one field.  The field selector
// comes from a fixed allow-list; anything else is a validation error, not
// an empty result.
func (h *ProductHandler) Search(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
    }

    term := c.QueryParam("q")
    if term == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing query"})
    }
    by := c.QueryParam("by")
    if by == "" {
        by = "nome_do_produto"
    }
    column, ok := lifecycle.SearchColumn(by)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid search field"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    products, err := h.Products.Search(ctx, lifecycle.ScopeFor(getRole(c), uid), column, term)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search products failed"})
    }
    return c.JSON(http.StatusOK, products)
}

// Get returns one product.  A record that exists but fails the visibility
// predicate yields 403, not 404: access is denied without pretending the
// record is absent, and identifiers are not probeable either way.
func (h *ProductHandler) Get(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
    }
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    p, err := h.Products.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get product failed"})
    }
    if !lifecycle.Visible(getRole(c), uid, p) {
        return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
    }
    return c.JSON(http.StatusOK, p)
}

// Update applies a partial update under the lifecycle mutation rules.  The
// check is all-or-nothing: a denial writes no field.
func (h *ProductHandler) Update(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
    }
    role := getRole(c)

    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var req productUpdateReq
    if err := bindStrict(c, &req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    p, err := h.Products.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update product failed"})
    }

    if err := lifecycle.CanMutate(role, uid, p, req.Status != nil); err != nil {
        return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
    }
    if req.Status != nil && !lifecycle.ValidStatus(*req.Status) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }

    patch := repository.ProductPatch{
        Codigo:               req.Codigo,
        NomeDoProduto:        req.NomeDoProduto,
        QtdeMaximaArmazenada: req.QtdeMaximaArmazenada,
        Fornecedor:           req.Fornecedor,
        EstadoFisico:         req.EstadoFisico,
        LocalDeArmazenamento: req.LocalDeArmazenamento,
        Substancia1:          req.Substancia1,
        NCas1:                req.NCas1,
        Concentracao1:        req.Concentracao1,
        Substancia2:          req.Substancia2,
        NCas2:                req.NCas2,
        Concentracao2:        req.Concentracao2,
        Substancia3:          req.Substancia3,
        NCas3:                req.NCas3,
        Concentracao3:        req.Concentracao3,
        PerigosFisicos:       req.PerigosFisicos,
        PerigosSaude:         req.PerigosSaude,
        PerigosMeioAmbiente:  req.PerigosMeioAmbiente,
        PalavraDePerigo:      req.PalavraDePerigo,
        Categoria:            req.Categoria,
        Status:               req.Status,
    }
    if err := h.Products.Update(ctx, id, patch); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update product failed"})
    }

    updated, err := h.Products.GetByID(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update product failed"})
    }

    if req.Status != nil && *req.Status != p.Status {
        h.publishStatusChange(p, updated, uid)
    }
    return c.JSON(http.StatusOK, updated)
}

// Delete removes a product.
func (h *ProductHandler) Delete(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    ok, err := h.Products.Delete(ctx, id)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete product failed"})
    }
    if !ok {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": id})
}

// publishStatusChange emits the workflow event in the background.  The
// request never waits on the broker and a publish failure is only logged.
func (h *ProductHandler) publishStatusChange(before, after *model.Product, changedBy uint64) {
    if h.Publish == nil {
        return
    }
    ev := queue.ProductStatusChangedEvent{
        ProductID:     after.ID,
        Codigo:        after.Codigo,
        NomeDoProduto: after.NomeDoProduto,
        OldStatus:     before.Status,
        NewStatus:     after.Status,
        ChangedBy:     changedBy,
        ChangedAt:     time.Now().UTC().Format(time.RFC3339),
    }
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := h.Publish(ctx, ev); err != nil {
            log.Printf("product: publish status change for %d failed: %v", ev.ProductID, err)
        }
    }()
}
