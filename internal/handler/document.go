package handler

import (
    "context"
    "errors"
    "io"
    "net/http"
    "path/filepath"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/quimitrack/chem-registry/internal/auth"
    "github.com/quimitrack/chem-registry/internal/lifecycle"
    "github.com/quimitrack/chem-registry/internal/model"
    "github.com/quimitrack/chem-registry/internal/repository"
    "github.com/quimitrack/chem-registry/internal/storage"
)

// ObjectStore is the slice of the storage client the handlers need;
// *storage.Client satisfies it and tests substitute a fake.
type ObjectStore interface {
    Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
    Delete(ctx context.Context, key string) error
    HeadBucket(ctx context.Context) bool
}

// DocumentHandler exposes the PDF attachment endpoints.  Store is nil when
// object storage is unconfigured; uploads then fail with 500 while the rest
// of the API keeps working.
type DocumentHandler struct {
    Store     ObjectStore
    Documents *repository.DocumentRepo
    Products  *repository.ProductRepo
    MaxBytes  int64
}

func NewDocumentHandler(store ObjectStore, d *repository.DocumentRepo, p *repository.ProductRepo, maxBytes int64) *DocumentHandler {
    return &DocumentHandler{Store: store, Documents: d, Products: p, MaxBytes: maxBytes}
}

// Upload receives a multipart PDF, streams it to object storage under a
// collision-resistant key and appends one audit row.  The size cap is
// enforced before the transfer starts, not after.  An optional product_id
// form field binds the attachment to a product in the same request so the
// url/key pair on the product record is never half-set.
func (h *DocumentHandler) Upload(c echo.Context) error {
    if h.Store == nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "object storage not configured"})
    }
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
    }

    // Cap the whole request body before any multipart parsing begins.
    c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.MaxBytes)

    fh, err := c.FormFile("file")
    if err != nil {
        var tooLarge *http.MaxBytesError
        if errors.As(err, &tooLarge) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "file too large"})
        }
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "no file sent"})
    }
    if fh.Filename == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "no file selected"})
    }
    if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "only pdf files are accepted"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    // Resolve the attachment target before anything is stored: a bad
    // product_id must not leave an orphaned object or audit row behind.
    var productID uint64
    attach := false
    if pid := c.FormValue("product_id"); pid != "" {
        productID, err = strconv.ParseUint(pid, 10, 64)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid product_id"})
        }
        if _, err := h.Products.GetByID(ctx, productID); err != nil {
            if errors.Is(err, repository.ErrNotFound) {
                return c.JSON(http.StatusNotFound, echo.Map{"error": "product not found"})
            }
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "attach failed"})
        }
        attach = true
    }

    src, err := fh.Open()
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable file"})
    }
    defer src.Close()

    key := storage.ObjectKey(fh.Filename)
    url, err := h.Store.Put(c.Request().Context(), key, src, "application/pdf")
    if err != nil {
        c.Logger().Errorf("upload: object storage put failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage upload failed"})
    }

    doc := &model.PDFDocument{
        OriginalFilename: fh.Filename,
        StorageKey:       key,
        URL:              url,
        UploadedBy:       &uid,
    }
    if err := h.Documents.Create(ctx, doc); err != nil {
        c.Logger().Errorf("upload: audit record insert failed: %v", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record upload failed"})
    }

    if attach {
        if err := h.Products.SetPDF(ctx, productID, url, key); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "attach failed"})
        }
    }

    return c.JSON(http.StatusOK, echo.Map{
        "message":           "file uploaded; use this url to attach it to a product",
        "url":               url,
        "storage_key":       key,
        "id":                doc.ID,
        "original_filename": fh.Filename,
    })
}

// List returns the PDF-bearing products visible to the acting role.  A
// VIEWER receives the reduced projection; the full record goes to everyone
// else.  Response shaping, applied after the authorization check passed.
func (h *DocumentHandler) List(c echo.Context) error {
    uid, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
    }
    role := getRole(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    products, err := h.Products.ListWithPDF(ctx, lifecycle.ScopeFor(role, uid))
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list documents failed"})
    }

    if role == auth.RoleViewer {
        out := make([]model.DocumentListing, 0, len(products))
        for _, p := range products {
            out = append(out, model.DocumentListing{
                ID:                   p.ID,
                NomeDoProduto:        p.NomeDoProduto,
                QtdeMaximaArmazenada: p.QtdeMaximaArmazenada,
                URLDownload:          p.PDFURL,
            })
        }
        return c.JSON(http.StatusOK, out)
    }
    return c.JSON(http.StatusOK, products)
}

// Delete removes the stored object, detaches it from any product and then
// deletes the audit row.
func (h *DocumentHandler) Delete(c echo.Context) error {
    id, err := pathID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
    defer cancel()

    doc, err := h.Documents.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "document not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete document failed"})
    }

    if h.Store != nil {
        if err := h.Store.Delete(ctx, doc.StorageKey); err != nil {
            c.Logger().Errorf("delete: object storage delete failed: %v", err)
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage delete failed"})
        }
    }
    if err := h.Products.ClearPDFByKey(ctx, doc.StorageKey); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete document failed"})
    }
    if _, err := h.Documents.Delete(ctx, id); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete document failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"deleted": id})
}
