package model

import "time"

// Product statuses.  The wire values are the Portuguese terms the registry
// has always used; anything else is rejected as invalid, never coerced.
const (
    StatusPending  = "pendente"
    StatusApproved = "aprovado"
    StatusRejected = "rejeitado"
)

// Product is one chemical product record from the `products` table.  The
// descriptive attributes mirror a FISPQ sheet: up to three substance/CAS
// number/concentration triples plus the hazard text blocks and the GHS
// signal word.  Only codigo and nome_do_produto are required.
//
// CreatedBy references the creating user and may dangle after that user is
// deleted; CreatedByName is resolved at read time and stays nil in that
// case.  PDFURL and PDFStorageKey are either both set or both empty.
type Product struct {
    ID                   uint64  `json:"id"`
    Codigo               string  `json:"codigo"`
    NomeDoProduto        string  `json:"nome_do_produto"`
    QtdeMaximaArmazenada string  `json:"qtde_maxima_armazenada,omitempty"`
    Fornecedor           string  `json:"fornecedor,omitempty"`
    EstadoFisico         string  `json:"estado_fisico,omitempty"`
    LocalDeArmazenamento string  `json:"local_de_armazenamento,omitempty"`
    Substancia1          string  `json:"substancia1,omitempty"`
    NCas1                string  `json:"n_cas1,omitempty"`
    Concentracao1        string  `json:"concentracao1,omitempty"`
    Substancia2          string  `json:"substancia2,omitempty"`
    NCas2                string  `json:"n_cas2,omitempty"`
    Concentracao2        string  `json:"concentracao2,omitempty"`
    Substancia3          string  `json:"substancia3,omitempty"`
    NCas3                string  `json:"n_cas3,omitempty"`
    Concentracao3        string  `json:"concentracao3,omitempty"`
    PerigosFisicos       string  `json:"perigos_fisicos,omitempty"`
    PerigosSaude         string  `json:"perigos_saude,omitempty"`
    PerigosMeioAmbiente  string  `json:"perigos_meio_ambiente,omitempty"`
    PalavraDePerigo      string  `json:"palavra_de_perigo,omitempty"`
    Categoria            string  `json:"categoria,omitempty"`
    Status               string  `json:"status"`
    CreatedBy            *uint64 `json:"-"`
    CreatedByName        *string `json:"created_by"`
    PDFURL               string  `json:"pdf_url,omitempty"`
    PDFStorageKey        string  `json:"pdf_storage_key,omitempty"`
    CreatedAt            time.Time `json:"created_at"`
    UpdatedAt            time.Time `json:"updated_at"`
}

// DocumentListing is the reduced projection VIEWERs receive when listing
// PDF-bearing products: identity, name, maximum stored quantity and the
// download reference.  This is response shaping, applied after the
// authorization check passes.
type DocumentListing struct {
    ID                   uint64 `json:"id"`
    NomeDoProduto        string `json:"nome_do_produto"`
    QtdeMaximaArmazenada string `json:"qtde_maxima_armazenada,omitempty"`
    URLDownload          string `json:"url_download"`
}
