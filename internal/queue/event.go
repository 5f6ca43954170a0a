// Package queue defines message payloads exchanged over the message broker.
package queue

// ProductStatusChangedEvent is published whenever an ADMIN moves a product
// through the approval workflow. It carries enough information for downstream
// consumers to log, notify, or trigger analytics without querying the primary
// database.
type ProductStatusChangedEvent struct {
    ProductID     uint64 `json:"product_id"`
    Codigo        string `json:"codigo"`
    NomeDoProduto string `json:"nome_do_produto"`
    OldStatus     string `json:"old_status"`
    NewStatus     string `json:"new_status"`
    ChangedBy     uint64 `json:"changed_by"`
    ChangedAt     string `json:"changed_at"`
}
