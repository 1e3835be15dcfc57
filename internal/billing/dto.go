package billing

import "time"

type CreateInvoiceRequest struct {
	PatientID   int64      `json:"patient_id" validate:"required,gt=0"`
	PatientName string     `json:"patient_name" validate:"required,max=200"`
	InvoiceDate *time.Time `json:"invoice_date,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	// Numbers may be supplied explicitly (e.g. when importing historical
	// records); allocation is skipped for any number already present.
	InvoiceNumber  *string                    `json:"invoice_number,omitempty"`
	JobOrderNumber *string                    `json:"job_order_number,omitempty"`
	Items          []CreateInvoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type CreateInvoiceItemRequest struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
	Discount    float64 `json:"discount" validate:"gte=0"`
}

type ListInvoicesRequest struct {
	PatientID int64
	DateKey   string
	Limit     int
	Offset    int
}

type invoiceResponse struct {
	ID             int64                 `json:"id"`
	InvoiceNumber  string                `json:"invoice_number"`
	JobOrderNumber string                `json:"job_order_number"`
	PatientID      int64                 `json:"patient_id"`
	PatientName    string                `json:"patient_name"`
	InvoiceDate    time.Time             `json:"invoice_date"`
	DateKey        string                `json:"date_key"`
	Items          []invoiceItemResponse `json:"items"`
	TotalAmount    float64               `json:"total_amount"`
	Notes          string                `json:"notes,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

type invoiceItemResponse struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	LineTotal   float64 `json:"line_total"`
}

func toInvoiceResponse(inv *Invoice) invoiceResponse {
	items := make([]invoiceItemResponse, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, invoiceItemResponse{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Discount:    item.Discount,
			LineTotal:   item.LineTotal,
		})
	}
	return invoiceResponse{
		ID:             inv.ID,
		InvoiceNumber:  inv.InvoiceNumber,
		JobOrderNumber: inv.JobOrderNumber,
		PatientID:      inv.PatientID,
		PatientName:    inv.PatientName,
		InvoiceDate:    inv.InvoiceDate,
		DateKey:        inv.DateKey,
		Items:          items,
		TotalAmount:    inv.TotalAmount,
		Notes:          inv.Notes,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}
