// Package invoice renders order invoices as PDF documents.
package invoice

import (
	"bytes"
	"context"

	"github.com/go-faster/errors"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/ha165/orderdesk/internal/domain/cart"
	"github.com/ha165/orderdesk/internal/domain/order"
	"github.com/ha165/orderdesk/internal/domain/product"
)

// Renderer produces invoice PDFs from persisted orders.
type Renderer struct {
	products product.Repository
	seller   string
}

// NewRenderer creates a Renderer. sellerName is printed in the document header.
func NewRenderer(products product.Repository, sellerName string) *Renderer {
	return &Renderer{products: products, seller: sellerName}
}

// Filename is the download name for an order's invoice.
func Filename(o *order.Order) string {
	return o.Number + "-" + o.FirstName + ".pdf"
}

// Render draws the invoice for the order and its cart lines.
func (r *Renderer) Render(ctx context.Context, o *order.Order, lines []cart.Line) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+o.Number, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, r.seller)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, "Invoice "+o.Number)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Date: "+o.CreatedAt.Format("2006-01-02"))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, "Bill to")
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, o.FirstName+" "+o.LastName)
	pdf.Ln(6)
	pdf.Cell(0, 6, o.Address1)
	pdf.Ln(6)
	if o.Address2 != "" {
		pdf.Cell(0, 6, o.Address2)
		pdf.Ln(6)
	}
	if o.PostCode != "" {
		pdf.Cell(0, 6, o.PostCode)
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, o.Email+"  /  "+o.Phone)
	pdf.Ln(12)

	// Line item table.
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Unit price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range lines {
		name := line.ProductID
		if p, err := r.products.GetByID(ctx, line.ProductID); err == nil {
			name = p.Name
		}
		pdf.CellFormat(90, 7, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, line.Price.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 7, decimal.NewFromInt(int64(line.Quantity)).String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, line.Amount.StringFixed(2), "1", 1, "R", false, 0, "")
	}

	totalRow := func(label string, value decimal.Decimal) {
		pdf.CellFormat(135, 7, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, value.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)
	totalRow("Subtotal", o.SubTotal)
	totalRow("Shipping", o.ShippingPrice)
	totalRow("Coupon", o.Coupon.Neg())
	pdf.SetFont("Helvetica", "B", 10)
	totalRow("Total", o.TotalAmount)

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Payment method: "+string(o.PaymentMethod)+"  /  Payment status: "+string(o.PaymentStatus))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "render pdf")
	}
	return buf.Bytes(), nil
}
