package controllers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/invoxly/invoxly/app/models"
	"github.com/invoxly/invoxly/app/repository"
	"github.com/invoxly/invoxly/internal/pkg/entitlements"
	"github.com/invoxly/invoxly/internal/pkg/usercontext"
)

type invoiceItemRequest struct {
	ProductID           *uint  `json:"product_id"`
	Description         string `json:"description"`
	Quantity            int    `json:"quantity"`
	UnitPriceMinorUnits int64  `json:"unit_price_minor_units"`
}

type invoiceRequest struct {
	CustomerID *uint                `json:"customer_id"`
	Currency   string               `json:"currency"`
	DueAt      *time.Time           `json:"due_at"`
	Notes      string               `json:"notes"`
	Items      []invoiceItemRequest `json:"items"`
}

// HandleListInvoices returns the authenticated user's invoices.
func HandleListInvoices(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetInvoiceRepository()

	offset, limit := paginationParams(c)
	invoices, err := repo.GetByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load invoices")
	}
	total, err := repo.CountByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load invoices")
	}
	return c.JSON(fiber.Map{"invoices": invoices, "total": total})
}

// HandleGetInvoice returns one invoice with its items.
func HandleGetInvoice(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid invoice id")
	}

	invoice, err := repository.GetGlobalFactory().GetInvoiceRepository().GetByID(userCtx.UserID, id)
	if err != nil {
		return paymentErrorResponse(c, err)
	}
	return c.JSON(invoice)
}

// HandleCreateInvoice creates a customer invoice. Free accounts are capped at
// a fixed number of open invoices; paid roles have no cap.
func HandleCreateInvoice(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repos := repository.GetGlobalRepositories()

	role := entitlements.NormalizeRole(usercontext.GetRole(c))
	if limit := entitlements.MaxOpenInvoices(role); limit > 0 {
		open, err := repos.Invoice.CountOpenByUserID(userCtx.UserID)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to check invoice limit")
		}
		if open >= int64(limit) {
			return jsonError(c, fiber.StatusForbidden, "limit_reached", "Open invoice limit reached, upgrade to create more")
		}
	}

	invoice, errResp := buildInvoiceFromRequest(c, userCtx.UserID, nil)
	if errResp != nil {
		return errResp
	}

	number, err := repos.Invoice.NextNumber(userCtx.UserID, invoice.IssuedAt)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create invoice")
	}
	invoice.Number = number

	if err := repos.Invoice.Create(invoice); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create invoice")
	}
	return c.Status(fiber.StatusCreated).JSON(invoice)
}

// HandleUpdateInvoice replaces a draft invoice's content. Sent and paid
// invoices are immutable apart from status transitions.
func HandleUpdateInvoice(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid invoice id")
	}

	repo := repository.GetGlobalFactory().GetInvoiceRepository()
	existing, err := repo.GetByID(userCtx.UserID, id)
	if err != nil {
		return paymentErrorResponse(c, err)
	}
	if existing.Status != models.InvoiceStatusDraft || existing.Kind != models.InvoiceKindCustomer {
		return jsonError(c, fiber.StatusConflict, "conflict", "Only draft invoices can be edited")
	}

	invoice, errResp := buildInvoiceFromRequest(c, userCtx.UserID, existing)
	if errResp != nil {
		return errResp
	}
	if err := repo.Update(invoice); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update invoice")
	}
	return c.JSON(invoice)
}

// HandleUpdateInvoiceStatus moves an invoice through its lifecycle.
func HandleUpdateInvoiceStatus(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid invoice id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}

	repo := repository.GetGlobalFactory().GetInvoiceRepository()
	existing, err := repo.GetByID(userCtx.UserID, id)
	if err != nil {
		return paymentErrorResponse(c, err)
	}
	if existing.Kind != models.InvoiceKindCustomer {
		return jsonError(c, fiber.StatusConflict, "conflict", "Internal receipts cannot change status")
	}
	if !validInvoiceTransition(existing.Status, req.Status) {
		return jsonError(c, fiber.StatusConflict, "conflict", "Invalid status transition")
	}

	if err := repo.UpdateStatus(userCtx.UserID, id, req.Status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "Invoice not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update invoice")
	}
	return c.JSON(fiber.Map{"success": true, "status": req.Status})
}

// HandleExportInvoices streams the user's customer invoices as CSV. The
// route sits behind the paid-plan gate; internal upgrade receipts are not
// part of the export.
func HandleExportInvoices(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetInvoiceRepository()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"number", "status", "currency", "total_minor_units", "issued_at", "due_at"})

	const pageSize = 200
	for offset := 0; ; offset += pageSize {
		invoices, err := repo.GetByUserID(userCtx.UserID, offset, pageSize)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to export invoices")
		}
		for _, inv := range invoices {
			if inv.Kind != models.InvoiceKindCustomer {
				continue
			}
			dueAt := ""
			if inv.DueAt != nil {
				dueAt = inv.DueAt.UTC().Format(time.RFC3339)
			}
			_ = w.Write([]string{
				inv.Number,
				inv.Status,
				inv.Currency,
				strconv.FormatInt(inv.TotalMinorUnits, 10),
				inv.IssuedAt.UTC().Format(time.RFC3339),
				dueAt,
			})
		}
		if len(invoices) < pageSize {
			break
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to export invoices")
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="invoices.csv"`)
	return c.Send(buf.Bytes())
}

// HandleDeleteInvoice soft deletes a draft invoice.
func HandleDeleteInvoice(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid invoice id")
	}

	repo := repository.GetGlobalFactory().GetInvoiceRepository()
	existing, err := repo.GetByID(userCtx.UserID, id)
	if err != nil {
		return paymentErrorResponse(c, err)
	}
	if existing.Status != models.InvoiceStatusDraft {
		return jsonError(c, fiber.StatusConflict, "conflict", "Only draft invoices can be deleted")
	}
	if err := repo.Delete(userCtx.UserID, id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete invoice")
	}
	return c.JSON(fiber.Map{"success": true})
}

// buildInvoiceFromRequest parses and validates an invoice payload. When
// existing is non-nil its identity and lifecycle fields are preserved.
func buildInvoiceFromRequest(c *fiber.Ctx, userID uint, existing *models.Invoice) (*models.Invoice, error) {
	var req invoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	if len(req.Items) == 0 {
		return nil, jsonError(c, fiber.StatusBadRequest, "validation_failed", "An invoice needs at least one item")
	}

	repos := repository.GetGlobalRepositories()
	if req.CustomerID != nil {
		if _, err := repos.Customer.GetByID(userID, *req.CustomerID); err != nil {
			return nil, jsonError(c, fiber.StatusBadRequest, "validation_failed", "Unknown customer")
		}
	}

	invoice := &models.Invoice{
		UserID:   userID,
		Kind:     models.InvoiceKindCustomer,
		Status:   models.InvoiceStatusDraft,
		Currency: "INR",
		IssuedAt: time.Now(),
	}
	if existing != nil {
		invoice.ID = existing.ID
		invoice.Number = existing.Number
		invoice.Status = existing.Status
		invoice.IssuedAt = existing.IssuedAt
		invoice.CreatedAt = existing.CreatedAt
	}
	invoice.CustomerID = req.CustomerID
	invoice.DueAt = req.DueAt
	invoice.Notes = req.Notes
	if req.Currency != "" {
		invoice.Currency = req.Currency
	}

	for _, item := range req.Items {
		unitPrice := item.UnitPriceMinorUnits
		description := item.Description
		if item.ProductID != nil {
			product, err := repos.Product.GetByID(userID, *item.ProductID)
			if err != nil {
				return nil, jsonError(c, fiber.StatusBadRequest, "validation_failed", "Unknown product")
			}
			if description == "" {
				description = product.Name
			}
			if unitPrice == 0 {
				unitPrice = product.UnitPriceMinorUnits
			}
		}
		invoice.Items = append(invoice.Items, models.InvoiceItem{
			ProductID:           item.ProductID,
			Description:         description,
			Quantity:            item.Quantity,
			UnitPriceMinorUnits: unitPrice,
		})
	}
	invoice.ComputeTotal()

	if err := invoice.Validate(); err != nil {
		return nil, jsonError(c, fiber.StatusBadRequest, "validation_failed", "Invoice data is invalid")
	}
	return invoice, nil
}

func validInvoiceTransition(from, to string) bool {
	switch from {
	case models.InvoiceStatusDraft:
		return to == models.InvoiceStatusSent || to == models.InvoiceStatusVoid
	case models.InvoiceStatusSent:
		return to == models.InvoiceStatusPaid || to == models.InvoiceStatusVoid
	default:
		return false
	}
}
