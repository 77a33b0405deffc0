package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/invoxly/invoxly/app/models"
	"github.com/invoxly/invoxly/app/repository"
	"github.com/invoxly/invoxly/internal/pkg/usercontext"
)

// HandleListProducts returns the authenticated user's products.
func HandleListProducts(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetProductRepository()

	offset, limit := paginationParams(c)
	products, err := repo.GetByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load products")
	}
	total, err := repo.CountByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load products")
	}
	return c.JSON(fiber.Map{"products": products, "total": total})
}

// HandleGetProduct returns one product by ID.
func HandleGetProduct(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid product id")
	}

	product, err := repository.GetGlobalFactory().GetProductRepository().GetByID(userCtx.UserID, id)
	if err != nil {
		return paymentErrorResponse(c, err)
	}
	return c.JSON(product)
}

// HandleCreateProduct creates a product for the authenticated user.
func HandleCreateProduct(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var product models.Product
	if err := c.BodyParser(&product); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	product.ID = 0
	product.UserID = userCtx.UserID
	if product.Currency == "" {
		product.Currency = "INR"
	}

	if err := product.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Product data is invalid")
	}
	if err := repository.GetGlobalFactory().GetProductRepository().Create(&product); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct updates a product owned by the authenticated user.
func HandleUpdateProduct(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid product id")
	}

	repo := repository.GetGlobalFactory().GetProductRepository()
	existing, err := repo.GetByID(userCtx.UserID, id)
	if err != nil {
		return paymentErrorResponse(c, err)
	}

	var update models.Product
	if err := c.BodyParser(&update); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	existing.Name = update.Name
	existing.Description = update.Description
	existing.UnitPriceMinorUnits = update.UnitPriceMinorUnits
	existing.TaxRateBps = update.TaxRateBps
	if update.Currency != "" {
		existing.Currency = update.Currency
	}

	if err := existing.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Product data is invalid")
	}
	if err := repo.Update(existing); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update product")
	}
	return c.JSON(existing)
}

// HandleDeleteProduct soft deletes a product owned by the authenticated user.
func HandleDeleteProduct(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid product id")
	}

	repo := repository.GetGlobalFactory().GetProductRepository()
	if _, err := repo.GetByID(userCtx.UserID, id); err != nil {
		return paymentErrorResponse(c, err)
	}
	if err := repo.Delete(userCtx.UserID, id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete product")
	}
	return c.JSON(fiber.Map{"success": true})
}
