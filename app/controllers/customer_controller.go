package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/invoxly/invoxly/app/models"
	"github.com/invoxly/invoxly/app/repository"
	"github.com/invoxly/invoxly/internal/pkg/usercontext"
)

// HandleListCustomers returns the authenticated user's customers.
func HandleListCustomers(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	repo := repository.GetGlobalFactory().GetCustomerRepository()

	if query := strings.TrimSpace(c.Query("q")); query != "" {
		customers, err := repo.Search(userCtx.UserID, query)
		if err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load customers")
		}
		return c.JSON(fiber.Map{"customers": customers})
	}

	offset, limit := paginationParams(c)
	customers, err := repo.GetByUserID(userCtx.UserID, offset, limit)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load customers")
	}
	total, err := repo.CountByUserID(userCtx.UserID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to load customers")
	}
	return c.JSON(fiber.Map{"customers": customers, "total": total})
}

// HandleGetCustomer returns one customer by ID.
func HandleGetCustomer(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid customer id")
	}

	customer, err := repository.GetGlobalFactory().GetCustomerRepository().GetByID(userCtx.UserID, id)
	if err != nil {
		return paymentErrorResponse(c, err)
	}
	return c.JSON(customer)
}

// HandleCreateCustomer creates a customer for the authenticated user.
func HandleCreateCustomer(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var customer models.Customer
	if err := c.BodyParser(&customer); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	customer.ID = 0
	customer.UserID = userCtx.UserID

	if err := customer.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Customer data is invalid")
	}
	if err := repository.GetGlobalFactory().GetCustomerRepository().Create(&customer); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to create customer")
	}
	return c.Status(fiber.StatusCreated).JSON(customer)
}

// HandleUpdateCustomer updates a customer owned by the authenticated user.
func HandleUpdateCustomer(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid customer id")
	}

	repo := repository.GetGlobalFactory().GetCustomerRepository()
	existing, err := repo.GetByID(userCtx.UserID, id)
	if err != nil {
		return paymentErrorResponse(c, err)
	}

	var update models.Customer
	if err := c.BodyParser(&update); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid request body")
	}
	existing.Name = update.Name
	existing.Email = update.Email
	existing.Phone = update.Phone
	existing.Address = update.Address
	existing.TaxID = update.TaxID

	if err := existing.Validate(); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Customer data is invalid")
	}
	if err := repo.Update(existing); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to update customer")
	}
	return c.JSON(existing)
}

// HandleDeleteCustomer soft deletes a customer owned by the authenticated user.
func HandleDeleteCustomer(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	id, err := parseIDParam(c)
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "bad_request", "Invalid customer id")
	}

	repo := repository.GetGlobalFactory().GetCustomerRepository()
	if _, err := repo.GetByID(userCtx.UserID, id); err != nil {
		return paymentErrorResponse(c, err)
	}
	if err := repo.Delete(userCtx.UserID, id); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Failed to delete customer")
	}
	return c.JSON(fiber.Map{"success": true})
}
