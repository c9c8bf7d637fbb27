package router

import (
	"pharmacy_pos_backend/internal/handlers"
	"pharmacy_pos_backend/internal/middleware"
	"pharmacy_pos_backend/internal/models"

	"github.com/gin-gonic/gin"
)

var (
	roleAdmin   = string(models.RoleAdmin)
	roleChemist = string(models.RoleChemist)
	roleDrugist = string(models.RoleDrugist)
)

// SetupInventoryRoutes sets up the inventory routes.
func SetupInventoryRoutes(authenticatedGroup *gin.RouterGroup, inventoryHandler *handlers.InventoryHandler) {
	inventoryRoutes := authenticatedGroup.Group("/inventory")
	inventoryRoutes.Use(middleware.RoleAuthMiddleware(roleAdmin, roleChemist, roleDrugist))
	{
		inventoryRoutes.POST("", inventoryHandler.CreateItem)
		inventoryRoutes.GET("", inventoryHandler.GetItems)
		inventoryRoutes.GET("/expiring", inventoryHandler.GetExpiringItems)
		inventoryRoutes.GET("/movements", inventoryHandler.GetMovements)
		inventoryRoutes.GET("/:id", inventoryHandler.GetItemByID)
		inventoryRoutes.PUT("/:id", inventoryHandler.UpdateItem)
		inventoryRoutes.DELETE("/:id", inventoryHandler.DeleteItem)
	}
}

// SetupCustomerRoutes sets up the customer routes.
func SetupCustomerRoutes(authenticatedGroup *gin.RouterGroup, customerHandler *handlers.CustomerHandler) {
	customerRoutes := authenticatedGroup.Group("/customers")
	customerRoutes.Use(middleware.RoleAuthMiddleware(roleAdmin, roleChemist, roleDrugist))
	{
		customerRoutes.POST("", customerHandler.CreateCustomer)
		customerRoutes.GET("", customerHandler.GetCustomers)
		customerRoutes.GET("/:id", customerHandler.GetCustomerByID)
		customerRoutes.PUT("/:id", customerHandler.UpdateCustomer)
		customerRoutes.DELETE("/:id", customerHandler.DeleteCustomer)
	}
}

// SetupAgencyRoutes sets up the supplier agency routes.
func SetupAgencyRoutes(authenticatedGroup *gin.RouterGroup, agencyHandler *handlers.AgencyHandler) {
	agencyRoutes := authenticatedGroup.Group("/agencies")
	agencyRoutes.Use(middleware.RoleAuthMiddleware(roleAdmin, roleChemist, roleDrugist))
	{
		agencyRoutes.POST("", agencyHandler.CreateAgency)
		agencyRoutes.GET("", agencyHandler.GetAgencies)
		agencyRoutes.GET("/:id", agencyHandler.GetAgencyByID)
		agencyRoutes.PUT("/:id", agencyHandler.UpdateAgency)
		agencyRoutes.DELETE("/:id", agencyHandler.DeleteAgency)
	}
}

// SetupBillRoutes sets up the billing routes.
func SetupBillRoutes(authenticatedGroup *gin.RouterGroup, billHandler *handlers.BillHandler) {
	billRoutes := authenticatedGroup.Group("/bills")
	billRoutes.Use(middleware.RoleAuthMiddleware(roleAdmin, roleChemist, roleDrugist))
	{
		billRoutes.POST("", billHandler.CreateBill)
		billRoutes.GET("", billHandler.GetBills)
		billRoutes.GET("/:id", billHandler.GetBillByID)
		billRoutes.GET("/:id/print", billHandler.PrintBill)
		billRoutes.DELETE("/:id", billHandler.DeleteBill)
	}
}

// SetupPlanRoutes sets up the plan catalogue. Reads are open to every role, writes are admin only.
func SetupPlanRoutes(authenticatedGroup *gin.RouterGroup, planHandler *handlers.PlanHandler) {
	planRoutes := authenticatedGroup.Group("/plans")
	{
		planRoutes.GET("", planHandler.GetPlans)
		planRoutes.GET("/:id", planHandler.GetPlanByID)

		adminPlanRoutes := planRoutes.Group("")
		adminPlanRoutes.Use(middleware.RoleAuthMiddleware(roleAdmin))
		{
			adminPlanRoutes.POST("", planHandler.CreatePlan)
			adminPlanRoutes.PUT("/:id", planHandler.UpdatePlan)
			adminPlanRoutes.DELETE("/:id", planHandler.DeletePlan)
		}
	}
}

// SetupSubscriptionRoutes sets up the self-service subscription routes.
func SetupSubscriptionRoutes(authenticatedGroup *gin.RouterGroup, subscriptionHandler *handlers.SubscriptionHandler) {
	subscriptionRoutes := authenticatedGroup.Group("/subscriptions")
	{
		subscriptionRoutes.POST("/action", subscriptionHandler.SubscriptionAction)
		subscriptionRoutes.GET("/me", subscriptionHandler.GetMySubscription)
		subscriptionRoutes.GET("/usage", subscriptionHandler.GetUsage)
	}
}

// SetupStaffRoutes lets shop owners add staff accounts.
func SetupStaffRoutes(authenticatedGroup *gin.RouterGroup, authHandler *handlers.AuthHandler) {
	staffRoutes := authenticatedGroup.Group("/staff")
	staffRoutes.Use(middleware.RoleAuthMiddleware(roleChemist, roleDrugist))
	{
		staffRoutes.POST("", authHandler.CreateStaffUser)
	}
}

// SetupAdminRoutes sets up the admin-only management routes.
func SetupAdminRoutes(authenticatedGroup *gin.RouterGroup, authHandler *handlers.AuthHandler, subscriptionHandler *handlers.SubscriptionHandler) {
	adminRoutes := authenticatedGroup.Group("/admin")
	adminRoutes.Use(middleware.RoleAuthMiddleware(roleAdmin))
	{
		adminRoutes.GET("/users", authHandler.ListUsers)
		adminRoutes.POST("/subscriptions/assign", subscriptionHandler.AssignSubscription)
		adminRoutes.POST("/subscriptions/sweep", subscriptionHandler.SweepExpired)
	}
}
