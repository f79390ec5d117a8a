package session

import (
	"pricewatch/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupSessionRoutes(router *gin.RouterGroup, controller Controller) {
	// Sessions - one filter cascade per browser
	router.POST("/sessions", controller.CreateSession) // POST /api/v1/sessions - Start a session

	sessions := router.Group("/sessions/:id")
	sessions.Use(middleware.RequireSessionID())
	{
		sessions.GET("", controller.GetSession)       // GET /api/v1/sessions/:id - Filters and pricing
		sessions.DELETE("", controller.DeleteSession) // DELETE /api/v1/sessions/:id - End a session

		sessions.PUT("/country", controller.SetCountry)          // PUT /api/v1/sessions/:id/country
		sessions.PUT("/package", controller.SetPackage)          // PUT /api/v1/sessions/:id/package
		sessions.PUT("/departure", controller.SetDeparturePoint) // PUT /api/v1/sessions/:id/departure
		sessions.PUT("/party-size", controller.SetPartySize)     // PUT /api/v1/sessions/:id/party-size
		sessions.POST("/refetch", controller.Refetch)            // POST /api/v1/sessions/:id/refetch - Reload pricing
	}

	// Catalog
	router.GET("/catalog", controller.GetCatalog)            // GET /api/v1/catalog
	router.POST("/catalog/reload", controller.ReloadCatalog) // POST /api/v1/catalog/reload

	// Data files by id
	router.GET("/pricing/:fileId", controller.GetPricing) // GET /api/v1/pricing/:fileId
	router.GET("/offers/:fileId", controller.GetOffer)    // GET /api/v1/offers/:fileId
}
