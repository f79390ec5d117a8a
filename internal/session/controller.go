package session

import (
	"context"
	"errors"
	"net/http"

	"pricewatch/internal/filters"
	"pricewatch/internal/pricing"
	"pricewatch/internal/shared/middleware"
	"pricewatch/internal/shared/utils/response"
	"pricewatch/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Controller interface {
	CreateSession(c *gin.Context)
	GetSession(c *gin.Context)
	DeleteSession(c *gin.Context)
	SetCountry(c *gin.Context)
	SetPackage(c *gin.Context)
	SetDeparturePoint(c *gin.Context)
	SetPartySize(c *gin.Context)
	Refetch(c *gin.Context)
	GetCatalog(c *gin.Context)
	ReloadCatalog(c *gin.Context)
	GetPricing(c *gin.Context)
	GetOffer(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

func (ctrl *controller) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	// An empty body starts an unseeded session.
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	view, err := ctrl.service.Create(c.Request.Context(), filters.Selection{
		Country:        req.Country,
		Package:        req.Package,
		DeparturePoint: req.DeparturePoint,
		PartySize:      req.PartySize,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Session created successfully", view)
}

func (ctrl *controller) GetSession(c *gin.Context) {
	view, err := ctrl.service.Get(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Session retrieved successfully", view)
}

func (ctrl *controller) DeleteSession(c *gin.Context) {
	if err := ctrl.service.Delete(c.Request.Context(), middleware.SessionID(c)); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Session deleted successfully", nil)
}

func (ctrl *controller) SetCountry(c *gin.Context) {
	var req SetCountryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := ctrl.service.SetCountry(c.Request.Context(), middleware.SessionID(c), req.Country)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Country selected", view)
}

func (ctrl *controller) SetPackage(c *gin.Context) {
	var req SetPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := ctrl.service.SetPackage(c.Request.Context(), middleware.SessionID(c), req.Package)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Package selected", view)
}

func (ctrl *controller) SetDeparturePoint(c *gin.Context) {
	var req SetDeparturePointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := ctrl.service.SetDeparturePoint(c.Request.Context(), middleware.SessionID(c), req.DeparturePoint)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Departure point selected", view)
}

func (ctrl *controller) SetPartySize(c *gin.Context) {
	var req SetPartySizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	view, err := ctrl.service.SetPartySize(c.Request.Context(), middleware.SessionID(c), req.PartySize)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Party size selected", view)
}

func (ctrl *controller) Refetch(c *gin.Context) {
	view, err := ctrl.service.Refetch(c.Request.Context(), middleware.SessionID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Pricing refetched", view)
}

func (ctrl *controller) GetCatalog(c *gin.Context) {
	cat, err := ctrl.service.Catalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Catalog retrieved successfully", cat)
}

func (ctrl *controller) ReloadCatalog(c *gin.Context) {
	cat, err := ctrl.service.ReloadCatalog(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Catalog reloaded", cat)
}

func (ctrl *controller) GetPricing(c *gin.Context) {
	model, err := ctrl.service.Pricing(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Pricing retrieved successfully", model)
}

func (ctrl *controller) GetOffer(c *gin.Context) {
	offer, err := ctrl.service.Offer(c.Request.Context(), c.Param("fileId"))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Offer resolved", offer)
}

func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		logger.GetDefault().LogHTTPError(c, err, code)
	}
	response.Error(c, code, http.StatusText(code), err)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrOfferNotFound):
		return http.StatusNotFound
	case errors.Is(err, filters.ErrUnknownOption), errors.Is(err, ErrInvalidFileID):
		return http.StatusBadRequest
	case errors.Is(err, pricing.ErrNoFileID):
		return http.StatusConflict
	case errors.Is(err, filters.ErrNoCatalog):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	}

	switch errorKindOf(err) {
	case ErrorKindNetwork:
		return http.StatusBadGateway
	case ErrorKindFormat:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
