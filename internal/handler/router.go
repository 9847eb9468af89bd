package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siports-api/internal/middleware"
	"github.com/noah-isme/siports-api/internal/models"
)

// Handlers groups the API handlers mounted under the versioned prefix.
type Handlers struct {
	Exhibitors   *ExhibitorHandler
	Slots        *TimeSlotHandler
	Appointments *AppointmentHandler
	MiniSites    *MiniSiteHandler
}

// RouteMiddleware carries the cross-cutting middleware routes depend on.
type RouteMiddleware struct {
	// Auth authenticates the caller and stores JWT claims on the context.
	Auth gin.HandlerFunc
	// AppointmentLimiter throttles appointment requests. Optional.
	AppointmentLimiter gin.HandlerFunc
}

// RegisterRoutes mounts the booking and mini-site API on r.
func RegisterRoutes(r gin.IRouter, h Handlers, mw RouteMiddleware) {
	admin := middleware.RequireRoles(models.RoleAdmin)
	owner := middleware.RequireRoles(models.RoleExhibitor, models.RoleAdmin)
	requester := middleware.RequireRoles(models.RoleVisitor, models.RolePartner, models.RoleAdmin)

	public := r.Group("")
	public.POST("/minisites/:id/views", h.MiniSites.RecordView)
	public.GET("/public/minisites/:exhibitorId", h.MiniSites.Public)

	secured := r.Group("", mw.Auth)

	secured.POST("/exhibitors", admin, h.Exhibitors.Create)
	secured.GET("/exhibitors", h.Exhibitors.List)
	secured.GET("/exhibitors/:id", h.Exhibitors.Get)
	secured.POST("/exhibitors/:id/verify", admin, h.Exhibitors.Verify)

	secured.POST("/exhibitors/:id/slots", owner, h.Slots.Create)
	secured.POST("/exhibitors/:id/slots/bulk", owner, h.Slots.BulkCreate)
	secured.GET("/exhibitors/:id/slots", h.Slots.List)
	secured.GET("/slots/:id", h.Slots.Get)
	secured.DELETE("/slots/:id", owner, h.Slots.Delete)

	request := []gin.HandlerFunc{requester}
	if mw.AppointmentLimiter != nil {
		request = append(request, mw.AppointmentLimiter)
	}
	request = append(request, h.Appointments.Request)
	secured.POST("/appointments", request...)
	secured.GET("/appointments/:id", h.Appointments.Get)
	secured.POST("/appointments/:id/confirm", owner, h.Appointments.Confirm)
	secured.POST("/appointments/:id/cancel", h.Appointments.Cancel)
	secured.GET("/visitors/:id/appointments", middleware.RBAC(middleware.SelfRole, string(models.RoleAdmin)), h.Appointments.ListForVisitor)
	secured.GET("/exhibitors/:id/appointments", owner, h.Appointments.ListForExhibitor)
	secured.GET("/exhibitors/:id/appointments/export", owner, h.Appointments.Export)

	secured.POST("/exhibitors/:id/minisite", owner, h.MiniSites.Create)
	secured.GET("/exhibitors/:id/minisite", h.MiniSites.GetByExhibitor)
	secured.GET("/minisites/:id", h.MiniSites.Get)
	secured.POST("/minisites/:id/enrich", owner, h.MiniSites.Enrich)
	secured.PATCH("/minisites/:id/publish", owner, h.MiniSites.Publish)
	secured.PATCH("/minisites/:id/theme", owner, h.MiniSites.Theme)
}
