package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/analytics/internal/reports/domain"
)

type reportSeriesResponse struct {
	Name   string      `json:"name"`
	Values []domain.XY `json:"values"`
}

// GetReportsTimeSeries answers name=<spec>&startDate=&endDate=&smooth= with one entry
// per report and pivot.
func (s *Server) GetReportsTimeSeries(c *gin.Context) {
	startDate, err := parseOptionalDay(c.Query("startDate"))
	if err != nil {
		AbortWithError(c, newValidationError("startDate", "invalid_date", "startDate must be YYYY-MM-DD"))
		return
	}
	endDate, err := parseOptionalDay(c.Query("endDate"))
	if err != nil {
		AbortWithError(c, newValidationError("endDate", "invalid_date", "endDate must be YYYY-MM-DD"))
		return
	}

	series, err := s.reportSvc.GetTimeSeriesForReports(c.Request.Context(), domain.TimeSeriesRequest{
		Reports:   queryList(c.QueryArray("name")),
		StartDate: startDate,
		EndDate:   endDate,
		Smoother:  c.Query("smooth"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]reportSeriesResponse, 0, len(series))
	for _, item := range series {
		values := item.Values
		if values == nil {
			values = []domain.XY{}
		}
		resp = append(resp, reportSeriesResponse{Name: item.Name, Values: values})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListReportConfigs(c *gin.Context) {
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be a number"))
		return
	}

	resp, err := s.reportSvc.ListReports(c.Request.Context(), domain.ListRequest{
		PageToken: c.Query("page_token"),
		PageSize:  pageSize,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) CreateReportConfig(c *gin.Context) {
	var req domain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cfg, err := s.reportSvc.CreateReport(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (s *Server) GetReportConfig(c *gin.Context) {
	cfg, err := s.reportSvc.GetReport(c.Request.Context(), c.Param("name"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) UpdateReportConfig(c *gin.Context) {
	var req domain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	cfg, err := s.reportSvc.UpdateReport(c.Request.Context(), c.Param("name"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) DeleteReportConfig(c *gin.Context) {
	if err := s.reportSvc.DeleteReport(c.Request.Context(), c.Param("name")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) RefreshReportConfig(c *gin.Context) {
	if err := s.reportSvc.RefreshReport(c.Request.Context(), c.Param("name")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
