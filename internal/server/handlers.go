package server

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"insightedge/internal/dataset"
	"insightedge/internal/narrative"
	"insightedge/internal/view"
)

type navItem struct {
	Slug   string
	Title  string
	Active bool
}

type pageData struct {
	AppTitle    string
	Nav         []navItem
	Result      view.Result
	ChartURL    string
	ChartWidth  int
	ChartHeight int
}

type errorData struct {
	AppTitle  string
	Status    int
	Message   string
	RequestID string
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) readyz(c *gin.Context) {
	data := s.dash.Dataset()
	first, last := data.Range()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"records": data.Len(),
		"from":    dataset.FormatDate(first),
		"to":      dataset.FormatDate(last),
	})
}

func (s *Server) page(p view.Page) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := view.ParseRequest(p.Slug(), c.Query("date"))
		if err != nil {
			s.fail(c, err)
			return
		}
		res, err := s.dash.Render(c.Request.Context(), req)
		if err != nil {
			s.fail(c, err)
			return
		}

		nav := make([]navItem, 0, len(view.Pages()))
		for _, item := range view.Pages() {
			nav = append(nav, navItem{Slug: item.Slug(), Title: item.Title(), Active: item == p})
		}
		c.HTML(http.StatusOK, "page.html", pageData{
			AppTitle:    view.AppTitle,
			Nav:         nav,
			Result:      res,
			ChartURL:    "/trend/chart.svg",
			ChartWidth:  s.opts.ChartWidth,
			ChartHeight: s.opts.ChartHeight,
		})
	}
}

func (s *Server) api(c *gin.Context) {
	req, err := view.ParseRequest(c.Param("page"), c.Query("date"))
	if err != nil {
		s.failJSON(c, err)
		return
	}
	res, err := s.dash.Render(c.Request.Context(), req)
	if err != nil {
		s.failJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) chart(format string) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.dash.Render(c.Request.Context(), view.Request{Page: view.TrendChart})
		if err != nil {
			s.fail(c, err)
			return
		}

		var buf bytes.Buffer
		contentType := "image/png"
		if format == "svg" {
			contentType = "image/svg+xml"
			err = res.Trend.RenderSVG(&buf, s.opts.ChartWidth, s.opts.ChartHeight)
		} else {
			err = res.Trend.RenderPNG(&buf, s.opts.ChartWidth, s.opts.ChartHeight)
		}
		if err != nil {
			s.fail(c, err)
			return
		}
		c.Data(http.StatusOK, contentType, buf.Bytes())
	}
}

// statusFor maps render failures to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, view.ErrUnknownPage):
		return http.StatusNotFound
	case errors.Is(err, view.ErrBadDate):
		return http.StatusBadRequest
	case errors.Is(err, view.ErrTooFewPoints):
		return http.StatusUnprocessableEntity
	case errors.Is(err, view.ErrUnavailable):
		return http.StatusServiceUnavailable
	case narrative.KindOf(err) != "":
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func publicMessage(status int, err error) string {
	switch status {
	case http.StatusNotFound:
		return "Page not found."
	case http.StatusBadRequest:
		return "Invalid date. Use the YYYY-MM-DD format."
	case http.StatusUnprocessableEntity:
		return "Not enough data to draw the trend chart."
	case http.StatusBadGateway:
		return narrative.Notice(err)
	}
	return "The view could not be rendered."
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	c.HTML(status, "error.html", errorData{
		AppTitle:  view.AppTitle,
		Status:    status,
		Message:   publicMessage(status, err),
		RequestID: c.GetString(requestIDKey),
	})
}

func (s *Server) failJSON(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	c.JSON(status, gin.H{
		"error":      publicMessage(status, err),
		"request_id": c.GetString(requestIDKey),
	})
}
