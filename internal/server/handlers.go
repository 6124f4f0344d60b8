package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"labordash/internal/store"
	"labordash/internal/table"
	"labordash/internal/view"
)

const missingMessage = "no data found: run the collector first"

// selection is the filtered view a request asked for.
type selection struct {
	full    table.Table
	version time.Time
	start   time.Time
	end     time.Time
	rows    table.Table
}

func (sel selection) query() string {
	values := url.Values{}
	values.Set("start", sel.start.Format(table.DateLayout))
	values.Set("end", sel.end.Format(table.DateLayout))
	return values.Encode()
}

// selectRange loads the table and applies the start/end query parameters.
// It writes the error response itself and reports false when the handler
// should stop.
func (s *Server) selectRange(c *gin.Context, page bool) (selection, bool) {
	start, err := parseDay(c.Query("start"))
	if err != nil {
		s.fail(c, page, http.StatusBadRequest, fmt.Errorf("start: %w", err))
		return selection{}, false
	}
	end, err := parseDay(c.Query("end"))
	if err != nil {
		s.fail(c, page, http.StatusBadRequest, fmt.Errorf("end: %w", err))
		return selection{}, false
	}

	full, version, err := s.loader.Load(c.Request.Context())
	if err == nil && full.Empty() {
		err = store.ErrNotFound
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			if page {
				c.HTML(http.StatusServiceUnavailable, "missing.html", gin.H{"Message": missingMessage})
			} else {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": missingMessage})
			}
			return selection{}, false
		}
		s.logger.Error("load table", zap.Error(err))
		s.fail(c, page, http.StatusInternalServerError, err)
		return selection{}, false
	}
	s.metrics.TableRows(full.Len())

	start, end = view.Clamp(full, start, end)
	return selection{
		full:    full,
		version: version,
		start:   start,
		end:     end,
		rows:    view.Derive(full, start, end),
	}, true
}

func (s *Server) fail(c *gin.Context, page bool, status int, err error) {
	if page {
		c.HTML(status, "error.html", gin.H{"Status": status, "Message": err.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseDay(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	value, err := time.Parse(table.DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return value, nil
}

type kpiCard struct {
	Label   string
	Value   string
	Delta   string
	Adverse bool
}

type panelView struct {
	view.Panel
	Src string
}

type rawRow struct {
	Date  string
	Cells []string
}

type indexPage struct {
	Start      string
	End        string
	MinDate    string
	MaxDate    string
	ExportURL  string
	KPIs       []kpiCard
	KPIMessage string
	Panels     []panelView
	Columns    []string
	Rows       []rawRow
}

func (s *Server) index(c *gin.Context) {
	sel, ok := s.selectRange(c, true)
	if !ok {
		return
	}
	minDate, _ := sel.full.MinDate()
	maxDate, _ := sel.full.MaxDate()

	page := indexPage{
		Start:     sel.start.Format(table.DateLayout),
		End:       sel.end.Format(table.DateLayout),
		MinDate:   minDate.Format(table.DateLayout),
		MaxDate:   maxDate.Format(table.DateLayout),
		ExportURL: "/export.xlsx?" + sel.query(),
		Columns:   sel.rows.Columns,
	}

	set, err := view.ComputeKPIs(view.ForwardFill(sel.rows), view.TrackedMetrics)
	switch {
	case errors.Is(err, view.ErrInsufficientData):
		page.KPIMessage = "Not enough data in range to compute KPIs."
	case err != nil:
		s.fail(c, true, http.StatusInternalServerError, err)
		return
	default:
		for _, kpi := range set.KPIs {
			page.KPIs = append(page.KPIs, kpiCard{
				Label:   kpi.Label,
				Value:   view.FormatValue(kpi),
				Delta:   view.FormatDelta(kpi),
				Adverse: kpi.Adverse(),
			})
		}
	}

	for _, panel := range view.DefaultPanels {
		page.Panels = append(page.Panels, panelView{
			Panel: panel,
			Src:   "/charts/" + panel.ID + "?" + sel.query(),
		})
	}

	for _, row := range view.Descending(sel.rows).Rows {
		cells := make([]string, len(row.Cells))
		for i, cell := range row.Cells {
			cells[i] = view.FormatCell(cell.Value, cell.Valid)
		}
		page.Rows = append(page.Rows, rawRow{Date: row.Date.Format(table.DateLayout), Cells: cells})
	}

	c.HTML(http.StatusOK, "index.html", page)
}

func (s *Server) chart(c *gin.Context) {
	panel, ok := view.PanelByID(c.Param("panel"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown panel"})
		return
	}
	sel, ok := s.selectRange(c, false)
	if !ok {
		return
	}

	key := ""
	if !sel.version.IsZero() {
		key = fmt.Sprintf("%d|%s|%s", sel.version.UnixNano(), panel.ID, sel.query())
		if png, ok := s.charts.Get(key); ok {
			c.Data(http.StatusOK, "image/png", png)
			return
		}
	}

	png, err := renderPanel(sel.rows, panel)
	if err != nil {
		s.logger.Warn("chart render failed, serving blank", zap.String("panel", panel.ID), zap.Error(err))
		png, err = blankPNG(chartWidth, chartHeight)
		if err != nil {
			s.fail(c, false, http.StatusInternalServerError, err)
			return
		}
	}
	if key != "" {
		s.charts.Add(key, png)
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (s *Server) apiTable(c *gin.Context) {
	sel, ok := s.selectRange(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, NewTablePayload(view.Descending(sel.rows)))
}

func (s *Server) apiKPIs(c *gin.Context) {
	sel, ok := s.selectRange(c, false)
	if !ok {
		return
	}
	set, err := view.ComputeKPIs(view.ForwardFill(sel.rows), view.TrackedMetrics)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, view.ErrInsufficientData) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, NewKPIPayload(set))
}

func (s *Server) export(c *gin.Context) {
	sel, ok := s.selectRange(c, false)
	if !ok {
		return
	}
	data, err := buildWorkbook(view.Descending(sel.rows))
	if err != nil {
		s.logger.Error("export workbook", zap.Error(err))
		s.fail(c, false, http.StatusInternalServerError, err)
		return
	}
	filename := fmt.Sprintf("labor_%s_%s.xlsx", sel.start.Format("20060102"), sel.end.Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}
