package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"handover/src/pkg/capture"
	"handover/src/pkg/compress"
	"handover/src/pkg/datauri"
	"handover/src/pkg/export"
	"handover/src/pkg/layout"
	"handover/src/pkg/pipeline"
)

const headerExportState = "X-Export-State"

type dataURIRequest struct {
	DataURI string `json:"data_uri"`
}

// NormalizeResponse is returned by the stateless normalize endpoint.
type NormalizeResponse struct {
	Image   compress.EncodedImage `json:"image"`
	DataURI string                `json:"data_uri"`
}

func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"status": "ok", "drafts": s.store.Len()})
}

func (s *Server) lookup(c echo.Context) (*Draft, bool) {
	return s.store.Get(c.Param("id"))
}

func draftNotFound(c echo.Context) error {
	return jsonError(c, http.StatusNotFound, "handover not found")
}

func (s *Server) createHandover(c echo.Context) error {
	var report layout.Report
	if err := c.Bind(&report); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid report JSON")
	}
	report.ClaimantName = strings.TrimSpace(report.ClaimantName)
	report.TicketNumber = strings.TrimSpace(report.TicketNumber)
	if report.ClaimantName == "" || report.TicketNumber == "" {
		return jsonError(c, http.StatusBadRequest, "claimant_name and ticket_number are required")
	}
	report.Language = layout.ParseLanguage(string(report.Language))
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}

	draft := s.store.Create(report)
	tl.Log(tl.Info, palette.Green, "Created handover '%s' for ticket '%s'", draft.ID(), report.TicketNumber)
	return c.JSON(http.StatusCreated, draft.View())
}

func (s *Server) getHandover(c echo.Context) error {
	draft, ok := s.lookup(c)
	if !ok {
		return draftNotFound(c)
	}
	return c.JSON(http.StatusOK, draft.View())
}

func sourceOf(c echo.Context) capture.Source {
	if strings.EqualFold(c.QueryParam("source"), "camera") {
		return capture.SourceCameraFrame
	}
	return capture.SourceFileUpload
}

/*
readCapture accepts a multipart "photo" file, a JSON {"data_uri": ...} body or
raw image bytes.
*/
func (s *Server) readCapture(c echo.Context) (raw capture.RawImage, e *xerr.Error) {
	source := sourceOf(c)
	contentType := c.Request().Header.Get(echo.HeaderContentType)

	switch {
	case strings.HasPrefix(contentType, echo.MIMEMultipartForm):
		fileHeader, formErr := c.FormFile("photo")
		if formErr != nil {
			e = xerr.NewError(formErr, "read multipart photo field", "photo")
			return raw, e
		}
		file, openErr := fileHeader.Open()
		if openErr != nil {
			e = xerr.NewError(openErr, "open uploaded photo", fileHeader.Filename)
			return raw, e
		}
		defer func() {
			_ = file.Close()
		}()
		return capture.FromReader(file, source, s.maxUpload)

	case strings.HasPrefix(contentType, echo.MIMEApplicationJSON):
		var body dataURIRequest
		if bindErr := c.Bind(&body); bindErr != nil {
			e = xerr.NewError(bindErr, "decode data URI request", "")
			return raw, e
		}
		if size := datauri.EstimateBytes(body.DataURI); s.maxUpload > 0 && int64(size) > s.maxUpload {
			e = xerr.NewError(fmt.Errorf("image exceeds %d bytes", s.maxUpload), "read data URI photo", strconv.Itoa(size))
			return raw, e
		}
		return capture.FromDataURI(body.DataURI, source)

	default:
		return capture.FromReader(c.Request().Body, source, s.maxUpload)
	}
}

func (s *Server) processRequest(c echo.Context) (encoded compress.EncodedImage, source capture.Source, e *xerr.Error) {
	raw, e := s.readCapture(c)
	if e != nil {
		return encoded, source, e
	}
	encoded, e = pipeline.Process(raw, s.options)
	return encoded, raw.Source(), e
}

func (s *Server) addPhoto(c echo.Context) error {
	draft, ok := s.lookup(c)
	if !ok {
		return draftNotFound(c)
	}
	encoded, source, e := s.processRequest(c)
	if e != nil {
		tl.Log(tl.Warning, palette.Yellow, "Rejected photo for '%s': %s", draft.ID(), e)
		return jsonError(c, http.StatusBadRequest, "could not read photo")
	}
	slot := draft.AppendPhoto(encoded, source)
	return c.JSON(http.StatusCreated, photoView(slot, encoded, source))
}

func (s *Server) replacePhoto(c echo.Context) error {
	draft, ok := s.lookup(c)
	if !ok {
		return draftNotFound(c)
	}
	slot, convErr := strconv.Atoi(c.Param("slot"))
	if convErr != nil {
		return jsonError(c, http.StatusBadRequest, "slot must be an integer")
	}
	encoded, source, e := s.processRequest(c)
	if e != nil {
		return jsonError(c, http.StatusBadRequest, "could not read photo")
	}
	if e := draft.ReplacePhoto(slot, encoded, source); e != nil {
		return jsonError(c, http.StatusNotFound, "photo slot not found")
	}
	return c.JSON(http.StatusOK, photoView(slot, encoded, source))
}

func (s *Server) sheet(c echo.Context) error {
	draft, ok := s.lookup(c)
	if !ok {
		return draftNotFound(c)
	}
	htmlText, e := layout.RenderHTML(draft.Layout())
	if e != nil {
		return jsonError(c, http.StatusInternalServerError, "could not render sheet")
	}
	return c.HTML(http.StatusOK, htmlText)
}

func (s *Server) printSheet(c echo.Context) error {
	draft, ok := s.lookup(c)
	if !ok {
		return draftNotFound(c)
	}
	htmlText, e := layout.RenderPrintHTML(draft.Layout())
	if e != nil {
		return jsonError(c, http.StatusInternalServerError, "could not render print page")
	}
	return c.HTML(http.StatusOK, htmlText)
}

/*
exportSheet answers with the PDF inline when it was generated in memory, as
an attachment when it had to be saved first, and with the print page
otherwise. The X-Export-State header carries the final export state.
*/
func (s *Server) exportSheet(c echo.Context) error {
	draft, ok := s.lookup(c)
	if !ok {
		return draftNotFound(c)
	}
	page := draft.Layout()
	result, e := s.exporter.Export(page)
	if e != nil {
		tl.Log(tl.Error, palette.RedBold, "Export of '%s' failed: %s", draft.ID(), e)
		return jsonError(c, http.StatusInternalServerError, "could not export or print the sheet")
	}

	c.Response().Header().Set(headerExportState, string(result.State))
	name := export.FileName(page, time.Now())
	switch result.State {
	case export.StateOpened:
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", name))
		return c.Blob(http.StatusOK, "application/pdf", result.PDF)
	case export.StateSaved:
		return c.Attachment(result.SavedPath, name)
	default:
		return c.HTML(http.StatusOK, result.PrintHTML)
	}
}

func (s *Server) normalizePhoto(c echo.Context) error {
	raw, e := s.readCapture(c)
	if e != nil {
		return jsonError(c, http.StatusBadRequest, "could not read photo")
	}
	options := s.options
	if text := strings.TrimSpace(c.QueryParam("watermark")); text != "" {
		options = options.WithWatermark(text)
	}
	encoded, e := pipeline.Process(raw, options)
	if e != nil {
		return jsonError(c, http.StatusBadRequest, "could not process photo")
	}
	return c.JSON(http.StatusOK, NormalizeResponse{Image: encoded, DataURI: encoded.DataURI()})
}
