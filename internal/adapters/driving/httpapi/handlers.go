package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/tripwise/internal/core/domain"
	"github.com/custodia-labs/tripwise/internal/logger"
)

// uploadField is the multipart field carrying uploaded files.
const uploadField = "files"

type skippedJSON struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// itineraryRequest accepts city and days as aliases for destination and
// duration.
type itineraryRequest struct {
	Destination string `json:"destination"`
	City        string `json:"city"`
	Duration    int    `json:"duration"`
	Days        int    `json:"days"`
	Preferences string `json:"preferences"`
}

func (r itineraryRequest) toDomain() domain.ItineraryRequest {
	req := domain.ItineraryRequest{
		Destination:  r.Destination,
		DurationDays: r.Duration,
		Preferences:  r.Preferences,
	}
	if req.Destination == "" {
		req.Destination = r.City
	}
	if req.DurationDays == 0 {
		req.DurationDays = r.Days
	}
	return req
}

// upload ingests every file in the multipart "files" field.
func (s *Server) upload(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expected a multipart form with files"})
	}
	headers := form.File[uploadField]
	if len(headers) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no files uploaded"})
	}

	uploads := make([]domain.Upload, 0, len(headers))
	skipped := make([]skippedJSON, 0)
	for _, fh := range headers {
		content, err := s.readUpload(fh)
		if err != nil {
			logger.Warn("skipping %s: %v", fh.Filename, err)
			skipped = append(skipped, skippedJSON{Name: fh.Filename, Reason: "could not read file"})
			continue
		}
		uploads = append(uploads, domain.Upload{
			Filename: fh.Filename,
			MIMEType: fh.Header.Get(echo.HeaderContentType),
			Content:  content,
		})
	}
	if len(uploads) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "no valid files were uploaded",
			"skipped": skipped,
		})
	}

	result, err := s.svc.Ingest.IngestBatch(c.Request().Context(), uploads)
	if result != nil {
		for _, sk := range result.Skipped {
			skipped = append(skipped, skippedJSON{Name: sk.Name, Reason: sk.Reason})
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrNoValidFiles) {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error":   "no valid files were uploaded",
				"skipped": skipped,
			})
		}
		return err
	}

	documents := result.Ingested
	if documents == nil {
		documents = []domain.DocumentSummary{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"documents": documents,
		"skipped":   skipped,
		"ingested":  len(documents),
	})
}

func (s *Server) readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := s.openUpload(fh)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if s.maxBytes > 0 {
		r = io.LimitReader(f, s.maxBytes+1)
	}
	return io.ReadAll(r)
}

func (s *Server) documents(c echo.Context) error {
	docs, err := s.svc.Documents.List(c.Request().Context())
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []domain.DocumentSummary{}
	}
	return c.JSON(http.StatusOK, echo.Map{"documents": docs})
}

// generateItinerary answers 200 for every outcome of a valid request,
// including status "processing" and "error".
func (s *Server) generateItinerary(c echo.Context) error {
	var body itineraryRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}

	result, err := s.svc.Itinerary.Generate(c.Request().Context(), body.toDomain())
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// query answers a free-form question. Like generateItinerary it answers
// 200 for every outcome of a valid request.
func (s *Server) query(c echo.Context) error {
	var body domain.Question
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid json"})
	}

	answer, err := s.svc.Questions.Ask(c.Request().Context(), body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return err
	}
	if answer.Sources == nil {
		answer.Sources = []domain.Source{}
	}
	return c.JSON(http.StatusOK, answer)
}

func (s *Server) health(c echo.Context) error {
	state := domain.ReadinessReady
	var gateErr error
	if s.svc.Readiness != nil {
		state = s.svc.Readiness.State()
		gateErr = s.svc.Readiness.Err()
	}

	status := "starting"
	switch state {
	case domain.ReadinessReady:
		status = "ok"
	case domain.ReadinessDegraded:
		status = "degraded"
	}

	resp := echo.Map{
		"status":    status,
		"readiness": state.String(),
	}
	if gateErr != nil {
		resp["error"] = gateErr.Error()
	}

	stats, err := s.svc.Documents.Stats(c.Request().Context())
	if err != nil {
		resp["status"] = "unavailable"
		resp["error"] = err.Error()
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	resp["documents"] = stats.Documents
	resp["chunks"] = stats.Chunks
	resp["vectors"] = stats.Vectors
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) reset(c echo.Context) error {
	if err := s.svc.Documents.Reset(c.Request().Context()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "reset"})
}
