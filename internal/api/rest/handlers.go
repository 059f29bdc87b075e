package rest

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	domainErrors "github.com/davidleathers/phone-validation-service/internal/domain/errors"
	"github.com/davidleathers/phone-validation-service/internal/service/batch"
)

// handleValidateNumber validates a single number from a JSON body.
// A number the parser rejects is still a 200: the parse failure lives
// in the record's errors, not in the HTTP status.
func (s *Server) handleValidateNumber(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxValidateBodyBytes)

	var req ValidateRequest
	if err := s.base.ParseAndValidate(r, &req); err != nil {
		s.base.handleError(w, r, err)
		return
	}

	record := s.services.Validator.Validate(r.Context(), req.PhoneNumber)
	s.base.writeSuccess(w, r, http.StatusOK, record)
}

// handleValidateNumberByPath is the path-parameter variant of single
// validation.
func (s *Server) handleValidateNumberByPath(w http.ResponseWriter, r *http.Request) {
	req := ValidateRequest{PhoneNumber: r.PathValue("number")}
	if err := s.base.ValidateStruct(&req); err != nil {
		s.base.handleError(w, r, err)
		return
	}

	record := s.services.Validator.Validate(r.Context(), req.PhoneNumber)
	s.base.writeSuccess(w, r, http.StatusOK, record)
}

// handleBatchValidate runs bulk validation over an uploaded CSV. The
// payload is either a multipart form with a "file" part or a raw CSV
// body. Results come back inline; when the result store is enabled the
// batch is also kept for CSV export and the response carries the
// download URL.
func (s *Server) handleBatchValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxUploadBytes)

	payload, err := batchPayload(r)
	if err != nil {
		s.base.handleError(w, r, err)
		return
	}
	defer payload.Close()

	result, err := s.services.Batch.Run(r.Context(), payload)
	if err != nil {
		s.base.handleError(w, r, err)
		return
	}

	resp := &BatchSubmitResponse{
		BatchID:   result.BatchID,
		Summary:   result.Summary,
		Records:   result.Records,
		CreatedAt: result.CreatedAt,
	}

	if s.services.Cache.Enabled() {
		if err := s.services.Cache.Results.StoreResult(r.Context(), result, s.config.Batch.ResultTTL); err != nil {
			// Export is best effort; the caller already has the records.
			s.logger.WarnContext(r.Context(), "batch result store failed",
				"batch_id", result.BatchID,
				"error", err)
		} else {
			resp.DownloadURL = "/api/v1/batch/" + result.BatchID + "/export"
		}
	}

	s.base.writeSuccess(w, r, http.StatusOK, resp)
}

// batchPayload picks the CSV source out of the request: the "file"
// part of a multipart form, or the body as-is.
func batchPayload(r *http.Request) (io.ReadCloser, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return r.Body, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, domainErrors.NewValidationError("MISSING_FILE", `multipart upload requires a "file" part`)
	}

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".csv" {
		file.Close()
		return nil, domainErrors.NewValidationError("UNSUPPORTED_FILE_TYPE", "uploaded file must be a .csv")
	}

	return file, nil
}

// handleBatchExport streams a stored batch result as CSV.
func (s *Server) handleBatchExport(w http.ResponseWriter, r *http.Request) {
	batchID := r.PathValue("id")
	if _, err := uuid.Parse(batchID); err != nil {
		s.base.handleError(w, r, domainErrors.NewValidationError("INVALID_BATCH_ID", "batch ID must be a UUID"))
		return
	}

	result, err := s.services.Cache.Results.GetResult(r.Context(), batchID)
	if err != nil {
		s.base.handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="validation_results.csv"`)
	w.WriteHeader(http.StatusOK)

	if err := batch.WriteResults(w, result); err != nil {
		// Headers are gone already; all we can do is log.
		s.logger.ErrorContext(r.Context(), "batch export write failed",
			"batch_id", batchID,
			"error", err)
	}
}
