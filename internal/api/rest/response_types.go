package rest

import (
	"time"

	"github.com/davidleathers/phone-validation-service/internal/domain/phone"
)

// ValidateRequest is the body of POST /validate.
type ValidateRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
}

// BatchSubmitResponse is the body of a successful POST /batch. Records
// are returned inline; DownloadURL is present only when the result was
// also stored for CSV export.
type BatchSubmitResponse struct {
	BatchID     string             `json:"batch_id"`
	Summary     phone.BatchSummary `json:"summary"`
	Records     []phone.Record     `json:"records"`
	CreatedAt   time.Time          `json:"created_at"`
	DownloadURL string             `json:"download_url,omitempty"`
}
