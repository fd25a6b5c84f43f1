package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pharmacy_admin/internal/ordering"
	"pharmacy_admin/internal/services"
)

func mapErrorToStatus(err error) int {
	var verr *ordering.ValidationError
	var subErr *services.SubmissionError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &subErr):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrSubscriptionNotFound),
		errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrReceiptUnavailable),
		errors.Is(err, ordering.ErrLineNotFound),
		errors.Is(err, ordering.ErrPharmacyNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrSubmissionInProgress),
		errors.Is(err, services.ErrSessionBusy),
		errors.Is(err, services.ErrSubscriptionInactive),
		errors.Is(err, services.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrInvalidTotal),
		errors.Is(err, services.ErrLineNotSelected),
		errors.Is(err, services.ErrSubscriptionEmpty),
		errors.Is(err, ordering.ErrProductNotStocked),
		errors.Is(err, ordering.ErrInvalidAddressMode):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrOperatorInactive):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Validation failures also list what is
// missing; internal errors are logged and not echoed.
func respondError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	var verr *ordering.ValidationError
	if errors.As(err, &verr) {
		details := gin.H{}
		missing := make([]string, 0, len(verr.MissingLines))
		for _, k := range verr.MissingLines {
			missing = append(missing, k.WireKey())
		}
		details["missing_lines"] = missing
		if verr.AddressErr != nil {
			details["address"] = verr.AddressErr.Error()
		}
		c.JSON(status, gin.H{"error": err.Error(), "details": details})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
