package httpapi

import (
	"net/http"

	"agent_gateway/internal/billing"
	"agent_gateway/internal/utils"
)

// BillingHandler serves the usage report
type BillingHandler struct {
	aggregator *billing.Aggregator
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(aggregator *billing.Aggregator) *BillingHandler {
	return &BillingHandler{aggregator: aggregator}
}

// Report handles GET /api/billing?startDate=YYYY-MM-DD&endDate=YYYY-MM-DD.
// Both bounds are optional and inclusive.
func (h *BillingHandler) Report(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := billing.ParseRange(q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}

	report, err := h.aggregator.Aggregate(r.Context(), rng)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, report)
}
