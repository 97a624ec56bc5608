package httpx

import (
	"net/http"
	"strconv"
)

// Billing gate response headers surfaced on DUE accounts.
const (
	headerBillingStatus = "X-Billing-Status"
	headerBillingDays   = "X-Billing-Days-Until-Suspension"
)

// withBillingGate enforces the billing disposition after authentication.
// DUE accounts proceed with warning headers, SUSPENDED accounts receive
// a structured 403, everything else passes through. The gate itself
// never fails a request for infrastructure reasons.
func (r *Router) withBillingGate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		principal, _ := principalFromContext(req.Context())
		decision := r.billing.Guard(req.Context(), req.URL.Path, principal)
		switch {
		case decision.Rejection != nil:
			r.recordBillingDisposition("rejected")
			writeJSON(w, http.StatusForbidden, decision.Rejection)
			return
		case decision.Warning != nil:
			r.recordBillingDisposition("warned")
			w.Header().Set(headerBillingStatus, decision.Warning.Status)
			if decision.Warning.DaysUntilSuspension != nil {
				w.Header().Set(headerBillingDays, strconv.Itoa(*decision.Warning.DaysUntilSuspension))
			}
		default:
			r.recordBillingDisposition("allowed")
		}
		next(w, req)
	}
}
