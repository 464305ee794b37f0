package handler

import (
	"net/http"

	"github.com/osse101/mobilesync/internal/domain"
	"github.com/osse101/mobilesync/internal/policy"
)

// SetPolicyRequest is the admin body for creating or replacing a policy
type SetPolicyRequest struct {
	TenantID         string          `json:"tenant_id" validate:"required,max=128"`
	Domain           string          `json:"domain" validate:"required,max=64"`
	Strategy         domain.Strategy `json:"resolution_strategy" validate:"required,strategy"`
	AutoResolve      *bool           `json:"auto_resolve"`
	NotifyOnConflict bool            `json:"notify_on_conflict"`
}

// InvalidatePolicyRequest drops cached policies. An empty domain drops the whole tenant.
type InvalidatePolicyRequest struct {
	TenantID string `json:"tenant_id" validate:"required"`
	Domain   string `json:"domain"`
}

// PoliciesResponse lists stored policies for a tenant
type PoliciesResponse struct {
	Policies []domain.ConflictPolicy `json:"policies"`
}

// AdminPolicyHandler manages tenant conflict policies
type AdminPolicyHandler struct {
	policies policy.Service
}

// NewAdminPolicyHandler creates a new admin policy handler
func NewAdminPolicyHandler(policies policy.Service) *AdminPolicyHandler {
	return &AdminPolicyHandler{policies: policies}
}

// HandleListPolicies lists stored policies
// @Summary List tenant policies
// @Tags admin
// @Produce json
// @Param tenant_id query string true "Tenant"
// @Success 200 {object} PoliciesResponse
// @Router /api/v1/admin/policies [get]
func (h *AdminPolicyHandler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := GetQueryParam(r, w, QueryParamTenantID)
	if !ok {
		return
	}
	list, err := h.policies.ListPolicies(r.Context(), tenantID)
	if err != nil {
		respondServiceError(w, r, "List policies", err)
		return
	}
	if list == nil {
		list = []domain.ConflictPolicy{}
	}
	respondJSON(w, http.StatusOK, PoliciesResponse{Policies: list})
}

// HandleGetEffectivePolicy returns the policy the resolver would apply, default included
// @Summary Effective policy
// @Tags admin
// @Produce json
// @Param tenant_id query string true "Tenant"
// @Param domain query string true "Entity domain"
// @Success 200 {object} domain.ConflictPolicy
// @Router /api/v1/admin/policies/effective [get]
func (h *AdminPolicyHandler) HandleGetEffectivePolicy(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := GetQueryParam(r, w, QueryParamTenantID)
	if !ok {
		return
	}
	domainName, ok := GetQueryParam(r, w, QueryParamDomain)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.policies.GetPolicy(r.Context(), tenantID, domainName))
}

// HandleSetPolicy upserts a policy and invalidates its cache entry
// @Summary Set tenant policy
// @Tags admin
// @Accept json
// @Produce json
// @Param request body SetPolicyRequest true "Policy"
// @Success 200 {object} domain.ConflictPolicy
// @Failure 400 {object} ValidationErrorResponse
// @Router /api/v1/admin/policies [put]
func (h *AdminPolicyHandler) HandleSetPolicy(w http.ResponseWriter, r *http.Request) {
	var req SetPolicyRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Set policy"); err != nil {
		return
	}

	autoResolve := true
	if req.AutoResolve != nil {
		autoResolve = *req.AutoResolve
	}
	p, err := h.policies.SetPolicy(r.Context(), domain.ConflictPolicy{
		TenantID:         req.TenantID,
		Domain:           req.Domain,
		Strategy:         req.Strategy,
		AutoResolve:      autoResolve,
		NotifyOnConflict: req.NotifyOnConflict,
	})
	if err != nil {
		respondServiceError(w, r, "Set policy", err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// HandleInvalidate drops cached policies
// @Summary Invalidate policy cache
// @Tags admin
// @Accept json
// @Produce json
// @Param request body InvalidatePolicyRequest true "Scope"
// @Success 200 {object} MessageResponse
// @Router /api/v1/admin/policies/invalidate [post]
func (h *AdminPolicyHandler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	var req InvalidatePolicyRequest
	if err := DecodeAndValidateRequest(r, w, &req, "Invalidate policy"); err != nil {
		return
	}
	h.policies.Invalidate(r.Context(), req.TenantID, req.Domain)
	respondJSON(w, http.StatusOK, MessageResponse{Message: MsgPolicyCacheInvalidated})
}

// HandleCacheStats returns policy cache hit/miss counters
// @Summary Policy cache stats
// @Tags admin
// @Produce json
// @Success 200 {object} policy.CacheStats
// @Router /api/v1/admin/policies/cache [get]
func (h *AdminPolicyHandler) HandleCacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.policies.CacheStats())
}
