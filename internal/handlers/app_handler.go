package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"choreking/internal/models"
	"choreking/internal/security"
	"choreking/internal/service"
)

// AppHandler serves the single-endpoint application API: GET /api/app returns
// the session's family state, POST /api/app dispatches {action, payload}
// envelopes to the matching operation.
type AppHandler struct {
	mw             *Middleware
	authService    *service.AuthService
	familyService  *service.FamilyService
	adminService   *service.AdminService
	contentService *service.ContentService
	limiter        *security.RateLimiter
}

// NewAppHandler creates a new app handler
func NewAppHandler(
	mw *Middleware,
	authService *service.AuthService,
	familyService *service.FamilyService,
	adminService *service.AdminService,
	contentService *service.ContentService,
	limiter *security.RateLimiter,
) *AppHandler {
	return &AppHandler{
		mw:             mw,
		authService:    authService,
		familyService:  familyService,
		adminService:   adminService,
		contentService: contentService,
		limiter:        limiter,
	}
}

type actionRequest struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload"`
}

// rateLimitedActions are the credential-bearing actions a stranger can hit
var rateLimitedActions = map[string]bool{
	"register":          true,
	"login":             true,
	"adminLogin":        true,
	"childLogin":        true,
	"recoverFamilyCode": true,
}

// HandleGetState serves GET /api/app. An anonymous request gets
// {"family": null} rather than an error, so the client can render the
// landing page from one call.
func (h *AppHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	family := h.mw.currentFamily(r)
	if family == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"family": nil})
		return
	}
	h.respondWithState(w, family.ID)
}

// HandleHealth serves GET /healthz
func (h *AppHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAction serves POST /api/app
func (h *AppHandler) HandleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.Action == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "action is required")
		return
	}

	if rateLimitedActions[req.Action] && !h.limiter.Allow(security.GetClientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many attempts, slow down")
		return
	}

	switch req.Action {
	// Public actions
	case "register":
		h.register(w, r, req.Payload)
	case "login":
		h.login(w, r, req.Payload)
	case "adminLogin":
		h.adminLogin(w, r, req.Payload)
	case "lookupFamilyByCode":
		h.lookupFamilyByCode(w, req.Payload)
	case "childLogin":
		h.childLogin(w, req.Payload)
	case "recoverFamilyCode":
		h.recoverFamilyCode(w, r, req.Payload)
	case "getGoodCauses":
		h.getGoodCauses(w)
	case "getBlogPosts":
		h.getBlogPosts(w, r)
	case "getBlogPost":
		h.getBlogPost(w, req.Payload)
	case "getReviews":
		h.getReviews(w, r)

	default:
		h.handleSessionAction(w, r, req)
	}
}

// handleSessionAction covers every action that needs a logged-in family
func (h *AppHandler) handleSessionAction(w http.ResponseWriter, r *http.Request, req actionRequest) {
	family := h.mw.currentFamily(r)
	if family == nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required")
		return
	}

	switch req.Action {
	case "logout":
		h.logout(w, r)
	case "refreshFamily":
		h.respondWithState(w, family.ID)

	case "addChild", "updateChild":
		h.saveChild(w, family, req.Payload, req.Action == "updateChild")
	case "deleteChild":
		h.deleteChild(w, family, req.Payload)
	case "updateChildPoints":
		h.updateChildPoints(w, family, req.Payload)

	case "addChore", "updateChore":
		h.saveChore(w, family, req.Payload, req.Action == "updateChore")
	case "deleteChore":
		h.deleteChore(w, family, req.Payload)
	case "submitChoreForApproval":
		h.submitChore(w, family, req.Payload)
	case "approveChore":
		h.approveChore(w, family, req.Payload)
	case "rejectChore":
		h.rejectChore(w, family, req.Payload)

	case "addReward", "updateReward":
		h.saveReward(w, family, req.Payload, req.Action == "updateReward")
	case "deleteReward":
		h.deleteReward(w, family, req.Payload)
	case "redeemReward":
		h.redeemReward(w, family, req.Payload)
	case "markRewardAsGiven":
		h.markRewardAsGiven(w, family, req.Payload)

	case "saveRecoveryEmail":
		h.saveRecoveryEmail(w, family, req.Payload)
	case "changePassword":
		h.changePassword(w, family, req.Payload)

	default:
		h.handleAdminAction(w, r, req, family)
	}
}

// handleAdminAction covers the back-office actions
func (h *AppHandler) handleAdminAction(w http.ResponseWriter, r *http.Request, req actionRequest, family *models.Family) {
	if !family.IsAdmin {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "admin access required")
		return
	}

	switch req.Action {
	case "adminListFamilies":
		h.adminListFamilies(w)
	case "adminCreateFamily":
		h.adminCreateFamily(w, req.Payload)
	case "adminUpdateFamily":
		h.adminUpdateFamily(w, req.Payload)
	case "adminDeleteFamily":
		h.adminDeleteFamily(w, req.Payload)
	case "getAdminStats":
		h.adminStats(w)
	case "getFinancialOverview":
		h.financialOverview(w)
	case "refreshSubscription":
		h.refreshSubscription(w, r, req.Payload)

	case "saveGoodCause":
		h.saveGoodCause(w, req.Payload)
	case "deleteGoodCause":
		h.deleteByID(w, req.Payload, h.contentService.DeleteGoodCause)
	case "saveBlogPost":
		h.saveBlogPost(w, req.Payload)
	case "deleteBlogPost":
		h.deleteByID(w, req.Payload, h.contentService.DeleteBlogPost)
	case "saveReview":
		h.saveReview(w, req.Payload)
	case "deleteReview":
		h.deleteByID(w, req.Payload, h.contentService.DeleteReview)

	default:
		writeError(w, http.StatusBadRequest, "UNKNOWN_ACTION", fmt.Sprintf("unknown action %q", req.Action))
	}
}

func (h *AppHandler) decodePayload(w http.ResponseWriter, payload json.RawMessage, dst interface{}) bool {
	if len(payload) == 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "payload is required")
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload")
		return false
	}
	return true
}

// respondWithState replies with the family's refreshed snapshot. Mutating
// actions all answer this way so the client never merges partial updates.
func (h *AppHandler) respondWithState(w http.ResponseWriter, familyID string) {
	state, err := h.familyService.GetFamilyState(familyID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"family": state})
}

// --- Auth actions ---

func (h *AppHandler) register(w http.ResponseWriter, r *http.Request, payload json.RawMessage) {
	var body struct {
		FamilyName string `json:"familyName"`
		City       string `json:"city"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	family, session, err := h.authService.Register(body.FamilyName, body.City, body.Email, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.SetCookie(w, security.CreateSessionCookie(r, session.Token, session.ExpiresAt))
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) login(w http.ResponseWriter, r *http.Request, payload json.RawMessage) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	family, session, err := h.authService.Login(body.Email, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.SetCookie(w, security.CreateSessionCookie(r, session.Token, session.ExpiresAt))
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) adminLogin(w http.ResponseWriter, r *http.Request, payload json.RawMessage) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	family, session, err := h.authService.AdminLogin(body.Email, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	http.SetCookie(w, security.CreateSessionCookie(r, session.Token, session.ExpiresAt))
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(security.SessionCookieName); err == nil {
		if err := h.authService.Logout(cookie.Value); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	http.SetCookie(w, security.CreateDeleteCookie(r))
	writeJSON(w, http.StatusOK, map[string]interface{}{"family": nil})
}

func (h *AppHandler) lookupFamilyByCode(w http.ResponseWriter, payload json.RawMessage) {
	var body struct {
		FamilyCode string `json:"familyCode"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	preview, err := h.familyService.LookupFamilyByCode(body.FamilyCode)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (h *AppHandler) childLogin(w http.ResponseWriter, payload json.RawMessage) {
	var body struct {
		FamilyCode string `json:"familyCode"`
		ChildID    string `json:"childId"`
		PIN        string `json:"pin"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	child, err := h.familyService.ChildLogin(body.FamilyCode, body.ChildID, body.PIN)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, service.ChildState{
		ID:              child.ID,
		Name:            child.Name,
		PIN:             child.PIN,
		Points:          child.Points,
		TotalPointsEver: child.TotalPointsEver,
		Avatar:          child.Avatar,
	})
}

func (h *AppHandler) recoverFamilyCode(w http.ResponseWriter, r *http.Request, payload json.RawMessage) {
	var body struct {
		Email string `json:"email"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.authService.RecoverFamilyCode(r.Context(), body.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// --- Child actions ---

func (h *AppHandler) saveChild(w http.ResponseWriter, family *models.Family, payload json.RawMessage, isUpdate bool) {
	var body struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		PIN    string `json:"pin"`
		Avatar string `json:"avatar"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}

	var err error
	if isUpdate {
		err = h.familyService.UpdateChild(family.ID, body.ID, body.Name, body.PIN, body.Avatar)
	} else {
		_, err = h.familyService.AddChild(family.ID, body.Name, body.PIN, body.Avatar)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) deleteChild(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		ChildID string `json:"childId"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.familyService.RemoveChild(family.ID, body.ChildID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) updateChildPoints(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		ChildID string `json:"childId"`
		Delta   int    `json:"delta"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.familyService.AdjustChildPoints(family.ID, body.ChildID, body.Delta); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

// --- Chore actions ---

// saveChore handles addChore and updateChore. Updates merge with the stored
// chore, so a payload may carry only the fields that changed.
func (h *AppHandler) saveChore(w http.ResponseWriter, family *models.Family, payload json.RawMessage, isUpdate bool) {
	var body struct {
		ID         string   `json:"id"`
		Name       *string  `json:"name"`
		Points     *int     `json:"points"`
		AssignedTo []string `json:"assignedTo"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}

	var err error
	if isUpdate {
		if body.ID == "" {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "id is required")
			return
		}
		_, err = h.familyService.UpdateChore(family.ID, body.ID, body.Name, body.Points, body.AssignedTo)
	} else {
		var name string
		var points int
		if body.Name != nil {
			name = *body.Name
		}
		if body.Points != nil {
			points = *body.Points
		}
		_, err = h.familyService.SaveChore(family.ID, "", name, points, body.AssignedTo)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) deleteChore(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		ChoreID string `json:"choreId"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.familyService.RemoveChore(family.ID, body.ChoreID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) submitChore(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		ChoreID     string     `json:"choreId"`
		ChildID     string     `json:"childId"`
		Emotion     *string    `json:"emotion"`
		PhotoURL    *string    `json:"photoUrl"`
		SubmittedAt *time.Time `json:"submittedAt"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.familyService.SubmitChore(family.ID, body.ChoreID, body.ChildID, body.Emotion, body.PhotoURL, body.SubmittedAt); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) approveChore(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		ChoreID string `json:"choreId"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.familyService.ApproveChore(family.ID, body.ChoreID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) rejectChore(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		ChoreID string `json:"choreId"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.familyService.RejectChore(family.ID, body.ChoreID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

// --- Reward actions ---

// saveReward handles addReward and updateReward. Updates merge with the
// stored reward, so a payload may carry only the fields that changed.
func (h *AppHandler) saveReward(w http.ResponseWriter, family *models.Family, payload json.RawMessage, isUpdate bool) {
	var body struct {
		ID         string   `json:"id"`
		Name       *string  `json:"name"`
		Points     *int     `json:"points"`
		Type       *string  `json:"type"`
		AssignedTo []string `json:"assignedTo"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}

	var err error
	if isUpdate {
		if body.ID == "" {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "id is required")
			return
		}
		_, err = h.familyService.UpdateReward(family.ID, body.ID, body.Name, body.Points, body.Type, body.AssignedTo)
	} else {
		var name, rewardType string
		var points int
		if body.Name != nil {
			name = *body.Name
		}
		if body.Points != nil {
			points = *body.Points
		}
		if body.Type != nil {
			rewardType = *body.Type
		}
		_, err = h.familyService.SaveReward(family.ID, "", name, points, rewardType, body.AssignedTo)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) deleteReward(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		RewardID string `json:"rewardId"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.familyService.RemoveReward(family.ID, body.RewardID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) redeemReward(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		RewardID string `json:"rewardId"`
		ChildID  string `json:"childId"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if _, err := h.familyService.RedeemReward(family.ID, body.RewardID, body.ChildID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) markRewardAsGiven(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		PendingRewardID string `json:"pendingRewardId"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.familyService.ClearPendingReward(family.ID, body.PendingRewardID); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

// --- Account actions ---

func (h *AppHandler) saveRecoveryEmail(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		Email string `json:"email"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.familyService.UpdateRecoveryEmail(family.ID, body.Email); err != nil {
		writeServiceError(w, err)
		return
	}
	h.respondWithState(w, family.ID)
}

func (h *AppHandler) changePassword(w http.ResponseWriter, family *models.Family, payload json.RawMessage) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.familyService.ChangePassword(family.ID, body.CurrentPassword, body.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
