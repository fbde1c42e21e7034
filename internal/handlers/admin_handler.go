package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"choreking/internal/repository"
	"choreking/internal/service"
	"choreking/internal/validation"
)

// Back-office and public content actions of the dispatcher. Admin actions
// are only reachable through the adminOnly gate in app_handler.go.

func (h *AppHandler) adminListFamilies(w http.ResponseWriter) {
	listings, err := h.adminService.ListFamilies()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"families": listings})
}

func (h *AppHandler) adminCreateFamily(w http.ResponseWriter, payload json.RawMessage) {
	var body struct {
		FamilyName string `json:"familyName"`
		City       string `json:"city"`
		Email      string `json:"email"`
		Password   string `json:"password"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	family, err := h.authService.CreateFamily(body.FamilyName, body.City, body.Email, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": family.ID, "familyCode": family.FamilyCode})
}

func (h *AppHandler) adminUpdateFamily(w http.ResponseWriter, payload json.RawMessage) {
	var body struct {
		FamilyID   string  `json:"familyId"`
		FamilyName *string `json:"familyName"`
		City       *string `json:"city"`
		Email      *string `json:"email"`
		FamilyCode *string `json:"familyCode"`
		Password   *string `json:"password"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	update := repository.ProfileUpdate{
		FamilyName: body.FamilyName,
		City:       body.City,
		Email:      body.Email,
		FamilyCode: body.FamilyCode,
	}
	if err := h.familyService.UpdateProfile(body.FamilyID, update); err != nil {
		writeServiceError(w, err)
		return
	}
	if body.Password != nil {
		if err := h.familyService.SetPassword(body.FamilyID, *body.Password); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AppHandler) adminDeleteFamily(w http.ResponseWriter, payload json.RawMessage) {
	var body struct {
		FamilyID string `json:"familyId"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.authService.DeleteFamily(body.FamilyID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AppHandler) adminStats(w http.ResponseWriter) {
	stats, err := h.adminService.Stats()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AppHandler) financialOverview(w http.ResponseWriter) {
	overview, err := h.adminService.Financials()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *AppHandler) refreshSubscription(w http.ResponseWriter, r *http.Request, payload json.RawMessage) {
	var body struct {
		FamilyID string `json:"familyId"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := h.adminService.RefreshSubscription(r.Context(), body.FamilyID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// --- Content actions ---

// parseDate accepts full timestamps or bare dates from the admin forms
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, &validation.Error{Message: "invalid date, use YYYY-MM-DD"}
	}
	return t, nil
}

func (h *AppHandler) getGoodCauses(w http.ResponseWriter) {
	causes, err := h.contentService.ListGoodCauses()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"goodCauses": causes})
}

func (h *AppHandler) saveGoodCause(w http.ResponseWriter, payload json.RawMessage) {
	var body struct {
		ID          string  `json:"id"`
		Name        string  `json:"name"`
		Description string  `json:"description"`
		StartDate   string  `json:"startDate"`
		EndDate     string  `json:"endDate"`
		LogoURL     *string `json:"logoUrl"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	startDate, err := parseDate(body.StartDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	endDate, err := parseDate(body.EndDate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	input := service.GoodCauseInput{
		Name:        body.Name,
		Description: body.Description,
		StartDate:   startDate,
		EndDate:     endDate,
		LogoURL:     body.LogoURL,
	}
	if body.ID == "" {
		_, err = h.contentService.CreateGoodCause(input)
	} else {
		_, err = h.contentService.UpdateGoodCause(body.ID, input)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.getGoodCauses(w)
}

func (h *AppHandler) getBlogPosts(w http.ResponseWriter, r *http.Request) {
	// Drafts are only visible to the admin
	family := h.mw.currentFamily(r)
	publishedOnly := family == nil || !family.IsAdmin

	posts, err := h.contentService.ListBlogPosts(publishedOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"blogPosts": posts})
}

func (h *AppHandler) getBlogPost(w http.ResponseWriter, payload json.RawMessage) {
	var body struct {
		Slug string `json:"slug"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	post, err := h.contentService.GetBlogPostBySlug(body.Slug)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *AppHandler) saveBlogPost(w http.ResponseWriter, payload json.RawMessage) {
	var body struct {
		ID             string   `json:"id"`
		Title          string   `json:"title"`
		Slug           string   `json:"slug"`
		Excerpt        string   `json:"excerpt"`
		Content        string   `json:"content"`
		CoverImageURL  *string  `json:"coverImageUrl"`
		Tags           []string `json:"tags"`
		Status         string   `json:"status"`
		SEOTitle       *string  `json:"seoTitle"`
		SEODescription *string  `json:"seoDescription"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}

	input := service.BlogPostInput{
		Title:          body.Title,
		Slug:           body.Slug,
		Excerpt:        body.Excerpt,
		Content:        body.Content,
		CoverImageURL:  body.CoverImageURL,
		Tags:           body.Tags,
		Status:         body.Status,
		SEOTitle:       body.SEOTitle,
		SEODescription: body.SEODescription,
	}
	var err error
	if body.ID == "" {
		_, err = h.contentService.CreateBlogPost(input)
	} else {
		_, err = h.contentService.UpdateBlogPost(body.ID, input)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AppHandler) getReviews(w http.ResponseWriter, r *http.Request) {
	family := h.mw.currentFamily(r)
	publishedOnly := family == nil || !family.IsAdmin

	reviews, err := h.contentService.ListReviews(publishedOnly)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reviews": reviews})
}

func (h *AppHandler) saveReview(w http.ResponseWriter, payload json.RawMessage) {
	var body struct {
		ID             string  `json:"id"`
		Title          string  `json:"title"`
		Slug           string  `json:"slug"`
		Excerpt        string  `json:"excerpt"`
		Content        string  `json:"content"`
		Rating         int     `json:"rating"`
		Author         string  `json:"author"`
		Status         string  `json:"status"`
		SEOTitle       *string `json:"seoTitle"`
		SEODescription *string `json:"seoDescription"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}

	input := service.ReviewInput{
		Title:          body.Title,
		Slug:           body.Slug,
		Excerpt:        body.Excerpt,
		Content:        body.Content,
		Rating:         body.Rating,
		Author:         body.Author,
		Status:         body.Status,
		SEOTitle:       body.SEOTitle,
		SEODescription: body.SEODescription,
	}
	var err error
	if body.ID == "" {
		_, err = h.contentService.CreateReview(input)
	} else {
		_, err = h.contentService.UpdateReview(body.ID, input)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AppHandler) deleteByID(w http.ResponseWriter, payload json.RawMessage, deleteFn func(string) error) {
	var body struct {
		ID string `json:"id"`
	}
	if !h.decodePayload(w, payload, &body) {
		return
	}
	if err := deleteFn(body.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
