package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"choreking/internal/database"
	"choreking/internal/models"
)

// ContentRepository handles database operations for the marketing content
// entities: good causes, blog posts and reviews.
type ContentRepository struct {
	db *database.DB
}

// NewContentRepository creates a new content repository
func NewContentRepository(db *database.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// --- Good causes ---

const goodCauseColumns = "id, name, description, start_date, end_date, logo_url, created_at, updated_at"

func scanGoodCause(row interface{ Scan(...interface{}) error }) (*models.GoodCause, error) {
	cause := &models.GoodCause{}
	err := row.Scan(&cause.ID, &cause.Name, &cause.Description, &cause.StartDate,
		&cause.EndDate, &cause.LogoURL, &cause.CreatedAt, &cause.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return cause, nil
}

// CreateGoodCause inserts a new good cause
func (r *ContentRepository) CreateGoodCause(cause *models.GoodCause) error {
	query := `
		INSERT INTO good_causes (id, name, description, start_date, end_date, logo_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		cause.ID, cause.Name, cause.Description, cause.StartDate, cause.EndDate,
		cause.LogoURL, cause.CreatedAt, cause.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create good cause: %w", err)
	}
	return nil
}

// GetGoodCause retrieves a good cause by ID. Returns nil, nil when absent.
func (r *ContentRepository) GetGoodCause(id string) (*models.GoodCause, error) {
	query := "SELECT " + goodCauseColumns + " FROM good_causes WHERE id = ?"
	cause, err := scanGoodCause(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get good cause: %w", err)
	}
	return cause, nil
}

// ListGoodCauses returns all good causes, newest start date first
func (r *ContentRepository) ListGoodCauses() ([]models.GoodCause, error) {
	query := "SELECT " + goodCauseColumns + " FROM good_causes ORDER BY start_date DESC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query good causes: %w", err)
	}
	defer rows.Close()

	var causes []models.GoodCause
	for rows.Next() {
		cause, err := scanGoodCause(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan good cause: %w", err)
		}
		causes = append(causes, *cause)
	}
	return causes, rows.Err()
}

// UpdateGoodCause replaces the editable fields of a good cause
func (r *ContentRepository) UpdateGoodCause(cause *models.GoodCause) error {
	query := `
		UPDATE good_causes
		SET name = ?, description = ?, start_date = ?, end_date = ?, logo_url = ?, updated_at = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query,
		cause.Name, cause.Description, cause.StartDate, cause.EndDate,
		cause.LogoURL, cause.UpdatedAt, cause.ID)
	if err != nil {
		return fmt.Errorf("failed to update good cause: %w", err)
	}
	return nil
}

// DeleteGoodCause removes a good cause
func (r *ContentRepository) DeleteGoodCause(id string) error {
	if _, err := r.db.Exec("DELETE FROM good_causes WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete good cause: %w", err)
	}
	return nil
}

// --- Blog posts ---

const blogPostColumns = `id, title, slug, excerpt, content, cover_image_url, tags,
	status, seo_title, seo_description, created_at, updated_at, published_at`

func scanBlogPost(row interface{ Scan(...interface{}) error }) (*models.BlogPost, error) {
	post := &models.BlogPost{}
	var tags string
	var publishedAt sql.NullTime
	err := row.Scan(&post.ID, &post.Title, &post.Slug, &post.Excerpt, &post.Content,
		&post.CoverImageURL, &tags, &post.Status, &post.SEOTitle, &post.SEODescription,
		&post.CreatedAt, &post.UpdatedAt, &publishedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &post.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode blog post tags: %w", err)
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	return post, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("failed to encode tags: %w", err)
	}
	return string(raw), nil
}

// CreateBlogPost inserts a new blog post
func (r *ContentRepository) CreateBlogPost(post *models.BlogPost) error {
	tags, err := encodeTags(post.Tags)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO blog_posts (id, title, slug, excerpt, content, cover_image_url, tags,
			status, seo_title, seo_description, created_at, updated_at, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		post.ID, post.Title, post.Slug, post.Excerpt, post.Content, post.CoverImageURL,
		tags, post.Status, post.SEOTitle, post.SEODescription,
		post.CreatedAt, post.UpdatedAt, post.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to create blog post: %w", err)
	}
	return nil
}

// GetBlogPost retrieves a blog post by ID. Returns nil, nil when absent.
func (r *ContentRepository) GetBlogPost(id string) (*models.BlogPost, error) {
	query := "SELECT " + blogPostColumns + " FROM blog_posts WHERE id = ?"
	post, err := scanBlogPost(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blog post: %w", err)
	}
	return post, nil
}

// GetBlogPostBySlug retrieves a blog post by slug. Returns nil, nil when absent.
func (r *ContentRepository) GetBlogPostBySlug(slug string) (*models.BlogPost, error) {
	query := "SELECT " + blogPostColumns + " FROM blog_posts WHERE slug = ?"
	post, err := scanBlogPost(r.db.QueryRow(query, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blog post by slug: %w", err)
	}
	return post, nil
}

// ListBlogPosts returns blog posts newest first, optionally only published ones
func (r *ContentRepository) ListBlogPosts(publishedOnly bool) ([]models.BlogPost, error) {
	query := "SELECT " + blogPostColumns + " FROM blog_posts ORDER BY created_at DESC"
	var args []interface{}
	if publishedOnly {
		query = "SELECT " + blogPostColumns + " FROM blog_posts WHERE status = ? ORDER BY created_at DESC"
		args = append(args, models.StatusPublished)
	}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query blog posts: %w", err)
	}
	defer rows.Close()

	var posts []models.BlogPost
	for rows.Next() {
		post, err := scanBlogPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blog post: %w", err)
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// UpdateBlogPost replaces the editable fields of a blog post
func (r *ContentRepository) UpdateBlogPost(post *models.BlogPost) error {
	tags, err := encodeTags(post.Tags)
	if err != nil {
		return err
	}
	query := `
		UPDATE blog_posts
		SET title = ?, slug = ?, excerpt = ?, content = ?, cover_image_url = ?, tags = ?,
		    status = ?, seo_title = ?, seo_description = ?, updated_at = ?, published_at = ?
		WHERE id = ?
	`
	_, err = r.db.Exec(query,
		post.Title, post.Slug, post.Excerpt, post.Content, post.CoverImageURL, tags,
		post.Status, post.SEOTitle, post.SEODescription, post.UpdatedAt, post.PublishedAt,
		post.ID)
	if err != nil {
		return fmt.Errorf("failed to update blog post: %w", err)
	}
	return nil
}

// DeleteBlogPost removes a blog post
func (r *ContentRepository) DeleteBlogPost(id string) error {
	if _, err := r.db.Exec("DELETE FROM blog_posts WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete blog post: %w", err)
	}
	return nil
}

// --- Reviews ---

const reviewColumns = `id, title, slug, excerpt, content, rating, author,
	status, seo_title, seo_description, created_at, updated_at, published_at`

func scanReview(row interface{ Scan(...interface{}) error }) (*models.Review, error) {
	review := &models.Review{}
	var publishedAt sql.NullTime
	err := row.Scan(&review.ID, &review.Title, &review.Slug, &review.Excerpt, &review.Content,
		&review.Rating, &review.Author, &review.Status, &review.SEOTitle, &review.SEODescription,
		&review.CreatedAt, &review.UpdatedAt, &publishedAt)
	if err != nil {
		return nil, err
	}
	if publishedAt.Valid {
		review.PublishedAt = &publishedAt.Time
	}
	return review, nil
}

// CreateReview inserts a new review
func (r *ContentRepository) CreateReview(review *models.Review) error {
	query := `
		INSERT INTO reviews (id, title, slug, excerpt, content, rating, author,
			status, seo_title, seo_description, created_at, updated_at, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		review.ID, review.Title, review.Slug, review.Excerpt, review.Content,
		review.Rating, review.Author, review.Status, review.SEOTitle, review.SEODescription,
		review.CreatedAt, review.UpdatedAt, review.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// GetReview retrieves a review by ID. Returns nil, nil when absent.
func (r *ContentRepository) GetReview(id string) (*models.Review, error) {
	query := "SELECT " + reviewColumns + " FROM reviews WHERE id = ?"
	review, err := scanReview(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// GetReviewBySlug retrieves a review by slug. Returns nil, nil when absent.
func (r *ContentRepository) GetReviewBySlug(slug string) (*models.Review, error) {
	query := "SELECT " + reviewColumns + " FROM reviews WHERE slug = ?"
	review, err := scanReview(r.db.QueryRow(query, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get review by slug: %w", err)
	}
	return review, nil
}

// ListReviews returns reviews newest first, optionally only published ones
func (r *ContentRepository) ListReviews(publishedOnly bool) ([]models.Review, error) {
	query := "SELECT " + reviewColumns + " FROM reviews ORDER BY created_at DESC"
	var args []interface{}
	if publishedOnly {
		query = "SELECT " + reviewColumns + " FROM reviews WHERE status = ? ORDER BY created_at DESC"
		args = append(args, models.StatusPublished)
	}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}
	return reviews, rows.Err()
}

// UpdateReview replaces the editable fields of a review
func (r *ContentRepository) UpdateReview(review *models.Review) error {
	query := `
		UPDATE reviews
		SET title = ?, slug = ?, excerpt = ?, content = ?, rating = ?, author = ?,
		    status = ?, seo_title = ?, seo_description = ?, updated_at = ?, published_at = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query,
		review.Title, review.Slug, review.Excerpt, review.Content, review.Rating, review.Author,
		review.Status, review.SEOTitle, review.SEODescription, review.UpdatedAt, review.PublishedAt,
		review.ID)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	return nil
}

// DeleteReview removes a review
func (r *ContentRepository) DeleteReview(id string) error {
	if _, err := r.db.Exec("DELETE FROM reviews WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}
