package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"choreking/internal/models"
	"choreking/internal/repository"
	"choreking/internal/validation"
)

var (
	ErrContentNotFound = errors.New("content not found")
	ErrSlugInUse       = errors.New("slug already in use")
)

// ContentService manages the marketing content the admin back-office edits:
// good causes, blog posts and reviews.
type ContentService struct {
	contentRepo *repository.ContentRepository
}

// NewContentService creates a new content service
func NewContentService(contentRepo *repository.ContentRepository) *ContentService {
	return &ContentService{contentRepo: contentRepo}
}

// --- Good causes ---

// GoodCauseInput carries the editable fields of a good cause
type GoodCauseInput struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	LogoURL     *string
}

// CreateGoodCause adds a charitable campaign
func (s *ContentService) CreateGoodCause(input GoodCauseInput) (*models.GoodCause, error) {
	if err := validation.ValidateName(input.Name); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	cause := &models.GoodCause{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		LogoURL:     input.LogoURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.contentRepo.CreateGoodCause(cause); err != nil {
		return nil, err
	}
	return cause, nil
}

// ListGoodCauses returns all good causes
func (s *ContentService) ListGoodCauses() ([]models.GoodCause, error) {
	return s.contentRepo.ListGoodCauses()
}

// UpdateGoodCause replaces a good cause's editable fields
func (s *ContentService) UpdateGoodCause(id string, input GoodCauseInput) (*models.GoodCause, error) {
	if err := validation.ValidateName(input.Name); err != nil {
		return nil, err
	}
	cause, err := s.contentRepo.GetGoodCause(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load good cause: %w", err)
	}
	if cause == nil {
		return nil, ErrContentNotFound
	}

	cause.Name = input.Name
	cause.Description = input.Description
	cause.StartDate = input.StartDate
	cause.EndDate = input.EndDate
	cause.LogoURL = input.LogoURL
	cause.UpdatedAt = time.Now().UTC()
	if err := s.contentRepo.UpdateGoodCause(cause); err != nil {
		return nil, err
	}
	return cause, nil
}

// DeleteGoodCause removes a good cause
func (s *ContentService) DeleteGoodCause(id string) error {
	cause, err := s.contentRepo.GetGoodCause(id)
	if err != nil {
		return fmt.Errorf("failed to load good cause: %w", err)
	}
	if cause == nil {
		return ErrContentNotFound
	}
	return s.contentRepo.DeleteGoodCause(id)
}

// --- Blog posts ---

// BlogPostInput carries the editable fields of a blog post
type BlogPostInput struct {
	Title          string
	Slug           string
	Excerpt        string
	Content        string
	CoverImageURL  *string
	Tags           []string
	Status         string
	SEOTitle       *string
	SEODescription *string
}

func (s *ContentService) validateBlogPost(input BlogPostInput) error {
	if err := validation.ValidateName(input.Title); err != nil {
		return err
	}
	if err := validation.ValidateSlug(input.Slug); err != nil {
		return err
	}
	return validation.ValidateContentStatus(input.Status)
}

// CreateBlogPost adds a blog post. PublishedAt is stamped when the post is
// created already published.
func (s *ContentService) CreateBlogPost(input BlogPostInput) (*models.BlogPost, error) {
	if err := s.validateBlogPost(input); err != nil {
		return nil, err
	}
	existing, err := s.contentRepo.GetBlogPostBySlug(input.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil {
		return nil, ErrSlugInUse
	}

	now := time.Now().UTC()
	post := &models.BlogPost{
		ID:             uuid.New().String(),
		Title:          input.Title,
		Slug:           input.Slug,
		Excerpt:        input.Excerpt,
		Content:        input.Content,
		CoverImageURL:  input.CoverImageURL,
		Tags:           input.Tags,
		Status:         input.Status,
		SEOTitle:       input.SEOTitle,
		SEODescription: input.SEODescription,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if post.Status == models.StatusPublished {
		post.PublishedAt = &now
	}
	if err := s.contentRepo.CreateBlogPost(post); err != nil {
		return nil, err
	}
	return post, nil
}

// ListBlogPosts returns blog posts; publishedOnly hides drafts
func (s *ContentService) ListBlogPosts(publishedOnly bool) ([]models.BlogPost, error) {
	return s.contentRepo.ListBlogPosts(publishedOnly)
}

// GetBlogPostBySlug returns a single post for the public site
func (s *ContentService) GetBlogPostBySlug(slug string) (*models.BlogPost, error) {
	post, err := s.contentRepo.GetBlogPostBySlug(slug)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrContentNotFound
	}
	return post, nil
}

// UpdateBlogPost replaces a post's editable fields. The first transition to
// published stamps PublishedAt; it is preserved afterwards.
func (s *ContentService) UpdateBlogPost(id string, input BlogPostInput) (*models.BlogPost, error) {
	if err := s.validateBlogPost(input); err != nil {
		return nil, err
	}
	post, err := s.contentRepo.GetBlogPost(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load blog post: %w", err)
	}
	if post == nil {
		return nil, ErrContentNotFound
	}
	if input.Slug != post.Slug {
		existing, err := s.contentRepo.GetBlogPostBySlug(input.Slug)
		if err != nil {
			return nil, fmt.Errorf("failed to check slug: %w", err)
		}
		if existing != nil {
			return nil, ErrSlugInUse
		}
	}

	now := time.Now().UTC()
	post.Title = input.Title
	post.Slug = input.Slug
	post.Excerpt = input.Excerpt
	post.Content = input.Content
	post.CoverImageURL = input.CoverImageURL
	post.Tags = input.Tags
	post.SEOTitle = input.SEOTitle
	post.SEODescription = input.SEODescription
	post.UpdatedAt = now
	if input.Status == models.StatusPublished && post.PublishedAt == nil {
		post.PublishedAt = &now
	}
	post.Status = input.Status

	if err := s.contentRepo.UpdateBlogPost(post); err != nil {
		return nil, err
	}
	return post, nil
}

// DeleteBlogPost removes a blog post
func (s *ContentService) DeleteBlogPost(id string) error {
	post, err := s.contentRepo.GetBlogPost(id)
	if err != nil {
		return fmt.Errorf("failed to load blog post: %w", err)
	}
	if post == nil {
		return ErrContentNotFound
	}
	return s.contentRepo.DeleteBlogPost(id)
}

// --- Reviews ---

// ReviewInput carries the editable fields of a review
type ReviewInput struct {
	Title          string
	Slug           string
	Excerpt        string
	Content        string
	Rating         int
	Author         string
	Status         string
	SEOTitle       *string
	SEODescription *string
}

func (s *ContentService) validateReview(input ReviewInput) error {
	if err := validation.ValidateName(input.Title); err != nil {
		return err
	}
	if err := validation.ValidateSlug(input.Slug); err != nil {
		return err
	}
	if err := validation.ValidateRating(input.Rating); err != nil {
		return err
	}
	return validation.ValidateContentStatus(input.Status)
}

// CreateReview adds a customer review
func (s *ContentService) CreateReview(input ReviewInput) (*models.Review, error) {
	if err := s.validateReview(input); err != nil {
		return nil, err
	}
	existing, err := s.contentRepo.GetReviewBySlug(input.Slug)
	if err != nil {
		return nil, fmt.Errorf("failed to check slug: %w", err)
	}
	if existing != nil {
		return nil, ErrSlugInUse
	}

	now := time.Now().UTC()
	review := &models.Review{
		ID:             uuid.New().String(),
		Title:          input.Title,
		Slug:           input.Slug,
		Excerpt:        input.Excerpt,
		Content:        input.Content,
		Rating:         input.Rating,
		Author:         input.Author,
		Status:         input.Status,
		SEOTitle:       input.SEOTitle,
		SEODescription: input.SEODescription,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if review.Status == models.StatusPublished {
		review.PublishedAt = &now
	}
	if err := s.contentRepo.CreateReview(review); err != nil {
		return nil, err
	}
	return review, nil
}

// ListReviews returns reviews; publishedOnly hides drafts
func (s *ContentService) ListReviews(publishedOnly bool) ([]models.Review, error) {
	return s.contentRepo.ListReviews(publishedOnly)
}

// UpdateReview replaces a review's editable fields
func (s *ContentService) UpdateReview(id string, input ReviewInput) (*models.Review, error) {
	if err := s.validateReview(input); err != nil {
		return nil, err
	}
	review, err := s.contentRepo.GetReview(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load review: %w", err)
	}
	if review == nil {
		return nil, ErrContentNotFound
	}
	if input.Slug != review.Slug {
		existing, err := s.contentRepo.GetReviewBySlug(input.Slug)
		if err != nil {
			return nil, fmt.Errorf("failed to check slug: %w", err)
		}
		if existing != nil {
			return nil, ErrSlugInUse
		}
	}

	now := time.Now().UTC()
	review.Title = input.Title
	review.Slug = input.Slug
	review.Excerpt = input.Excerpt
	review.Content = input.Content
	review.Rating = input.Rating
	review.Author = input.Author
	review.SEOTitle = input.SEOTitle
	review.SEODescription = input.SEODescription
	review.UpdatedAt = now
	if input.Status == models.StatusPublished && review.PublishedAt == nil {
		review.PublishedAt = &now
	}
	review.Status = input.Status

	if err := s.contentRepo.UpdateReview(review); err != nil {
		return nil, err
	}
	return review, nil
}

// DeleteReview removes a review
func (s *ContentService) DeleteReview(id string) error {
	review, err := s.contentRepo.GetReview(id)
	if err != nil {
		return fmt.Errorf("failed to load review: %w", err)
	}
	if review == nil {
		return ErrContentNotFound
	}
	return s.contentRepo.DeleteReview(id)
}
