package article

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/disintegration/imaging"

	"linuxos/internal/domain/attachment"
	"linuxos/internal/domain/hitcount"
	"linuxos/internal/pkg/metrics"
	"linuxos/internal/pkg/storage"
	"linuxos/internal/pkg/validator"
)

type Service struct {
	repo        *Repository
	hits        *hitcount.Repository
	attachments *attachment.Service
	files       storage.Storage
	// contentType identifies articles as attachment and hit counter owners.
	contentType int64
	now         func() time.Time
}

func NewService(repo *Repository, hits *hitcount.Repository, attachments *attachment.Service, files storage.Storage, contentType int64) *Service {
	return &Service{
		repo:        repo,
		hits:        hits,
		attachments: attachments,
		files:       files,
		contentType: contentType,
		now:         time.Now,
	}
}

func (s *Service) ContentType() int64 { return s.contentType }

func (s *Service) ListPublished(ctx context.Context, f ListFilter) ([]Article, int64, error) {
	return s.repo.ListPublished(ctx, s.now(), f)
}

func (s *Service) ListByCategory(ctx context.Context, slug string, f ListFilter) (*Category, []Article, int64, error) {
	category, err := s.repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, nil, 0, err
	}
	f.CategoryID = category.ID
	articles, total, err := s.repo.ListPublished(ctx, s.now(), f)
	if err != nil {
		return nil, nil, 0, err
	}
	return category, articles, total, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*Article, error) {
	return s.repo.GetPublishedBySlug(ctx, s.now(), slug)
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	if errs := validator.Validate(&req); errs != nil {
		return nil, FieldErrors(errs)
	}
	c := &Category{Name: req.Name, Slug: req.Slug, Icon: req.Icon}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrSlugTaken) {
			return nil, FieldErrors{"slug": "already taken"}
		}
		return nil, err
	}
	return c, nil
}

// Hit counts a view of a.
func (s *Service) Hit(ctx context.Context, a *Article) error {
	if err := s.hits.Hit(ctx, s.contentType, a.ID); err != nil {
		return err
	}
	metrics.ArticleHits.Inc()
	return nil
}

func (s *Service) Hits(ctx context.Context, a *Article) (int64, error) {
	return s.hits.Get(ctx, s.contentType, a.ID)
}

func (s *Service) Attachments(ctx context.Context, a *Article) ([]attachment.Attachment, error) {
	return s.attachments.ListAttachments(ctx, s.owner(a))
}

func (s *Service) owner(a *Article) attachment.Owner {
	return attachment.Owner{ContentTypeID: s.contentType, ObjectID: a.ID}
}

// Validate checks the article fields. The attachment form is validated separately.
func (s *Service) Validate(ctx context.Context, req *CreateArticleRequest) FieldErrors {
	errs := FieldErrors(validator.Validate(req))
	if errs == nil {
		errs = FieldErrors{}
	}
	if req.Slug != "" && numericSlug(req.Slug) {
		errs["slug"] = "numeric slug values are not allowed"
	}
	if req.CategoryID > 0 {
		if _, err := s.repo.GetCategory(ctx, req.CategoryID); errors.Is(err, ErrCategoryNotFound) {
			errs["category_id"] = "unknown category"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Create saves a validated article with its optional image and then moves the
// uploads of the attachment form to it. A taken slug is reported as a field error.
func (s *Service) Create(ctx context.Context, req *CreateArticleRequest, authorID *int64, image attachment.Upload, form *attachment.Form) (*Article, []attachment.Attachment, error) {
	if errs := s.Validate(ctx, req); errs != nil {
		return nil, nil, errs
	}
	if form != nil && !form.IsValid() {
		return nil, nil, FieldErrors(form.Errors())
	}

	a := &Article{
		Title:       req.Title,
		Slug:        req.Slug,
		CategoryID:  req.CategoryID,
		Perex:       req.Perex,
		Annotation:  req.Annotation,
		Content:     req.Content,
		AuthorID:    authorID,
		AuthorsName: req.AuthorsName,
		PubTime:     req.PubTime,
		Published:   req.Published,
		Top:         req.Top,
	}

	var img storedImage
	if image != nil {
		stored, err := s.storeImage(ctx, image)
		if err != nil {
			return nil, nil, err
		}
		img = stored
		a.Image = img.Image
		a.ImageThumbnail = img.Thumbnail
	}

	if err := s.repo.Create(ctx, a); err != nil {
		img.remove(s.files)
		if errors.Is(err, ErrSlugTaken) {
			return nil, nil, FieldErrors{"slug": "already taken"}
		}
		return nil, nil, fmt.Errorf("create article: %w", err)
	}

	if form == nil {
		return a, nil, nil
	}
	moved, err := form.MoveAttachments(ctx, s.owner(a))
	if err != nil {
		log.Printf("article_attachments_move_failed article_id=%d error=%v", a.ID, err)
		return a, nil, err
	}
	return a, moved, nil
}

func (s *Service) storeImage(ctx context.Context, up attachment.Upload) (storedImage, error) {
	rc, err := up.Open()
	if err != nil {
		return storedImage{}, err
	}
	defer rc.Close()

	src, err := imaging.Decode(rc, imaging.AutoOrientation(true))
	if err != nil {
		return storedImage{}, FieldErrors{"image": ErrInvalidImage.Error()}
	}
	img, err := saveImage(ctx, s.files, up.Filename(), src)
	if errors.Is(err, ErrInvalidImage) {
		return storedImage{}, FieldErrors{"image": err.Error()}
	}
	return img, err
}

// Response builds the public representation of an article.
func (s *Service) Response(ctx context.Context, a *Article) ArticleResponse {
	resp := ArticleResponse{Article: *a, DisplayContent: a.DisplayContent()}
	if a.Image != "" {
		resp.ImageURL = s.files.URL(a.Image)
	}
	if a.ImageThumbnail != "" {
		resp.ThumbnailURL = s.files.URL(a.ImageThumbnail)
	}
	if hits, err := s.Hits(ctx, a); err == nil {
		resp.Hits = hits
	}
	return resp
}
