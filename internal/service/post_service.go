package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/models"
	"github.com/noah-isme/konekt-api/internal/repository"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// PostService publishes posts and handles likes and comments.
type PostService interface {
	Create(ctx context.Context, authorID uint, payload dto.PostCreateRequest) (dto.PostResponse, error)
	List(ctx context.Context, query dto.PostQuery) (dto.PostListResponse, error)
	Like(ctx context.Context, userID, postID uint) (dto.LikeResponse, error)
	Unlike(ctx context.Context, userID, postID uint) (dto.LikeResponse, error)
	Comment(ctx context.Context, userID, postID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error)
	ListComments(ctx context.Context, postID uint) ([]dto.CommentResponse, error)
}

type postService struct {
	posts     repository.PostRepository
	users     repository.UserRepository
	notifier  *Notifier
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewPostService constructs the post service.
func NewPostService(posts repository.PostRepository, users repository.UserRepository, notifier *Notifier, validate *validator.Validate, logger zerolog.Logger) PostService {
	return &postService{
		posts:     posts,
		users:     users,
		notifier:  notifier,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "post_service").Logger(),
	}
}

func (s *postService) Create(ctx context.Context, authorID uint, payload dto.PostCreateRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.PostResponse{}, validationError(err)
	}
	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.PostResponse{}, apperror.Validation("Post content is required")
	}

	post := models.Post{AuthorID: authorID, Content: content, ImageURL: strings.TrimSpace(payload.ImageURL)}
	if err := s.posts.Create(ctx, &post); err != nil {
		return dto.PostResponse{}, storeError(err, "Post not found")
	}
	stored, err := s.posts.FindByID(ctx, post.ID)
	if err != nil {
		return dto.PostResponse{}, storeError(err, "Post not found")
	}
	return dto.NewPostResponse(stored), nil
}

func (s *postService) List(ctx context.Context, query dto.PostQuery) (dto.PostListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.PostListResponse{}, validationError(err)
	}
	filter := repository.PageFilter{Page: query.Page, PageSize: query.PageSize}.Normalize()

	posts, total, err := s.posts.List(ctx, filter)
	if err != nil {
		return dto.PostListResponse{}, storeError(err, "Posts not found")
	}
	items := make([]dto.PostResponse, 0, len(posts))
	for _, post := range posts {
		items = append(items, dto.NewPostResponse(post))
	}
	return dto.PostListResponse{Items: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

func (s *postService) Like(ctx context.Context, userID, postID uint) (dto.LikeResponse, error) {
	post, err := s.findPost(ctx, postID)
	if err != nil {
		return dto.LikeResponse{}, err
	}

	like := models.Like{PostID: postID, UserID: userID}
	created := true
	if err := s.posts.CreateLike(ctx, &like); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.LikeResponse{}, storeError(err, "Post not found")
		}
		created = false
	}

	if created && s.notifier != nil {
		liker, err := s.users.FindByID(ctx, userID)
		if err == nil {
			err = s.notifier.NotifyPostLike(ctx, post, liker)
		}
		if err != nil {
			s.logger.Warn().Err(err).Uint("post_id", postID).Msg("failed to record like notification")
		}
	}

	return s.likeState(ctx, postID, true)
}

func (s *postService) Unlike(ctx context.Context, userID, postID uint) (dto.LikeResponse, error) {
	if _, err := s.findPost(ctx, postID); err != nil {
		return dto.LikeResponse{}, err
	}
	if _, err := s.posts.DeleteLike(ctx, postID, userID); err != nil {
		return dto.LikeResponse{}, storeError(err, "Post not found")
	}
	return s.likeState(ctx, postID, false)
}

func (s *postService) likeState(ctx context.Context, postID uint, liked bool) (dto.LikeResponse, error) {
	count, err := s.posts.CountLikes(ctx, postID)
	if err != nil {
		return dto.LikeResponse{}, storeError(err, "Post not found")
	}
	return dto.LikeResponse{PostID: postID, Liked: liked, LikeCount: count}, nil
}

func (s *postService) Comment(ctx context.Context, userID, postID uint, payload dto.CommentCreateRequest) (dto.CommentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CommentResponse{}, validationError(err)
	}
	content := strings.TrimSpace(s.sanitizer.Sanitize(payload.Content))
	if content == "" {
		return dto.CommentResponse{}, apperror.Validation("Comment content is required")
	}

	post, err := s.findPost(ctx, postID)
	if err != nil {
		return dto.CommentResponse{}, err
	}
	commenter, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return dto.CommentResponse{}, storeError(err, "User not found")
	}

	comment := models.Comment{PostID: postID, AuthorID: userID, Content: content}
	if err := s.posts.CreateComment(ctx, &comment); err != nil {
		return dto.CommentResponse{}, storeError(err, "Post not found")
	}
	comment.Author = &commenter

	if s.notifier != nil {
		if err := s.notifier.NotifyPostComment(ctx, post, comment, commenter); err != nil {
			s.logger.Warn().Err(err).Uint("post_id", postID).Msg("failed to record comment notification")
		}
	}

	return dto.NewCommentResponse(comment), nil
}

func (s *postService) ListComments(ctx context.Context, postID uint) ([]dto.CommentResponse, error) {
	if _, err := s.findPost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := s.posts.ListComments(ctx, postID)
	if err != nil {
		return nil, storeError(err, "Post not found")
	}
	out := make([]dto.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, dto.NewCommentResponse(comment))
	}
	return out, nil
}

func (s *postService) findPost(ctx context.Context, postID uint) (models.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Post{}, apperror.NotFound("Post with id (%d) not found", postID)
	}
	if err != nil {
		return models.Post{}, storeError(err, "Post not found")
	}
	return post, nil
}
