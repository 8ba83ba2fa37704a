package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/models"
)

const previewLength = 50

// NotificationRecorder is the subset of NotificationService used by domain services.
type NotificationRecorder interface {
	Record(ctx context.Context, input dto.NotificationInput) (dto.NotificationResponse, error)
}

// Notifier builds the domain notifications raised by messaging and social actions.
type Notifier struct {
	recorder NotificationRecorder
}

// NewNotifier wraps a recorder.
func NewNotifier(recorder NotificationRecorder) *Notifier {
	return &Notifier{recorder: recorder}
}

// NotifyNewMessage records a message notification for every participant except the sender.
func (n *Notifier) NotifyNewMessage(ctx context.Context, message models.Message, sender models.User, participants []models.ConversationParticipant) error {
	content := fmt.Sprintf("New message from %s: %s", sender.Username, truncatePreview(message.Content, previewLength))

	var errs []error
	for _, participant := range participants {
		if participant.UserID == message.SenderID {
			continue
		}
		_, err := n.recorder.Record(ctx, dto.NotificationInput{
			Kind:           models.NotificationMessage,
			UserID:         participant.UserID,
			FromUserID:     uintPtr(message.SenderID),
			ConversationID: uintPtr(message.ConversationID),
			MessageID:      uintPtr(message.ID),
			Content:        content,
		})
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NotifyNewConversation tells every participant except the creator about a new conversation.
func (n *Notifier) NotifyNewConversation(ctx context.Context, conversation models.Conversation, creatorID uint) error {
	content := conversationInvite(conversation)

	var errs []error
	for _, participant := range conversation.Participants {
		if participant.UserID == creatorID {
			continue
		}
		_, err := n.recorder.Record(ctx, dto.NotificationInput{
			Kind:           models.NotificationNewConversation,
			UserID:         participant.UserID,
			FromUserID:     uintPtr(creatorID),
			ConversationID: uintPtr(conversation.ID),
			Content:        content,
		})
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// NotifyAddedToConversation tells userID they were added by addedByID.
func (n *Notifier) NotifyAddedToConversation(ctx context.Context, conversation models.Conversation, userID, addedByID uint) error {
	_, err := n.recorder.Record(ctx, dto.NotificationInput{
		Kind:           models.NotificationAddedToConversation,
		UserID:         userID,
		FromUserID:     uintPtr(addedByID),
		ConversationID: uintPtr(conversation.ID),
		Content:        conversationInvite(conversation),
	})
	return err
}

// NotifyFriendRequest tells the addressee about a pending request.
func (n *Notifier) NotifyFriendRequest(ctx context.Context, request models.Friend, requester models.User) error {
	_, err := n.recorder.Record(ctx, dto.NotificationInput{
		Kind:            models.NotificationFriendRequest,
		UserID:          request.AddresseeID,
		FromUserID:      uintPtr(requester.ID),
		FriendRequestID: uintPtr(request.ID),
		Content:         fmt.Sprintf("%s sent you a friend request", requester.Username),
	})
	return err
}

// NotifyFriendAccepted tells the requester their request was accepted.
func (n *Notifier) NotifyFriendAccepted(ctx context.Context, request models.Friend, accepter models.User) error {
	_, err := n.recorder.Record(ctx, dto.NotificationInput{
		Kind:            models.NotificationFriendAccepted,
		UserID:          request.RequesterID,
		FromUserID:      uintPtr(accepter.ID),
		FriendRequestID: uintPtr(request.ID),
		Content:         fmt.Sprintf("%s accepted your friend request", accepter.Username),
	})
	return err
}

// NotifyPostLike tells the author their post was liked. Self-likes are ignored.
func (n *Notifier) NotifyPostLike(ctx context.Context, post models.Post, liker models.User) error {
	if post.AuthorID == liker.ID {
		return nil
	}
	_, err := n.recorder.Record(ctx, dto.NotificationInput{
		Kind:       models.NotificationPostLike,
		UserID:     post.AuthorID,
		FromUserID: uintPtr(liker.ID),
		PostID:     uintPtr(post.ID),
		Content:    fmt.Sprintf("%s liked your post", liker.Username),
	})
	return err
}

// NotifyPostComment tells the author about a comment. Self-comments are ignored.
func (n *Notifier) NotifyPostComment(ctx context.Context, post models.Post, comment models.Comment, commenter models.User) error {
	if post.AuthorID == commenter.ID {
		return nil
	}
	_, err := n.recorder.Record(ctx, dto.NotificationInput{
		Kind:       models.NotificationPostComment,
		UserID:     post.AuthorID,
		FromUserID: uintPtr(commenter.ID),
		PostID:     uintPtr(post.ID),
		CommentID:  uintPtr(comment.ID),
		Content:    fmt.Sprintf("%s commented: \"%s\"", commenter.Username, truncatePreview(comment.Content, previewLength)),
	})
	return err
}

func conversationInvite(conversation models.Conversation) string {
	target := "a conversation"
	if conversation.IsGroup {
		target = "a group"
	}
	if conversation.Title != nil && *conversation.Title != "" {
		return fmt.Sprintf("You were added to %s: %s", target, *conversation.Title)
	}
	return "You were added to " + target
}
