package service

import (
	"testing"

	"socialmedia_api/internal/authz"
)

// testEnv wires real services over the in-memory store.
type testEnv struct {
	store     *memStore
	publisher *recordingPublisher
	unread    *memUnread

	follows       *FollowService
	feed          *FeedService
	posts         *PostService
	comments      *CommentService
	notifications *NotificationService
}

func newTestEnv(t *testing.T, policy NotifyPolicy) *testEnv {
	t.Helper()

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}

	store := newMemStore()
	pub := &recordingPublisher{}
	unread := newMemUnread()

	users := memUserRepo{store}
	follows := memFollowRepo{store}
	posts := memPostRepo{store}
	likes := memLikeRepo{store}
	comments := memCommentRepo{store}

	notifications := NewNotificationService(memNotificationRepo{store}, memTokenRepo{store}, enforcer, unread, pub)

	return &testEnv{
		store:         store,
		publisher:     pub,
		unread:        unread,
		follows:       NewFollowService(follows, users, store, pub),
		feed:          NewFeedService(posts, likes),
		posts:         NewPostService(posts, likes, comments, store, notifications, enforcer, pub, policy),
		comments:      NewCommentService(comments, posts, store, notifications, enforcer, pub, policy),
		notifications: notifications,
	}
}
