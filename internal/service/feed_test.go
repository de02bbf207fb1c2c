package service

import (
	"context"
	"errors"
	"testing"

	"socialmedia_api/internal/model"
)

func TestFeedService_GetFeed_FolloweesNewestFirst(t *testing.T) {
	// ARRANGE: viewer follows bob and carol but not dave.
	env := newTestEnv(t, NotifyPolicy{})
	viewer := env.store.addUser("viewer")
	bob := env.store.addUser("bob")
	carol := env.store.addUser("carol")
	dave := env.store.addUser("dave")
	env.store.addFollow(viewer, bob)
	env.store.addFollow(viewer, carol)

	p1 := env.store.addPost(bob, "bob 1")
	p2 := env.store.addPost(carol, "carol 1")
	env.store.addPost(dave, "dave 1")
	env.store.addPost(viewer, "my own")
	p3 := env.store.addPost(bob, "bob 2")

	// ACT
	feed, err := env.feed.GetFeed(context.Background(), viewer, nil, 0)

	// ASSERT
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}
	want := []int64{p3, p2, p1}
	if len(feed.Posts) != len(want) {
		t.Fatalf("feed has %d posts, want %d", len(feed.Posts), len(want))
	}
	for i, id := range want {
		if feed.Posts[i].ID != id {
			t.Errorf("feed[%d] = post %d, want %d", i, feed.Posts[i].ID, id)
		}
		if feed.Posts[i].AuthorID == viewer || feed.Posts[i].AuthorID == dave {
			t.Errorf("feed[%d] by %d should not be in the feed", i, feed.Posts[i].AuthorID)
		}
	}
	if feed.HasMore {
		t.Error("HasMore = true, want false")
	}
}

func TestFeedService_GetFeed_FollowsNobody(t *testing.T) {
	env := newTestEnv(t, NotifyPolicy{})
	viewer := env.store.addUser("viewer")
	other := env.store.addUser("other")
	env.store.addPost(other, "unseen")

	feed, err := env.feed.GetFeed(context.Background(), viewer, nil, 10)

	if err != nil {
		t.Fatalf("GetFeed() error = %v, want nil", err)
	}
	if feed.Posts == nil || len(feed.Posts) != 0 {
		t.Errorf("posts = %v, want empty non-nil slice", feed.Posts)
	}
}

func TestFeedService_GetFeed_UnfollowRemovesPosts(t *testing.T) {
	env := newTestEnv(t, NotifyPolicy{})
	viewer := env.store.addUser("viewer")
	bob := env.store.addUser("bob")
	env.store.addPost(bob, "bob 1")
	ctx := context.Background()

	if _, err := env.follows.Follow(ctx, viewer, bob); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	before, _ := env.feed.GetFeed(ctx, viewer, nil, 10)
	if len(before.Posts) != 1 {
		t.Fatalf("feed before unfollow = %d posts, want 1", len(before.Posts))
	}

	if _, err := env.follows.Unfollow(ctx, viewer, bob); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}
	after, _ := env.feed.GetFeed(ctx, viewer, nil, 10)
	if len(after.Posts) != 0 {
		t.Errorf("feed after unfollow = %d posts, want 0", len(after.Posts))
	}
}

func TestFeedService_GetFeed_Paginates(t *testing.T) {
	env := newTestEnv(t, NotifyPolicy{})
	viewer := env.store.addUser("viewer")
	bob := env.store.addUser("bob")
	env.store.addFollow(viewer, bob)
	for i := 0; i < 5; i++ {
		env.store.addPost(bob, "post")
	}
	ctx := context.Background()

	seen := map[int64]bool{}
	var cursor *string
	pages := 0
	for {
		page, err := env.feed.GetFeed(ctx, viewer, cursor, 2)
		if err != nil {
			t.Fatalf("GetFeed() error = %v", err)
		}
		pages++
		for _, p := range page.Posts {
			if seen[p.ID] {
				t.Errorf("post %d returned twice", p.ID)
			}
			seen[p.ID] = true
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	if len(seen) != 5 || pages != 3 {
		t.Errorf("saw %d posts over %d pages, want 5 over 3", len(seen), pages)
	}
}

func TestFeedService_GetFeed_MarksLikedPosts(t *testing.T) {
	env := newTestEnv(t, NotifyPolicy{})
	viewer := env.store.addUser("viewer")
	bob := env.store.addUser("bob")
	env.store.addFollow(viewer, bob)
	liked := env.store.addPost(bob, "liked")
	env.store.addPost(bob, "not liked")
	ctx := context.Background()
	if _, err := env.posts.Like(ctx, viewer, liked); err != nil {
		t.Fatalf("Like() error = %v", err)
	}

	feed, err := env.feed.GetFeed(ctx, viewer, nil, 10)
	if err != nil {
		t.Fatalf("GetFeed() error = %v", err)
	}

	for _, p := range feed.Posts {
		if got, want := p.IsLiked, p.ID == liked; got != want {
			t.Errorf("post %d IsLiked = %v, want %v", p.ID, got, want)
		}
	}
}

func TestFeedService_GetFeed_BadCursor(t *testing.T) {
	env := newTestEnv(t, NotifyPolicy{})
	viewer := env.store.addUser("viewer")
	bad := "garbage"

	_, err := env.feed.GetFeed(context.Background(), viewer, &bad, 10)

	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("error = %v, want kind %v", err, model.ErrValidation)
	}
}
