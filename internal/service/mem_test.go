package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"socialmedia_api/internal/cache"
	"socialmedia_api/internal/model"
	"socialmedia_api/internal/queue"
)

// =============================================================================
// IN-MEMORY STORE
// =============================================================================
//
// memStore backs every repository fake with the same rules the schema
// enforces: unique (user, post) likes, a primary key on follow edges, no
// self-follow, and all-or-nothing transactions.

type edge [2]int64

type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	nextID        int64
	baseTime      time.Time
	users         map[int64]*model.User
	follows       map[edge]time.Time
	posts         map[int64]*model.Post
	likes         map[edge]time.Time
	comments      map[int64]*model.Comment
	notifications []*model.Notification
	tokens        map[string]model.DeviceToken

	// notifyErr, when set, fails every notification insert.
	notifyErr error
}

func newMemStore() *memStore {
	return &memStore{
		baseTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    map[int64]*model.User{},
		follows:  map[edge]time.Time{},
		posts:    map[int64]*model.Post{},
		likes:    map[edge]time.Time{},
		comments: map[int64]*model.Comment{},
		tokens:   map[string]model.DeviceToken{},
	}
}

// tick returns a strictly increasing id and timestamp. Caller holds mu.
func (s *memStore) tick() (int64, time.Time) {
	s.nextID++
	return s.nextID, s.baseTime.Add(time.Duration(s.nextID) * time.Second)
}

func (s *memStore) addUser(username string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, now := s.tick()
	s.users[id] = &model.User{ID: id, Username: username, CreatedAt: now, UpdatedAt: now}
	return id
}

func (s *memStore) addPost(authorID int64, title string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, now := s.tick()
	s.posts[id] = &model.Post{ID: id, AuthorID: authorID, Title: title, Content: title, CreatedAt: now, UpdatedAt: now}
	return id
}

func (s *memStore) addFollow(follower, followee int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, now := s.tick()
	s.follows[edge{follower, followee}] = now
}

func (s *memStore) likeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.likes)
}

func (s *memStore) notificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

func (s *memStore) followCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.follows)
}

type memSnapshot struct {
	follows       map[edge]time.Time
	likes         map[edge]time.Time
	comments      map[int64]*model.Comment
	notifications []*model.Notification
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		follows:       make(map[edge]time.Time, len(s.follows)),
		likes:         make(map[edge]time.Time, len(s.likes)),
		comments:      make(map[int64]*model.Comment, len(s.comments)),
		notifications: append([]*model.Notification(nil), s.notifications...),
	}
	for k, v := range s.follows {
		snap.follows[k] = v
	}
	for k, v := range s.likes {
		snap.likes[k] = v
	}
	for k, v := range s.comments {
		snap.comments[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.follows = snap.follows
	s.likes = snap.likes
	s.comments = snap.comments
	s.notifications = snap.notifications
}

// WithTx serializes transactions and restores the pre-transaction state
// when fn fails.
func (s *memStore) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *memStore) summary(id int64) *model.UserSummary {
	u, ok := s.users[id]
	if !ok {
		return &model.UserSummary{ID: id}
	}
	return &model.UserSummary{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL}
}

// =============================================================================
// PAGINATION
// =============================================================================

func memCursor(t time.Time, id int64) string {
	return fmt.Sprintf("%d:%d", id, t.UnixMicro())
}

func parseMemCursor(c string) (time.Time, int64, error) {
	var id, micros int64
	if _, err := fmt.Sscanf(c, "%d:%d", &id, &micros); err != nil {
		return time.Time{}, 0, model.NewValidationError("invalid cursor format")
	}
	return time.UnixMicro(micros).UTC(), id, nil
}

// pageDesc orders keys newest first and applies keyset pagination.
type keyed struct {
	at time.Time
	id int64
}

func pageDesc(keys []keyed, cursor *string, limit int) ([]keyed, *string, error) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].at.Equal(keys[j].at) {
			return keys[i].id > keys[j].id
		}
		return keys[i].at.After(keys[j].at)
	})

	if cursor != nil {
		at, id, err := parseMemCursor(*cursor)
		if err != nil {
			return nil, nil, err
		}
		start := len(keys)
		for i, k := range keys {
			if k.at.Before(at) || (k.at.Equal(at) && k.id < id) {
				start = i
				break
			}
		}
		keys = keys[start:]
	}

	var next *string
	if len(keys) > limit {
		keys = keys[:limit]
		last := keys[len(keys)-1]
		c := memCursor(last.at, last.id)
		next = &c
	}
	return keys, next, nil
}

// =============================================================================
// REPOSITORY FAKES
// =============================================================================

type memUserRepo struct{ s *memStore }

func (r memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return model.ErrUsernameExists
		}
	}
	user.ID, user.CreatedAt = r.s.tick()
	user.UpdatedAt = user.CreatedAt
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

func (r memUserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r memUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r memUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

func (r memUserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.users[id]
	return ok, nil
}

func (r memUserRepo) GetProfile(ctx context.Context, id int64) (*model.UserProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	p := &model.UserProfile{User: *u}
	for e := range r.s.follows {
		if e[1] == id {
			p.FollowerCount++
		}
		if e[0] == id {
			p.FollowingCount++
		}
	}
	for _, post := range r.s.posts {
		if post.AuthorID == id {
			p.PostCount++
		}
	}
	return p, nil
}

func (r memUserRepo) UpdateProfile(ctx context.Context, id int64, req model.UpdateProfileRequest) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	if req.Bio != nil {
		u.Bio = *req.Bio
	}
	if req.AvatarURL != nil {
		u.AvatarURL = req.AvatarURL
	}
	if req.AvatarKey != nil {
		u.AvatarKey = req.AvatarKey
	}
	cp := *u
	return &cp, nil
}

func (r memUserRepo) Search(ctx context.Context, query string, limit int) ([]model.UserSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	users := []model.UserSummary{}
	for id, u := range r.s.users {
		if strings.HasPrefix(strings.ToLower(u.Username), strings.ToLower(query)) {
			users = append(users, *r.s.summary(id))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

type memFollowRepo struct{ s *memStore }

func (r memFollowRepo) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if followerID == followeeID {
		return false, model.ErrCannotFollowSelf
	}
	if _, ok := r.s.users[followeeID]; !ok {
		return false, model.ErrUserNotFound
	}
	if _, ok := r.s.follows[edge{followerID, followeeID}]; ok {
		return false, nil
	}
	_, now := r.s.tick()
	r.s.follows[edge{followerID, followeeID}] = now
	return true, nil
}

func (r memFollowRepo) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.follows[edge{followerID, followeeID}]; !ok {
		return false, nil
	}
	delete(r.s.follows, edge{followerID, followeeID})
	return true, nil
}

func (r memFollowRepo) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.follows[edge{followerID, followeeID}]
	return ok, nil
}

func (r memFollowRepo) list(userID int64, side int, cursor *string, limit int) ([]model.FollowEdgeUser, *string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var keys []keyed
	for e, at := range r.s.follows {
		if e[side] == userID {
			keys = append(keys, keyed{at: at, id: e[1-side]})
		}
	}
	page, next, err := pageDesc(keys, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	users := make([]model.FollowEdgeUser, 0, len(page))
	for _, k := range page {
		users = append(users, model.FollowEdgeUser{UserSummary: *r.s.summary(k.id), CreatedAt: k.at})
	}
	return users, next, nil
}

func (r memFollowRepo) GetFollowers(ctx context.Context, userID int64, cursor *string, limit int) ([]model.FollowEdgeUser, *string, error) {
	return r.list(userID, 1, cursor, limit)
}

func (r memFollowRepo) GetFollowing(ctx context.Context, userID int64, cursor *string, limit int) ([]model.FollowEdgeUser, *string, error) {
	return r.list(userID, 0, cursor, limit)
}

func (r memFollowRepo) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make(map[int64]bool, len(followeeIDs))
	for _, id := range followeeIDs {
		_, result[id] = r.s.follows[edge{followerID, id}]
	}
	return result, nil
}

func (r memFollowRepo) CountFollowers(ctx context.Context, userID int64) (int, error) {
	users, _, _ := r.list(userID, 1, nil, 1<<30)
	return len(users), nil
}

func (r memFollowRepo) CountFollowing(ctx context.Context, userID int64) (int, error) {
	users, _, _ := r.list(userID, 0, nil, 1<<30)
	return len(users), nil
}

type memPostRepo struct{ s *memStore }

// hydrate fills joined fields. Caller holds mu.
func (r memPostRepo) hydrate(p *model.Post) model.Post {
	out := *p
	out.Author = r.s.summary(p.AuthorID)
	out.LikeCount, out.CommentCount = 0, 0
	for e := range r.s.likes {
		if e[1] == p.ID {
			out.LikeCount++
		}
	}
	for _, c := range r.s.comments {
		if c.PostID == p.ID {
			out.CommentCount++
		}
	}
	return out
}

func (r memPostRepo) Create(ctx context.Context, authorID int64, title, content string) (*model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[authorID]; !ok {
		return nil, model.ErrUserNotFound
	}
	id, now := r.s.tick()
	p := &model.Post{ID: id, AuthorID: authorID, Title: title, Content: content, CreatedAt: now, UpdatedAt: now}
	r.s.posts[id] = p
	cp := *p
	return &cp, nil
}

func (r memPostRepo) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok {
		return nil, model.ErrPostNotFound
	}
	out := r.hydrate(p)
	return &out, nil
}

func (r memPostRepo) Update(ctx context.Context, postID int64, req model.UpdatePostRequest) (*model.Post, error) {
	r.s.mu.Lock()
	p, ok := r.s.posts[postID]
	if !ok {
		r.s.mu.Unlock()
		return nil, model.ErrPostNotFound
	}
	if req.Title != nil {
		p.Title = *req.Title
	}
	if req.Content != nil {
		p.Content = *req.Content
	}
	r.s.mu.Unlock()
	return r.GetByID(ctx, postID)
}

func (r memPostRepo) Delete(ctx context.Context, postID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[postID]; !ok {
		return model.ErrPostNotFound
	}
	delete(r.s.posts, postID)
	for e := range r.s.likes {
		if e[1] == postID {
			delete(r.s.likes, e)
		}
	}
	for id, c := range r.s.comments {
		if c.PostID == postID {
			delete(r.s.comments, id)
		}
	}
	return nil
}

func (r memPostRepo) pagePosts(match func(p *model.Post) bool, cursor *string, limit int) ([]model.Post, *string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var keys []keyed
	for _, p := range r.s.posts {
		if match(p) {
			keys = append(keys, keyed{at: p.CreatedAt, id: p.ID})
		}
	}
	page, next, err := pageDesc(keys, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	posts := make([]model.Post, 0, len(page))
	for _, k := range page {
		posts = append(posts, r.hydrate(r.s.posts[k.id]))
	}
	return posts, next, nil
}

func (r memPostRepo) GetFeed(ctx context.Context, viewerID int64, cursor *string, limit int) ([]model.Post, *string, error) {
	return r.pagePosts(func(p *model.Post) bool {
		_, follows := r.s.follows[edge{viewerID, p.AuthorID}]
		return follows && p.AuthorID != viewerID
	}, cursor, limit)
}

func (r memPostRepo) List(ctx context.Context, filter model.PostFilter, cursor *string, limit int) ([]model.Post, *string, error) {
	needle := strings.ToLower(filter.Search)
	return r.pagePosts(func(p *model.Post) bool {
		if filter.Title != "" && p.Title != filter.Title {
			return false
		}
		return strings.Contains(strings.ToLower(p.Title), needle) || strings.Contains(strings.ToLower(p.Content), needle)
	}, cursor, limit)
}

func (r memPostRepo) ListByAuthor(ctx context.Context, authorID int64, cursor *string, limit int) ([]model.Post, *string, error) {
	return r.pagePosts(func(p *model.Post) bool { return p.AuthorID == authorID }, cursor, limit)
}

func (r memPostRepo) GetAuthorID(ctx context.Context, postID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.posts[postID]
	if !ok {
		return 0, model.ErrPostNotFound
	}
	return p.AuthorID, nil
}

type memLikeRepo struct{ s *memStore }

func (r memLikeRepo) Create(ctx context.Context, tx *sqlx.Tx, userID, postID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[postID]; !ok {
		return false, model.ErrPostNotFound
	}
	if _, ok := r.s.likes[edge{userID, postID}]; ok {
		return false, nil
	}
	_, now := r.s.tick()
	r.s.likes[edge{userID, postID}] = now
	return true, nil
}

func (r memLikeRepo) Delete(ctx context.Context, tx *sqlx.Tx, userID, postID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.likes[edge{userID, postID}]; !ok {
		return false, nil
	}
	delete(r.s.likes, edge{userID, postID})
	return true, nil
}

func (r memLikeRepo) Exists(ctx context.Context, userID, postID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.likes[edge{userID, postID}]
	return ok, nil
}

func (r memLikeRepo) CheckLikes(ctx context.Context, userID int64, postIDs []int64) (map[int64]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make(map[int64]bool, len(postIDs))
	for _, id := range postIDs {
		_, result[id] = r.s.likes[edge{userID, id}]
	}
	return result, nil
}

func (r memLikeRepo) CountByPost(ctx context.Context, postID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for e := range r.s.likes {
		if e[1] == postID {
			n++
		}
	}
	return n, nil
}

func (r memLikeRepo) GetLikers(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Liker, *string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var keys []keyed
	for e, at := range r.s.likes {
		if e[1] == postID {
			keys = append(keys, keyed{at: at, id: e[0]})
		}
	}
	page, next, err := pageDesc(keys, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	users := make([]model.Liker, 0, len(page))
	for _, k := range page {
		users = append(users, model.Liker{UserSummary: *r.s.summary(k.id), CreatedAt: k.at})
	}
	return users, next, nil
}

type memCommentRepo struct{ s *memStore }

func (r memCommentRepo) Create(ctx context.Context, tx *sqlx.Tx, postID, authorID int64, content string) (*model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.posts[postID]; !ok {
		return nil, model.ErrPostNotFound
	}
	id, now := r.s.tick()
	c := &model.Comment{ID: id, PostID: postID, AuthorID: authorID, Content: content, CreatedAt: now, UpdatedAt: now}
	r.s.comments[id] = c
	cp := *c
	return &cp, nil
}

func (r memCommentRepo) Update(ctx context.Context, commentID int64, content string) (*model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[commentID]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	c.Content = content
	cp := *c
	return &cp, nil
}

func (r memCommentRepo) Delete(ctx context.Context, commentID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[commentID]; !ok {
		return model.ErrCommentNotFound
	}
	delete(r.s.comments, commentID)
	return nil
}

func (r memCommentRepo) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.comments[commentID]
	if !ok {
		return nil, model.ErrCommentNotFound
	}
	cp := *c
	cp.Author = r.s.summary(c.AuthorID)
	return &cp, nil
}

func (r memCommentRepo) GetByPostID(ctx context.Context, postID int64, cursor *string, limit int) ([]model.Comment, *string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	comments := []model.Comment{}
	for _, c := range r.s.comments {
		if c.PostID == postID {
			cp := *c
			cp.Author = r.s.summary(c.AuthorID)
			comments = append(comments, cp)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	if len(comments) > limit {
		comments = comments[:limit]
	}
	return comments, nil, nil
}

type memNotificationRepo struct{ s *memStore }

func (r memNotificationRepo) Create(ctx context.Context, tx *sqlx.Tx, req model.EmitRequest) (*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.notifyErr != nil {
		return nil, r.s.notifyErr
	}
	id, now := r.s.tick()
	n := &model.Notification{
		ID:          id,
		RecipientID: req.RecipientID,
		ActorID:     req.ActorID,
		Verb:        req.Verb,
		Target:      req.Target,
		CreatedAt:   now,
	}
	r.s.notifications = append(r.s.notifications, n)
	cp := *n
	return &cp, nil
}

func (r memNotificationRepo) GetByID(ctx context.Context, id int64) (*model.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, model.ErrNotificationNotFound
}

func (r memNotificationRepo) ListByRecipient(ctx context.Context, recipientID int64, cursor *string, limit int) ([]model.Notification, *string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	byID := map[int64]*model.Notification{}
	var keys []keyed
	for _, n := range r.s.notifications {
		if n.RecipientID == recipientID {
			byID[n.ID] = n
			keys = append(keys, keyed{at: n.CreatedAt, id: n.ID})
		}
	}
	page, next, err := pageDesc(keys, cursor, limit)
	if err != nil {
		return nil, nil, err
	}
	out := make([]model.Notification, 0, len(page))
	for _, k := range page {
		n := *byID[k.id]
		n.Actor = r.s.summary(n.ActorID)
		out = append(out, n)
	}
	return out, next, nil
}

func (r memNotificationRepo) MarkRead(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id {
			n.IsRead = true
			return nil
		}
	}
	return model.ErrNotificationNotFound
}

func (r memNotificationRepo) MarkAllRead(ctx context.Context, recipientID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, notif := range r.s.notifications {
		if notif.RecipientID == recipientID && !notif.IsRead {
			notif.IsRead = true
			n++
		}
	}
	return n, nil
}

func (r memNotificationRepo) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, notif := range r.s.notifications {
		if notif.RecipientID == recipientID && !notif.IsRead {
			n++
		}
	}
	return n, nil
}

type memTokenRepo struct{ s *memStore }

func (r memTokenRepo) Upsert(ctx context.Context, userID int64, token, platform string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id, now := r.s.tick()
	r.s.tokens[token] = model.DeviceToken{ID: id, UserID: userID, Token: token, Platform: platform, CreatedAt: now, UpdatedAt: now}
	return nil
}

func (r memTokenRepo) GetByUserID(ctx context.Context, userID int64) ([]model.DeviceToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.DeviceToken
	for _, t := range r.s.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memTokenRepo) Delete(ctx context.Context, userID int64, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tokens[token]; ok && t.UserID == userID {
		delete(r.s.tokens, token)
	}
	return nil
}

func (r memTokenRepo) DeleteTokens(ctx context.Context, tokens []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range tokens {
		delete(r.s.tokens, t)
	}
	return nil
}

// =============================================================================
// SIDE-EFFECT FAKES
// =============================================================================

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ActivityEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, stream string, event queue.ActivityEvent) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return fmt.Sprintf("%d-0", len(p.events)), nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

type memUnread struct {
	mu          sync.Mutex
	counts      map[int64]int
	gens        map[int64]int64
	invalidated []int64
	getErr      error

	// beforeSet, when set, runs once at the start of the next Set.
	beforeSet func()
}

func newMemUnread() *memUnread {
	return &memUnread{counts: map[int64]int{}, gens: map[int64]int64{}}
}

// put seeds a cached count regardless of generation.
func (c *memUnread) put(userID int64, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[userID] = count
}

func (c *memUnread) Get(ctx context.Context, userID int64) (cache.UnreadSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return cache.UnreadSnapshot{}, c.getErr
	}
	n, ok := c.counts[userID]
	return cache.UnreadSnapshot{Count: n, Found: ok, Generation: c.gens[userID]}, nil
}

func (c *memUnread) Set(ctx context.Context, userID int64, count int, generation int64) (bool, error) {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != generation {
		return false, nil
	}
	c.counts[userID] = count
	return true, nil
}

func (c *memUnread) Invalidate(ctx context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.counts, userID)
	c.gens[userID]++
	c.invalidated = append(c.invalidated, userID)
	return nil
}
