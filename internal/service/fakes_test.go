package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"forum/internal/models"
	"forum/internal/policy"
	"forum/internal/repository"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the repositories. Update honours
// the version check like the SQL implementation.
type memStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	roles    map[string]models.Role
	topics   map[uuid.UUID]*models.Topic
	posts    map[uuid.UUID]*models.Post
	comments map[uuid.UUID]*models.Comment

	// beforeUpdate runs at the start of every Update, outside the lock.
	beforeUpdate func()
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		roles:    map[string]models.Role{},
		topics:   map[uuid.UUID]*models.Topic{},
		posts:    map[uuid.UUID]*models.Post{},
		comments: map[uuid.UUID]*models.Comment{},
	}
}

func (m *memStore) hook() {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
}

var t0 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func (m *memStore) addUser(id string, roles ...string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &models.User{ID: id, Username: "user_" + id, Email: id + "@example.com", Version: 1, CreatedAt: t0, UpdatedAt: t0}
	for _, r := range roles {
		u.Roles = append(u.Roles, m.roleLocked(r))
	}
	m.users[id] = u
	return u
}

func (m *memStore) roleLocked(name string) models.Role {
	role, ok := m.roles[name]
	if !ok {
		role = models.Role{ID: uuid.New(), Name: name}
		m.roles[name] = role
	}
	return role
}

func (m *memStore) addTopic() *models.Topic {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &models.Topic{ID: uuid.New(), Title: "General", Version: 1, CreatedAt: t0, UpdatedAt: t0}
	m.topics[t.ID] = t
	return t
}

func (m *memStore) addPost(authorID string, topicID uuid.UUID) *models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &models.Post{ID: uuid.New(), Title: "Hello", Content: "World", AuthorID: authorID, TopicID: topicID, Version: 1, CreatedAt: t0, UpdatedAt: t0}
	m.posts[p.ID] = p
	return p
}

func (m *memStore) addComment(authorID string, postID uuid.UUID) *models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := &models.Comment{ID: uuid.New(), Content: "Nice", AuthorID: authorID, PostID: postID, Version: 1, CreatedAt: t0, UpdatedAt: t0}
	m.comments[c.ID] = c
	return c
}

func principal(id string, roles ...string) policy.Principal {
	return policy.Principal{ID: id, Roles: roles}
}

// users

type memUsers struct{ *memStore }

var _ repository.UserRepository = memUsers{}

func (r memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, models.NewNotFoundError("User", id)
	}
	cp := *u
	cp.Roles = append([]models.Role(nil), u.Roles...)
	return &cp, nil
}

func (r memUsers) find(match func(*models.User) bool) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp
		}
	}
	return nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email }), nil
}

func (r memUsers) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username }), nil
}

func (r memUsers) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

func (r memUsers) List(_ context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memUsers) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	for _, u := range r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return models.NewValidationError("User already exists")
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r memUsers) Update(_ context.Context, user *models.User, expected uint) error {
	r.hook()
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.users[user.ID]
	if !ok || cur.Version != expected {
		return repository.ErrVersionConflict
	}
	cur.Username, cur.Email, cur.UpdatedAt = user.Username, user.Email, user.UpdatedAt
	cur.Version = expected + 1
	user.Version = cur.Version
	return nil
}

func (r memUsers) AddRole(_ context.Context, userID, roleName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return models.NewNotFoundError("User", userID)
	}
	role := r.roleLocked(roleName)
	for _, have := range u.Roles {
		if have.Name == roleName {
			return nil
		}
	}
	u.Roles = append(u.Roles, role)
	return nil
}

func (r memUsers) RemoveRole(_ context.Context, userID, roleName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	kept := u.Roles[:0]
	for _, have := range u.Roles {
		if have.Name != roleName {
			kept = append(kept, have)
		}
	}
	u.Roles = kept
	return nil
}

// roles

type memRoles struct{ *memStore }

var _ repository.RoleRepository = memRoles{}

func (r memRoles) List(_ context.Context) ([]models.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Role
	for _, role := range r.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memRoles) Ensure(_ context.Context, name string) (*models.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	role := r.roleLocked(name)
	return &role, nil
}

// topics

type memTopics struct{ *memStore }

var _ repository.TopicRepository = memTopics{}

func (r memTopics) List(_ context.Context) ([]models.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Topic
	for _, t := range r.topics {
		out = append(out, *t)
	}
	return out, nil
}

func (r memTopics) GetByID(_ context.Context, id uuid.UUID) (*models.Topic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[id]
	if !ok {
		return nil, models.NewNotFoundError("Topic", id)
	}
	cp := *t
	return &cp, nil
}

func (r memTopics) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.topics[id]
	return ok, nil
}

func (r memTopics) Create(_ context.Context, topic *models.Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *topic
	r.topics[topic.ID] = &cp
	return nil
}

func (r memTopics) Update(_ context.Context, topic *models.Topic, expected uint) error {
	r.hook()
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.topics[topic.ID]
	if !ok || cur.Version != expected {
		return repository.ErrVersionConflict
	}
	cur.Title, cur.Description, cur.UpdatedAt = topic.Title, topic.Description, topic.UpdatedAt
	cur.Version = expected + 1
	topic.Version = cur.Version
	return nil
}

func (r memTopics) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.topics[id]; !ok {
		return models.NewNotFoundError("Topic", id)
	}
	delete(r.topics, id)
	for pid, p := range r.posts {
		if p.TopicID == id {
			r.deletePostLocked(pid)
		}
	}
	return nil
}

// posts

type memPosts struct{ *memStore }

var _ repository.PostRepository = memPosts{}

func (r memPosts) List(_ context.Context) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Post
	for _, p := range r.posts {
		out = append(out, *p)
	}
	return out, nil
}

func (r memPosts) ListByTopic(_ context.Context, topicID uuid.UUID) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Post
	for _, p := range r.posts {
		if p.TopicID == topicID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r memPosts) GetByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	cp := *p
	return &cp, nil
}

func (r memPosts) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.posts[id]
	return ok, nil
}

func (r memPosts) Create(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *post
	r.posts[post.ID] = &cp
	return nil
}

func (r memPosts) Update(_ context.Context, post *models.Post, expected uint) error {
	r.hook()
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.posts[post.ID]
	if !ok || cur.Version != expected {
		return repository.ErrVersionConflict
	}
	cur.Title, cur.Content, cur.UpdatedAt = post.Title, post.Content, post.UpdatedAt
	cur.Version = expected + 1
	post.Version = cur.Version
	return nil
}

func (r memPosts) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return models.NewNotFoundError("Post", id)
	}
	r.deletePostLocked(id)
	return nil
}

func (m *memStore) deletePostLocked(id uuid.UUID) {
	delete(m.posts, id)
	for cid, c := range m.comments {
		if c.PostID == id {
			delete(m.comments, cid)
		}
	}
}

// comments

type memComments struct{ *memStore }

var _ repository.CommentRepository = memComments{}

func (r memComments) List(_ context.Context) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Comment
	for _, c := range r.comments {
		out = append(out, *c)
	}
	return out, nil
}

func (r memComments) ListByPost(_ context.Context, postID uuid.UUID) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Comment
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (r memComments) GetByID(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, models.NewNotFoundError("Comment", id)
	}
	cp := *c
	return &cp, nil
}

func (r memComments) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.comments[id]
	return ok, nil
}

func (r memComments) Create(_ context.Context, comment *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *comment
	r.comments[comment.ID] = &cp
	return nil
}

func (r memComments) Update(_ context.Context, comment *models.Comment, expected uint) error {
	r.hook()
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.comments[comment.ID]
	if !ok || cur.Version != expected {
		return repository.ErrVersionConflict
	}
	cur.Content, cur.UpdatedAt = comment.Content, comment.UpdatedAt
	cur.Version = expected + 1
	comment.Version = cur.Version
	return nil
}

func (r memComments) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.comments[id]; !ok {
		return models.NewNotFoundError("Comment", id)
	}
	delete(r.comments, id)
	return nil
}
