package suite

import (
	"errors"
	"fmt"

	"github.com/abdul-hamid-achik/postcheck/packages/assertions"
	"github.com/abdul-hamid-achik/postcheck/packages/capture"
	"github.com/abdul-hamid-achik/postcheck/packages/core/workflow"
	"github.com/abdul-hamid-achik/postcheck/packages/http"
)

// Scenario names. Register is referenced by every scenario that needs a token.
const (
	Register          = "Register a new user"
	ListPosts         = "Get all posts"
	PaginatedPosts    = "Get first page of posts"
	FilteredPosts     = "Get posts by id"
	UnauthorizedPost  = "Create post without token"
	ProtectedPost     = "Create post with token on protected path"
	CreatePost        = "Create post"
	UpdateMissingPost = "Update missing post"
	PostRoundTrip     = "Create, read and update post"
	DeleteMissingPost = "Delete missing post"
	PostLifecycle     = "Create, update and delete post"
)

// Tags used to select scenarios.
const (
	TagAuth      = "auth"
	TagRead      = "read"
	TagWrite     = "write"
	TagNegative  = "negative"
	TagLifecycle = "lifecycle"
)

// canonical post used by the create scenario
const (
	newPostTitle   = "New Post"
	newPostContent = "Some content to post"
)

// state keys
const (
	keyToken    = "token"
	keyPostID   = "postId"
	keyTitle    = "title"
	keyContent  = "content"
	keyPostDate = "postDate"
	keyEmail    = "email"
)

// Scenarios returns the blog API workflow in execution order.
func Scenarios(cfg Config) []*workflow.Scenario {
	cfg = cfg.WithDefaults()
	needsToken := []string{Register}

	return []*workflow.Scenario{
		{
			Name:        Register,
			Description: "Register a fresh user and save the access token",
			Tags:        []string{TagAuth, TagWrite},
			Steps:       []*workflow.Step{registerStep(cfg)},
		},
		{
			Name:        ListPosts,
			Description: "The post collection is served as JSON",
			Tags:        []string{TagRead},
			Steps: []*workflow.Step{{
				Name:  "list posts",
				Build: get(cfg.PostsPath),
				Assertions: []assertions.Assertion{
					assertions.Status(200),
					assertions.HeaderContains("Content-Type", "application/json"),
				},
				Check: func(s *workflow.State, _ *http.Response) error {
					s.Logf("all posts")
					return nil
				},
			}},
		},
		{
			Name:        PaginatedPosts,
			Description: "A page holds exactly the requested number of posts",
			Tags:        []string{TagRead},
			Steps: []*workflow.Step{{
				Name: "get page",
				Build: func(s *workflow.State) (*http.Request, error) {
					s.Logf("Get first %d posts", cfg.Limit)
					return http.NewRequest("GET", s.URL(cfg.PostsPath)).
						SetQueryParam("_page", fmt.Sprint(cfg.Page)).
						SetQueryParam("_limit", fmt.Sprint(cfg.Limit)), nil
				},
				Assertions: []assertions.Assertion{
					assertions.Status(200),
					assertions.BodyLength("", cfg.Limit),
				},
			}},
		},
		{
			Name:        FilteredPosts,
			Description: "Filtering by repeated id returns the requested posts",
			Tags:        []string{TagRead},
			Steps:       []*workflow.Step{filterStep(cfg)},
		},
		{
			Name:        UnauthorizedPost,
			Description: "Writes under the protected prefix are rejected without a token",
			Tags:        []string{TagAuth, TagNegative, TagWrite},
			Steps: []*workflow.Step{{
				Name: "create without token",
				Build: func(s *workflow.State) (*http.Request, error) {
					req, err := jsonRequest(s, "POST", cfg.protectedPostsPath(), legacyPost(s))
					if err != nil {
						return nil, err
					}
					return req.WithoutAuth(), nil
				},
				ExpectFailure: true,
				Assertions:    []assertions.Assertion{assertions.Status(401)},
			}},
		},
		{
			Name:        ProtectedPost,
			Description: "Writes under the protected prefix succeed with the saved token",
			Tags:        []string{TagAuth, TagWrite},
			Depends:     needsToken,
			Steps: []*workflow.Step{
				{
					Name: "create with token",
					Build: func(s *workflow.State) (*http.Request, error) {
						post := legacyPost(s)
						s.Set(keyPostID, post.ID)
						return authorized(s, "POST", cfg.protectedPostsPath(), post)
					},
					Assertions: []assertions.Assertion{assertions.Status(201)},
					Check: func(s *workflow.State, resp *http.Response) error {
						s.Logf("%d created post %s", resp.StatusCode, s.GetString(keyPostID))
						return nil
					},
				},
				{
					Name: "read created post",
					Build: func(s *workflow.State) (*http.Request, error) {
						return anonymousGet(s, cfg.postPath(s.GetString(keyPostID))), nil
					},
					Assertions: []assertions.Assertion{assertions.Status(200)},
					Check: func(s *workflow.State, resp *http.Response) error {
						s.Logf("Post is created: %s", resp.BodyString())
						return nil
					},
				},
			},
		},
		{
			Name:        CreatePost,
			Description: "A created post echoes its fields and gets an id",
			Tags:        []string{TagWrite},
			Depends:     needsToken,
			Steps: []*workflow.Step{{
				Name: "create post",
				Build: func(s *workflow.State) (*http.Request, error) {
					post := Post{Title: newPostTitle, Content: newPostContent, PostDate: s.Fake.Now()}
					return authorized(s, "POST", cfg.PostsPath, post)
				},
				Assertions: []assertions.Assertion{
					assertions.Status(201),
					assertions.BodyExists("id"),
					assertions.BodyEquals("title", newPostTitle),
					assertions.BodyEquals("content", newPostContent),
					assertions.BodyExists("postDate"),
					assertions.BodySchema("", PostSchema),
				},
			}},
		},
		{
			Name:        UpdateMissingPost,
			Description: "Updating a post that does not exist is a 404",
			Tags:        []string{TagNegative, TagWrite},
			Depends:     needsToken,
			Steps: []*workflow.Step{{
				Name: "update missing post",
				Build: func(s *workflow.State) (*http.Request, error) {
					post := Post{Title: "Updated Post", Content: "Updated content", PostDate: s.Fake.Now()}
					return authorized(s, "PUT", cfg.postPath(cfg.MissingUpdateID), post)
				},
				ExpectFailure: true,
				Assertions:    []assertions.Assertion{assertions.Status(404)},
			}},
		},
		{
			Name:        PostRoundTrip,
			Description: "A post reads back as created and as updated",
			Tags:        []string{TagLifecycle, TagWrite},
			Depends:     needsToken,
			Steps: []*workflow.Step{
				createPostStep(cfg, true),
				readPostStep(cfg, "read created post", true),
				updatePostStep(cfg, true),
				readPostStep(cfg, "read updated post", true),
			},
		},
		{
			Name:        DeleteMissingPost,
			Description: "Deleting a post that does not exist is a 404",
			Tags:        []string{TagNegative, TagWrite},
			Depends:     needsToken,
			Steps: []*workflow.Step{{
				Name: "delete missing post",
				Build: func(s *workflow.State) (*http.Request, error) {
					return authorized(s, "DELETE", cfg.postPath(cfg.MissingDeleteID), nil)
				},
				ExpectFailure: true,
				Assertions:    []assertions.Assertion{assertions.Status(404)},
			}},
		},
		{
			Name:        PostLifecycle,
			Description: "A deleted post is gone",
			Tags:        []string{TagLifecycle, TagWrite},
			Depends:     needsToken,
			Steps: []*workflow.Step{
				createPostStep(cfg, false),
				updatePostStep(cfg, false),
				{
					Name: "delete post",
					Build: func(s *workflow.State) (*http.Request, error) {
						return authorized(s, "DELETE", cfg.postPath(s.GetString(keyPostID)), nil)
					},
					Assertions: []assertions.Assertion{assertions.Status(200)},
				},
				{
					Name: "read deleted post",
					Build: func(s *workflow.State) (*http.Request, error) {
						return anonymousGet(s, cfg.postPath(s.GetString(keyPostID))), nil
					},
					ExpectFailure: true,
					Assertions:    []assertions.Assertion{assertions.Status(404)},
				},
			},
		},
	}
}

func registerStep(cfg Config) *workflow.Step {
	return &workflow.Step{
		Name: "register",
		Build: func(s *workflow.State) (*http.Request, error) {
			email, password := s.Fake.User()
			s.Set(keyEmail, email)
			s.Logf("registering %s", email)
			return jsonRequest(s, "POST", cfg.RegisterPath, User{Email: email, Password: password})
		},
		Assertions: []assertions.Assertion{
			assertions.Status(201),
			assertions.BodyNotEmpty(cfg.TokenField),
		},
		Captures: []capture.Capture{capture.MustBody(keyToken, cfg.TokenField)},
		Check: func(s *workflow.State, resp *http.Response) error {
			var reg RegisterResponse
			if err := resp.DecodeJSON(&reg); err != nil {
				return err
			}
			if email := s.GetString(keyEmail); reg.User.Email != "" && reg.User.Email != email {
				return fmt.Errorf("registered as %q, response names %q", email, reg.User.Email)
			}
			if reg.User.ID != nil {
				s.Logf("registered user %v", reg.User.ID)
			}
			if s.Tokens == nil {
				return fmt.Errorf("no token store configured")
			}
			if err := s.Tokens.Save(s.GetString(keyToken)); err != nil {
				return err
			}
			if path := s.Tokens.Path(); path != "" {
				s.Logf("token saved to %s", path)
			}
			return nil
		},
	}
}

func filterStep(cfg Config) *workflow.Step {
	return &workflow.Step{
		Name: "filter by id",
		Build: func(s *workflow.State) (*http.Request, error) {
			req := http.NewRequest("GET", s.URL(cfg.PostsPath))
			for _, id := range cfg.FilterIDs {
				req.AddQueryParam("id", id)
			}
			return req, nil
		},
		Assertions: []assertions.Assertion{
			assertions.Status(200),
			{Subject: "body", Operator: assertions.OpType, Expected: "array"},
		},
		Check: func(s *workflow.State, resp *http.Response) error {
			var posts []Post
			if err := resp.DecodeJSON(&posts); err != nil {
				return fmt.Errorf("decoding posts: %w", err)
			}
			if len(posts) == 0 {
				if cfg.StrictFilter {
					return fmt.Errorf("no posts returned for ids %v", cfg.FilterIDs)
				}
				s.Logf(NoFilteredPostsMessage)
				return nil
			}

			result := assertions.NewEvaluator(resp).Evaluate(assertions.BodyIncludesIDs("#.id", cfg.FilterIDs))
			if !result.Passed {
				return errors.New(result.Message)
			}
			return nil
		},
	}
}

func createPostStep(cfg Config, withDate bool) *workflow.Step {
	return &workflow.Step{
		Name: "create post",
		Build: func(s *workflow.State) (*http.Request, error) {
			post := Post{Title: s.Fake.Sentence(), Content: s.Fake.Paragraph()}
			if withDate {
				post.PostDate = s.Fake.Now()
			}
			remember(s, post)
			return authorized(s, "POST", cfg.PostsPath, post)
		},
		Assertions: []assertions.Assertion{
			assertions.Status(201),
			assertions.BodyExists("id"),
		},
		Captures: []capture.Capture{capture.MustBody(keyPostID, "id")},
	}
}

func updatePostStep(cfg Config, withDate bool) *workflow.Step {
	return &workflow.Step{
		Name: "update post",
		Build: func(s *workflow.State) (*http.Request, error) {
			post := Post{Title: s.Fake.Sentence(), Content: s.Fake.Paragraph()}
			if withDate {
				post.PostDate = s.Fake.Now()
			}
			remember(s, post)
			return authorized(s, "PUT", cfg.postPath(s.GetString(keyPostID)), post)
		},
		Assertions: []assertions.Assertion{assertions.Status(200)},
		Expect:     expectPost(withDate),
	}
}

func readPostStep(cfg Config, name string, withDate bool) *workflow.Step {
	return &workflow.Step{
		Name: name,
		Build: func(s *workflow.State) (*http.Request, error) {
			return authorized(s, "GET", cfg.postPath(s.GetString(keyPostID)), nil)
		},
		Assertions: []assertions.Assertion{assertions.Status(200)},
		Expect:     expectPost(withDate),
	}
}

// remember stores the fields just sent so later steps can compare them.
func remember(s *workflow.State, post Post) {
	s.Set(keyTitle, post.Title)
	s.Set(keyContent, post.Content)
	s.Set(keyPostDate, post.PostDate)
}

func expectPost(withDate bool) func(s *workflow.State) []assertions.Assertion {
	return func(s *workflow.State) []assertions.Assertion {
		id, _ := s.Get(keyPostID)
		checks := []assertions.Assertion{
			assertions.BodyID("id", id),
			assertions.BodyEquals("title", s.GetString(keyTitle)),
			assertions.BodyEquals("content", s.GetString(keyContent)),
		}
		if withDate {
			checks = append(checks, assertions.BodyEquals("postDate", s.GetString(keyPostDate)))
		}
		return checks
	}
}

func legacyPost(s *workflow.State) Post {
	return Post{
		ID:     s.Fake.PostID(),
		Title:  s.Fake.JobArea(),
		Author: s.Fake.UserName(),
	}
}

func get(path string) func(s *workflow.State) (*http.Request, error) {
	return func(s *workflow.State) (*http.Request, error) {
		return http.NewRequest("GET", s.URL(path)), nil
	}
}

func jsonRequest(s *workflow.State, method, path string, body any) (*http.Request, error) {
	req := http.NewRequest(method, s.URL(path))
	if err := req.SetJSON(body); err != nil {
		return nil, err
	}
	return req, nil
}

// anonymousGet reads path with no Authorization header, even when one is
// configured as a default header.
func anonymousGet(s *workflow.State, path string) *http.Request {
	return http.NewRequest("GET", s.URL(path)).WithoutAuth()
}

// authorized builds a request carrying the saved bearer token.
func authorized(s *workflow.State, method, path string, body any) (*http.Request, error) {
	token, err := s.Token()
	if err != nil {
		return nil, err
	}

	req := http.NewRequest(method, s.URL(path)).Bearer(token)
	if body != nil {
		if err := req.SetJSON(body); err != nil {
			return nil, err
		}
	}
	return req, nil
}
