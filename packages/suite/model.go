package suite

// User is the account registered at the start of a run.
type User struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Post is a blog post as the API returns it. ID is a JSON number or string
// depending on the backend, so it is kept as decoded.
type Post struct {
	ID       any    `json:"id,omitempty"`
	Title    string `json:"title,omitempty"`
	Content  string `json:"content,omitempty"`
	Author   string `json:"author,omitempty"`
	PostDate string `json:"postDate,omitempty"`
}

// RegisterResponse is the body returned by a successful registration.
type RegisterResponse struct {
	AccessToken string `json:"accessToken"`
	User        struct {
		ID    any    `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

// PostSchema is the minimal shape every post returned by the API satisfies.
const PostSchema = `{
	"type": "object",
	"required": ["id"],
	"properties": {
		"id": {"type": ["integer", "string"]},
		"title": {"type": "string"},
		"content": {"type": "string"},
		"postDate": {"type": "string"}
	}
}`
