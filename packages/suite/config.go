package suite

const (
	DefaultRegisterPath    = "/register"
	DefaultTokenField      = "accessToken"
	DefaultPostsPath       = "/posts"
	DefaultProtectedPrefix = "/664"
	DefaultPage            = 1
	DefaultLimit           = 10
	DefaultMissingUpdateID = "non-existing-post-id"
	DefaultMissingDeleteID = "non-existing-id"
)

// NoFilteredPostsMessage is logged when the id filter matches nothing.
const NoFilteredPostsMessage = "There are no posts with the required ID."

var DefaultFilterIDs = []string{"55", "60"}

// Config holds the endpoints and test data the scenarios use.
type Config struct {
	RegisterPath string
	// TokenField is the gjson path of the token in the registration body.
	TokenField string
	PostsPath  string
	// ProtectedPrefix is the permission prefix under which writes need a token.
	ProtectedPrefix string
	Page            int
	Limit           int
	FilterIDs       []string
	MissingUpdateID string
	MissingDeleteID string
	// StrictFilter fails the filtered list scenario when nothing matches
	// instead of logging and passing.
	StrictFilter bool
}

func DefaultConfig() Config {
	return Config{
		RegisterPath:    DefaultRegisterPath,
		TokenField:      DefaultTokenField,
		PostsPath:       DefaultPostsPath,
		ProtectedPrefix: DefaultProtectedPrefix,
		Page:            DefaultPage,
		Limit:           DefaultLimit,
		FilterIDs:       append([]string(nil), DefaultFilterIDs...),
		MissingUpdateID: DefaultMissingUpdateID,
		MissingDeleteID: DefaultMissingDeleteID,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.RegisterPath == "" {
		c.RegisterPath = d.RegisterPath
	}
	if c.TokenField == "" {
		c.TokenField = d.TokenField
	}
	if c.PostsPath == "" {
		c.PostsPath = d.PostsPath
	}
	if c.ProtectedPrefix == "" {
		c.ProtectedPrefix = d.ProtectedPrefix
	}
	if c.Page <= 0 {
		c.Page = d.Page
	}
	if c.Limit <= 0 {
		c.Limit = d.Limit
	}
	if len(c.FilterIDs) == 0 {
		c.FilterIDs = d.FilterIDs
	}
	if c.MissingUpdateID == "" {
		c.MissingUpdateID = d.MissingUpdateID
	}
	if c.MissingDeleteID == "" {
		c.MissingDeleteID = d.MissingDeleteID
	}
	return c
}

func (c Config) postPath(id string) string {
	return c.PostsPath + "/" + id
}

func (c Config) protectedPostsPath() string {
	return c.ProtectedPrefix + c.PostsPath
}
